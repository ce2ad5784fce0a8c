package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

const maxResponseBytes = 1 << 20 // cap on remote response bodies

// CallRequest is a fully expanded HTTP request, templates already resolved.
type CallRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Query   map[string]string
	Body    any
}

// CallPolicy carries the per-tool execution knobs.
type CallPolicy struct {
	Timeout         time.Duration // per attempt
	RetryCount      int           // additional attempts after the first
	RetryDelay      time.Duration // constant spacing between attempts
	CacheTTLSeconds int           // GET memoization, 0 disables
}

// ExecutorOptions configures a call executor.
type ExecutorOptions struct {
	MaxConcurrent int // in-flight call ceiling across all tools
	Client        *http.Client
	Limiter       engineports.RateLimiter
	Cache         engineports.Cache
	Tracer        engineports.Tracer
	Logger        zerolog.Logger
}

// Executor performs outbound webhook calls with bounded concurrency,
// per-attempt timeouts and constant-backoff retries. A single executor is
// shared by every webhook tool of an agent.
type Executor struct {
	client  *http.Client
	sem     chan struct{}
	limiter engineports.RateLimiter
	cache   engineports.Cache
	tracer  engineports.Tracer
	logger  zerolog.Logger
	calls   atomic.Int64
}

// NewExecutor builds an executor. Zero or negative MaxConcurrent falls back
// to 5.
func NewExecutor(opts ExecutorOptions) *Executor {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 5
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	return &Executor{
		client:  opts.Client,
		sem:     make(chan struct{}, opts.MaxConcurrent),
		limiter: opts.Limiter,
		cache:   opts.Cache,
		tracer:  opts.Tracer,
		logger:  opts.Logger,
	}
}

// Calls reports the number of completed outbound calls, attempts included
// once each.
func (e *Executor) Calls() int64 { return e.calls.Load() }

// Do executes the request under the given policy and returns the decoded
// response payload. Retries cover transport failures, timeouts and 5xx
// responses only; a 4xx is terminal on the first attempt.
func (e *Executor) Do(ctx context.Context, tool string, req CallRequest, policy CallPolicy) (any, error) {
	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-ctx.Done():
		return nil, timeoutErrf("waiting for call slot: %v", ctx.Err())
	}

	if e.limiter != nil {
		release, err := e.limiter.Acquire(ctx, tool)
		if err != nil {
			return nil, timeoutErrf("rate limit wait: %v", err)
		}
		defer release()
	}

	var endSpan func(error)
	if e.tracer != nil {
		ctx, endSpan = e.tracer.StartSpan(ctx, "webhook.call", map[string]any{
			"tool":   tool,
			"method": req.Method,
			"url":    req.URL,
		})
	}

	cacheKey := ""
	if e.cache != nil && req.Method == http.MethodGet && policy.CacheTTLSeconds > 0 {
		cacheKey = requestCacheKey(tool, req)
		if raw, ok := e.cache.Get(ctx, cacheKey); ok {
			if endSpan != nil {
				endSpan(nil)
			}
			return decodePayload(raw), nil
		}
	}

	payload, err := e.doWithRetry(ctx, tool, req, policy)
	if endSpan != nil {
		endSpan(err)
	}
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		if raw, merr := json.Marshal(payload); merr == nil {
			if cerr := e.cache.Set(ctx, cacheKey, raw, policy.CacheTTLSeconds); cerr != nil {
				e.logger.Debug().Err(cerr).Str("tool", tool).Msg("response cache write failed")
			}
		}
	}
	return payload, nil
}

func (e *Executor) doWithRetry(ctx context.Context, tool string, req CallRequest, policy CallPolicy) (any, error) {
	delay := policy.RetryDelay
	if delay <= 0 {
		delay = time.Nanosecond // NewConstant rejects non-positive delays
	}
	backoff := retry.WithMaxRetries(uint64(policy.RetryCount), retry.NewConstant(delay))

	attempt := 0
	var payload any
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var attemptErr error
		payload, attemptErr = e.attempt(ctx, req, policy.Timeout)
		if attemptErr != nil {
			e.logger.Warn().
				Str("tool", tool).
				Str("method", req.Method).
				Str("url", req.URL).
				Int("attempt", attempt).
				Err(attemptErr).
				Msg("webhook attempt failed")
		}
		return attemptErr
	})
	if err != nil {
		e.logger.Error().
			Str("tool", tool).
			Str("method", req.Method).
			Str("url", req.URL).
			Int("attempts", attempt).
			Fields(map[string]any{"headers": RedactStringMap(req.Headers)}).
			Err(err).
			Msg("webhook call failed")
		return nil, err
	}
	return payload, nil
}

// attempt performs one HTTP exchange under its own deadline and classifies
// the failure. Retryable failures come back wrapped for the backoff loop.
func (e *Executor) attempt(parent context.Context, req CallRequest, timeout time.Duration) (any, error) {
	ctx := parent
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}

	httpReq, err := e.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Do(httpReq)
	e.calls.Add(1)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || (ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
			return nil, retry.RetryableError(timeoutErrf("request exceeded %s deadline", timeout))
		}
		return nil, retry.RetryableError(networkErrf("request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, retry.RetryableError(networkErrf("reading response: %v", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return decodePayload(body), nil
	case resp.StatusCode >= 500:
		return nil, retry.RetryableError(httpErrf("HTTP %d: %s", resp.StatusCode, shortBody(body)))
	default:
		return nil, httpErrf("HTTP %d: %s", resp.StatusCode, shortBody(body))
	}
}

func (e *Executor) buildRequest(ctx context.Context, req CallRequest) (*http.Request, error) {
	var bodyReader io.Reader
	contentType := ""
	if req.Body != nil && req.Method != http.MethodGet {
		switch b := req.Body.(type) {
		case string:
			bodyReader = strings.NewReader(b)
		case []byte:
			bodyReader = bytes.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				return nil, templateErrf("encode request body: %v", err)
			}
			bodyReader = bytes.NewReader(raw)
			contentType = "application/json"
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, networkErrf("build request: %v", err)
	}
	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

// decodePayload prefers JSON; non-JSON bodies come back as plain strings.
func decodePayload(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err == nil {
		return v
	}
	return string(trimmed)
}

func shortBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// requestCacheKey covers the tool, target and resolved headers so two tools
// hitting the same URL with different credentials never share an entry.
func requestCacheKey(tool string, req CallRequest) string {
	u, err := url.Parse(req.URL)
	if err == nil && len(req.Query) > 0 {
		q := u.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	target := req.URL
	if u != nil {
		target = u.String()
	}

	h := sha256.New()
	io.WriteString(h, tool)
	io.WriteString(h, "\n"+req.Method+" "+target)
	names := make([]string, 0, len(req.Headers))
	for k := range req.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		io.WriteString(h, "\n"+k+": "+req.Headers[k])
	}
	return "webhook:" + hex.EncodeToString(h.Sum(nil))
}
