package engineadapters

import (
	"context"
	"sync"
	"time"

	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

// TokenBucketLimiter is a simple refilling bucket shared by all outbound
// calls of an agent. Acquire blocks until a token is available or the
// context ends.
type TokenBucketLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // tokens per second
	last     time.Time
}

// NewTokenBucketLimiter builds a bucket allowing rps sustained calls with
// bursts up to burst.
func NewTokenBucketLimiter(rps float64, burst int) *TokenBucketLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketLimiter{
		tokens:   float64(burst),
		capacity: float64(burst),
		rate:     rps,
		last:     time.Now(),
	}
}

// Acquire takes one token, waiting for refill if the bucket is empty. The
// key is unused here; a per-endpoint limiter could shard on it.
func (l *TokenBucketLimiter) Acquire(ctx context.Context, _ string) (func(), error) {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return func() {}, nil
		}
		wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

func (l *TokenBucketLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.last).Seconds()
	l.last = now
	l.tokens += elapsed * l.rate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
}

var _ engineports.RateLimiter = (*TokenBucketLimiter)(nil)
