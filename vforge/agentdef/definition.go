package agentdef

import (
	"fmt"
	"net/url"
	"regexp"
	"time"
)

// ToolKind discriminates how a tool executes.
type ToolKind string

const (
	KindNative  ToolKind = "native"
	KindWebhook ToolKind = "webhook"
)

// ExecutionMode selects synchronous or fire-and-forget dispatch.
type ExecutionMode string

const (
	ModeSync       ExecutionMode = "sync"
	ModeBackground ExecutionMode = "background"
)

// Argument value types supported by the schema generator.
var allowedArgTypes = map[string]bool{
	"string":  true,
	"integer": true,
	"number":  true,
	"boolean": true,
	"array":   true,
	"object":  true,
}

var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"PATCH":  true,
	"DELETE": true,
}

// ArgumentSpec declares one model-supplied parameter.
type ArgumentSpec struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	Required    bool     `json:"required,omitempty"`
	Enum        []any    `json:"enum,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	MinLength   *int     `json:"min_length,omitempty"`
	MaxLength   *int     `json:"max_length,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
	Items       string   `json:"items,omitempty"` // element type for arrays
}

// Validate checks the spec for internal consistency.
func (a *ArgumentSpec) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("argument name is required")
	}
	if !allowedArgTypes[a.Type] {
		return fmt.Errorf("argument %q: unsupported type %q", a.Name, a.Type)
	}
	if a.Pattern != "" {
		if _, err := regexp.Compile(a.Pattern); err != nil {
			return fmt.Errorf("argument %q: invalid pattern: %w", a.Name, err)
		}
	}
	if a.MinLength != nil && *a.MinLength < 0 {
		return fmt.Errorf("argument %q: min_length must be >= 0", a.Name)
	}
	if a.MinLength != nil && a.MaxLength != nil && *a.MinLength > *a.MaxLength {
		return fmt.Errorf("argument %q: min_length greater than max_length", a.Name)
	}
	if a.Minimum != nil && a.Maximum != nil && *a.Minimum > *a.Maximum {
		return fmt.Errorf("argument %q: minimum greater than maximum", a.Name)
	}
	if a.Items != "" && !allowedArgTypes[a.Items] {
		return fmt.Errorf("argument %q: unsupported items type %q", a.Name, a.Items)
	}
	return nil
}

// APICallSpec describes the templated HTTP request of a webhook tool.
type APICallSpec struct {
	URL               string            `json:"url"`
	Method            string            `json:"method"`
	Headers           map[string]string `json:"headers,omitempty"`
	Query             map[string]string `json:"query,omitempty"`
	Body              any               `json:"body,omitempty"`
	Args              []ArgumentSpec    `json:"args,omitempty"`
	TimeoutSeconds    int               `json:"timeout_seconds,omitempty"`
	RetryCount        int               `json:"retry_count,omitempty"`
	RetryDelaySeconds float64           `json:"retry_delay_seconds,omitempty"`
	CacheTTLSeconds   int               `json:"cache_ttl_seconds,omitempty"` // GET memoization, 0 = off
}

// Timeout returns the per-attempt timeout with the default applied.
func (s *APICallSpec) Timeout() time.Duration {
	if s.TimeoutSeconds == 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RetryDelay returns the delay between attempts with the default applied.
func (s *APICallSpec) RetryDelay() time.Duration {
	if s.RetryDelaySeconds == 0 {
		return time.Second
	}
	return time.Duration(s.RetryDelaySeconds * float64(time.Second))
}

// Validate checks the call spec before any holder is built from it.
func (s *APICallSpec) Validate() error {
	if s.URL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", s.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", s.URL)
	}
	if !allowedMethods[s.Method] {
		return fmt.Errorf("invalid HTTP method %q", s.Method)
	}
	if s.TimeoutSeconds < 0 || s.TimeoutSeconds > 300 {
		return fmt.Errorf("timeout_seconds must be between 0 and 300")
	}
	if s.RetryCount < 0 || s.RetryCount > 10 {
		return fmt.Errorf("retry_count must be between 0 and 10")
	}
	if s.RetryDelaySeconds < 0 {
		return fmt.Errorf("retry_delay_seconds must be >= 0")
	}
	for i := range s.Args {
		if err := s.Args[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ToolDefinition is the declarative description of one capability. It is
// created from configuration at agent start-up, validated once, and immutable
// for the lifetime of the agent instance.
type ToolDefinition struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Enabled       *bool          `json:"enabled,omitempty"` // nil means enabled
	Kind          ToolKind       `json:"kind"`
	Mode          ExecutionMode  `json:"execution_mode,omitempty"`
	WaitForResult *bool          `json:"wait_for_result,omitempty"` // sync tools; nil means wait
	AckMessage    string         `json:"ack_message,omitempty"`
	Constants     map[string]any `json:"constants,omitempty"`
	API           *APICallSpec   `json:"api,omitempty"`
}

// IsEnabled reports whether the tool should be registered.
func (t *ToolDefinition) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// WaitsForResult reports whether a synchronous holder blocks on the call.
func (t *ToolDefinition) WaitsForResult() bool {
	return t.WaitForResult == nil || *t.WaitForResult
}

// Validate checks the definition shape. Engine-level validation (template
// namespaces, argument name collisions) happens again at registration.
func (t *ToolDefinition) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tool id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("tool %s: name is required", t.ID)
	}
	switch t.Kind {
	case KindNative:
		// native tools are self-describing; api is ignored
	case KindWebhook:
		if t.API == nil {
			return fmt.Errorf("tool %s: webhook tools require an api spec", t.Name)
		}
		if err := t.API.Validate(); err != nil {
			return fmt.Errorf("tool %s: %w", t.Name, err)
		}
	default:
		return fmt.Errorf("tool %s: unknown kind %q", t.Name, t.Kind)
	}
	switch t.Mode {
	case "", ModeSync, ModeBackground:
	default:
		return fmt.Errorf("tool %s: unknown execution_mode %q", t.Name, t.Mode)
	}
	return nil
}

// LifecycleWebhook is a call-lifecycle notification endpoint (completion,
// metrics, evaluation). It is dispatched fire-and-forget by the host with the
// event payload as the single argument.
type LifecycleWebhook struct {
	URL               string            `json:"url"`
	Headers           map[string]string `json:"headers,omitempty"`
	TimeoutSeconds    int               `json:"timeout_seconds,omitempty"`
	RetryCount        int               `json:"retry_count,omitempty"`
	RetryDelaySeconds float64           `json:"retry_delay_seconds,omitempty"`
	Enabled           *bool             `json:"enabled,omitempty"`
}

// IsEnabled reports whether the webhook should be registered.
func (w *LifecycleWebhook) IsEnabled() bool {
	return w != nil && (w.Enabled == nil || *w.Enabled)
}

// ToToolDefinition expresses the webhook as a background tool so it flows
// through the same registry, executor and status store as every other tool.
func (w *LifecycleWebhook) ToToolDefinition(name string) ToolDefinition {
	return ToolDefinition{
		ID:          name,
		Name:        name,
		Description: fmt.Sprintf("Deliver the %s event payload", name),
		Kind:        KindWebhook,
		Mode:        ModeBackground,
		API: &APICallSpec{
			URL:               w.URL,
			Method:            "POST",
			Headers:           w.Headers,
			Body:              "{{arg.payload}}",
			TimeoutSeconds:    w.TimeoutSeconds,
			RetryCount:        w.RetryCount,
			RetryDelaySeconds: w.RetryDelaySeconds,
			Args: []ArgumentSpec{
				{Name: "payload", Description: "Event payload", Type: "object", Required: true},
			},
		},
	}
}

// AgentDefinition is the declarative description of one agent instance as far
// as the tool engine is concerned.
type AgentDefinition struct {
	AgentID     string           `json:"agent_id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Version     string           `json:"version,omitempty"`
	Tools       []ToolDefinition `json:"tools"`

	CompletionWebhook *LifecycleWebhook `json:"completion_webhook,omitempty"`
	MetricsWebhook    *LifecycleWebhook `json:"metrics_webhook,omitempty"`
	EvaluationWebhook *LifecycleWebhook `json:"evaluation_webhook,omitempty"`
}

// Lifecycle webhook tool names.
const (
	CompletionWebhookTool = "completion_webhook"
	MetricsWebhookTool    = "metrics_webhook"
	EvaluationWebhookTool = "evaluation_webhook"
)

// Validate checks the definition and every tool in it.
func (a *AgentDefinition) Validate() error {
	if a.AgentID == "" {
		return fmt.Errorf("agent_id is required")
	}
	if a.Name == "" {
		return fmt.Errorf("agent %s: name is required", a.AgentID)
	}
	seen := make(map[string]bool, len(a.Tools))
	for i := range a.Tools {
		t := &a.Tools[i]
		if err := t.Validate(); err != nil {
			return fmt.Errorf("agent %s: %w", a.AgentID, err)
		}
		if seen[t.Name] {
			return fmt.Errorf("agent %s: duplicate tool name %q", a.AgentID, t.Name)
		}
		seen[t.Name] = true
	}
	for name, hook := range a.lifecycleHooks() {
		if !hook.IsEnabled() {
			continue
		}
		def := hook.ToToolDefinition(name)
		if err := def.Validate(); err != nil {
			return fmt.Errorf("agent %s: %w", a.AgentID, err)
		}
		if seen[name] {
			return fmt.Errorf("agent %s: tool name %q is reserved for a lifecycle webhook", a.AgentID, name)
		}
	}
	return nil
}

// AllTools returns the declared tools plus the enabled lifecycle webhooks
// expressed as tool definitions.
func (a *AgentDefinition) AllTools() []ToolDefinition {
	out := make([]ToolDefinition, 0, len(a.Tools)+3)
	out = append(out, a.Tools...)
	for name, hook := range a.lifecycleHooks() {
		if hook.IsEnabled() {
			out = append(out, hook.ToToolDefinition(name))
		}
	}
	return out
}

func (a *AgentDefinition) lifecycleHooks() map[string]*LifecycleWebhook {
	return map[string]*LifecycleWebhook{
		CompletionWebhookTool: a.CompletionWebhook,
		MetricsWebhookTool:    a.MetricsWebhook,
		EvaluationWebhookTool: a.EvaluationWebhook,
	}
}
