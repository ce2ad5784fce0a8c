package engineports

import (
	"context"
	"time"
)

// ToolSpec describes a callable tool as advertised to the reasoning component.
type ToolSpec struct {
	Name        string // unique dispatch key and model-facing function name
	Description string // concise doc for model selection
	JSONSchema  []byte // JSON schema for the model-supplied arguments
}

// Invocation is the ephemeral record created for a single tool call.
type Invocation struct {
	ID        string         // unique per call
	Tool      string         // dispatch name
	Args      map[string]any // model-supplied arguments
	Context   map[string]any // session-scoped values from the hosting runtime
	StartedAt time.Time
}

// Outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Outcome is the single normalized result shape crossing the dispatch
// boundary. No raw error ever escapes to the hosting runtime.
type Outcome struct {
	Status  string `json:"status"`
	Payload any    `json:"payload,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// Tool binds a name, description and argument schema to an invocable
// capability.
type Tool interface {
	Spec() ToolSpec
	Invoke(ctx context.Context, inv *Invocation) Outcome
}
