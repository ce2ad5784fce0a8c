package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

// Registry holds an agent's tool set. Registration happens during agent
// construction; Seal freezes the set, after which dispatch reads the map
// without locks.
type Registry struct {
	agentID string
	tracer  engineports.Tracer
	logger  zerolog.Logger
	tools   map[string]engineports.Tool
	sealed  bool
}

// NewRegistry builds an empty registry for one agent instance.
func NewRegistry(agentID string, tracer engineports.Tracer, logger zerolog.Logger) *Registry {
	return &Registry{
		agentID: agentID,
		tracer:  tracer,
		logger:  logger,
		tools:   make(map[string]engineports.Tool),
	}
}

// Register adds a tool. A name collision returns ErrToolCollision and leaves
// the registry unchanged; registering after Seal is a programming error.
func (r *Registry) Register(t engineports.Tool) error {
	if r.sealed {
		return configErrf("registry for agent %s is sealed", r.agentID)
	}
	name := t.Spec().Name
	if name == "" {
		return configErrf("tool has no name")
	}
	if _, exists := r.tools[name]; exists {
		return &Error{Kind: KindConfiguration, Message: "tool " + name + " already registered", Err: ErrToolCollision}
	}
	r.tools[name] = t
	return nil
}

// Seal freezes the tool set. Must be called before the registry is shared
// with the dispatch path.
func (r *Registry) Seal() { r.sealed = true }

// Specs returns the advertised tool specs, for handing to the reasoning
// component.
func (r *Registry) Specs() []engineports.ToolSpec {
	out := make([]engineports.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Spec())
	}
	return out
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (engineports.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Dispatch routes one call to its tool and returns the normalized outcome.
// An unknown name is a DispatchError outcome, not a panic or a raw error.
func (r *Registry) Dispatch(ctx context.Context, name string, args, sessionCtx map[string]any) engineports.Outcome {
	tool, ok := r.tools[name]
	if !ok {
		r.logger.Warn().Str("tool", name).Str("agent_id", r.agentID).Msg("dispatch to unknown tool")
		return errorOutcome(dispatchErrf("unknown tool %q", name))
	}

	inv := &engineports.Invocation{
		ID:        uuid.NewString(),
		Tool:      name,
		Args:      args,
		Context:   sessionCtx,
		StartedAt: time.Now().UTC(),
	}

	var endSpan func(error)
	if r.tracer != nil {
		ctx, endSpan = r.tracer.StartSpan(ctx, "tool.dispatch", map[string]any{
			"tool":          name,
			"invocation_id": inv.ID,
			"agent_id":      r.agentID,
		})
	}

	outcome := tool.Invoke(ctx, inv)

	elapsed := time.Since(inv.StartedAt)
	evt := r.logger.Info()
	if outcome.Status == engineports.StatusError {
		evt = r.logger.Warn()
	}
	evt.Str("tool", name).
		Str("invocation_id", inv.ID).
		Str("status", outcome.Status).
		Dur("elapsed", elapsed).
		Fields(map[string]any{"args": RedactMap(args)}).
		Msg("tool invocation")

	if endSpan != nil {
		if outcome.Status == engineports.StatusError {
			endSpan(&Error{Kind: outcome.Kind, Message: outcome.Message})
		} else {
			endSpan(nil)
		}
	}
	return outcome
}
