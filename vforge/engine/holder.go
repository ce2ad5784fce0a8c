package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

// RunFunc is the expanded, executable body of a tool.
type RunFunc func(ctx context.Context, inv *engineports.Invocation) (any, error)

// Holder wraps a tool body for synchronous dispatch. Arguments are validated
// before the body runs, and a panicking body surfaces as an ExecutionError
// outcome rather than crossing the boundary.
type Holder struct {
	spec      engineports.ToolSpec
	validator *ArgumentValidator
	run       RunFunc
	wait      bool
	ack       string
	runner    *TaskRunner
	agentID   string
	logger    zerolog.Logger
}

// HolderOptions configures a synchronous holder. Runner is required only
// when Wait is false.
type HolderOptions struct {
	Spec      engineports.ToolSpec
	Validator *ArgumentValidator
	Run       RunFunc
	Wait      bool
	Ack       string
	Runner    *TaskRunner
	AgentID   string
	Logger    zerolog.Logger
}

// NewHolder builds a synchronous holder.
func NewHolder(opts HolderOptions) *Holder {
	if opts.Ack == "" {
		opts.Ack = fmt.Sprintf("%s started in background", opts.Spec.Name)
	}
	return &Holder{
		spec:      opts.Spec,
		validator: opts.Validator,
		run:       opts.Run,
		wait:      opts.Wait,
		ack:       opts.Ack,
		runner:    opts.Runner,
		agentID:   opts.AgentID,
		logger:    opts.Logger,
	}
}

func (h *Holder) Spec() engineports.ToolSpec { return h.spec }

// Invoke validates the arguments, then either blocks on the body or detaches
// it when the tool opted out of waiting for the result.
func (h *Holder) Invoke(ctx context.Context, inv *engineports.Invocation) engineports.Outcome {
	if h.validator != nil {
		if err := h.validator.Validate(inv.Args); err != nil {
			h.logger.Debug().
				Str("tool", h.spec.Name).
				Fields(map[string]any{"args": RedactMap(inv.Args)}).
				Err(err).
				Msg("argument validation failed")
			return errorOutcome(err)
		}
	}

	if !h.wait {
		if h.runner == nil {
			return errorOutcome(configErrf("tool %s detaches but has no task runner", h.spec.Name))
		}
		h.runner.Schedule(inv.ID, h.agentID, h.spec.Name, h.taskFunc(inv))
		return successOutcome(map[string]any{"message": h.ack, "task_id": inv.ID})
	}

	var payload any
	var runErr error
	recovered := panics.Try(func() {
		payload, runErr = h.run(ctx, inv)
	})
	if recovered != nil {
		h.logger.Error().
			Str("tool", h.spec.Name).
			Str("panic", recovered.String()).
			Msg("tool body panicked")
		return errorOutcome(execErrf("tool %s failed unexpectedly", h.spec.Name))
	}
	if runErr != nil {
		return errorOutcome(runErr)
	}
	return successOutcome(payload)
}

func (h *Holder) taskFunc(inv *engineports.Invocation) TaskFunc {
	detached := *inv
	return func(ctx context.Context) engineports.Outcome {
		payload, err := h.run(ctx, &detached)
		if err != nil {
			return errorOutcome(err)
		}
		return successOutcome(payload)
	}
}

// BackgroundHolder wraps a tool body for fire-and-forget dispatch. Invoke
// returns an acknowledgment immediately; the body's outcome is recorded by
// the task runner and never surfaces to the caller.
type BackgroundHolder struct {
	spec      engineports.ToolSpec
	validator *ArgumentValidator
	run       RunFunc
	ack       string
	runner    *TaskRunner
	agentID   string
	logger    zerolog.Logger
}

// NewBackgroundHolder builds a fire-and-forget holder.
func NewBackgroundHolder(opts HolderOptions) *BackgroundHolder {
	if opts.Ack == "" {
		opts.Ack = fmt.Sprintf("%s started in background", opts.Spec.Name)
	}
	return &BackgroundHolder{
		spec:      opts.Spec,
		validator: opts.Validator,
		run:       opts.Run,
		ack:       opts.Ack,
		runner:    opts.Runner,
		agentID:   opts.AgentID,
		logger:    opts.Logger,
	}
}

func (h *BackgroundHolder) Spec() engineports.ToolSpec { return h.spec }

// Invoke validates synchronously so a bad call still fails fast, then
// schedules the body and acknowledges.
func (h *BackgroundHolder) Invoke(ctx context.Context, inv *engineports.Invocation) engineports.Outcome {
	if h.validator != nil {
		if err := h.validator.Validate(inv.Args); err != nil {
			return errorOutcome(err)
		}
	}
	detached := *inv
	h.runner.Schedule(inv.ID, h.agentID, h.spec.Name, func(ctx context.Context) engineports.Outcome {
		payload, err := h.run(ctx, &detached)
		if err != nil {
			return errorOutcome(err)
		}
		return successOutcome(payload)
	})
	return successOutcome(map[string]any{"message": h.ack, "task_id": inv.ID})
}
