package engine

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/voiceforge/voiceforge/vforge/agentdef"
	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

// FactoryOptions carries the ports and knobs an agent's engine is assembled
// from. Nil ports degrade to no-ops so a minimal wiring still works.
type FactoryOptions struct {
	MaxConcurrentCalls int
	HTTPClient         *http.Client
	RateLimiter        engineports.RateLimiter
	Cache              engineports.Cache
	Tracer             engineports.Tracer
	TaskStore          engineports.TaskStore
	Logger             zerolog.Logger
}

// Agent is one fully wired agent instance: its sealed registry plus the
// shared executor and background runner behind it.
type Agent struct {
	Definition *agentdef.AgentDefinition
	Registry   *Registry
	Runner     *TaskRunner
	Executor   *Executor
}

// Dispatch routes one tool call for this agent.
func (a *Agent) Dispatch(ctx context.Context, tool string, args, sessionCtx map[string]any) engineports.Outcome {
	return a.Registry.Dispatch(ctx, tool, args, sessionCtx)
}

// Drain waits for in-flight background tasks. Call on agent shutdown.
func (a *Agent) Drain() { a.Runner.Wait() }

// BuildAgent assembles the engine for one agent definition. A tool that
// fails to build is logged and skipped; the agent comes up with the tools
// that did build. Only an invalid definition as a whole is fatal.
func BuildAgent(def *agentdef.AgentDefinition, natives map[string]NativeTool, opts FactoryOptions) (*Agent, error) {
	if def == nil {
		return nil, configErrf("nil agent definition")
	}
	if err := def.Validate(); err != nil {
		return nil, configErrf("%v", err)
	}
	logger := opts.Logger.With().Str("agent_id", def.AgentID).Logger()

	exec := NewExecutor(ExecutorOptions{
		MaxConcurrent: opts.MaxConcurrentCalls,
		Client:        opts.HTTPClient,
		Limiter:       opts.RateLimiter,
		Cache:         opts.Cache,
		Tracer:        opts.Tracer,
		Logger:        logger,
	})
	runner := NewTaskRunner(opts.TaskStore, opts.Tracer, logger)
	builder := NewBuilder(def.AgentID, exec, runner, natives, logger)
	registry := NewRegistry(def.AgentID, opts.Tracer, logger)

	for _, toolDef := range def.AllTools() {
		if !toolDef.IsEnabled() {
			logger.Debug().Str("tool", toolDef.Name).Msg("tool disabled, skipping")
			continue
		}
		tool, err := builder.Build(toolDef)
		if err != nil {
			logger.Error().Str("tool", toolDef.Name).Err(err).Msg("tool failed to build, skipping")
			continue
		}
		if err := registry.Register(tool); err != nil {
			if errors.Is(err, ErrToolCollision) {
				logger.Error().Str("tool", toolDef.Name).Msg("tool name collision, skipping")
				continue
			}
			return nil, err
		}
		logger.Debug().Str("tool", toolDef.Name).Str("kind", string(toolDef.Kind)).Msg("tool registered")
	}
	registry.Seal()

	logger.Info().
		Int("tools", len(registry.Specs())).
		Str("agent", def.Name).
		Msg("agent engine ready")

	return &Agent{
		Definition: def,
		Registry:   registry,
		Runner:     runner,
		Executor:   exec,
	}, nil
}
