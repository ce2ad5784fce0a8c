// Package runtime wires configuration, storage and the tool engine into a
// running platform: it loads agent definitions, builds an engine per agent
// and keeps them fresh while definitions change on disk.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/voiceforge/voiceforge/vforge/agentdef"
	"github.com/voiceforge/voiceforge/vforge/config"
	"github.com/voiceforge/voiceforge/vforge/db"
	"github.com/voiceforge/voiceforge/vforge/engine"
	engineadapters "github.com/voiceforge/voiceforge/vforge/engine/adapters"
	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
	enginetools "github.com/voiceforge/voiceforge/vforge/engine/tools"
)

// Platform owns the shared infrastructure and the set of live agents.
type Platform struct {
	cfg    *config.Config
	logger zerolog.Logger
	loader *agentdef.Loader
	sqldb  *sql.DB

	factoryOpts engine.FactoryOptions
	natives     map[string]engine.NativeTool

	mu     sync.RWMutex
	agents map[string]*engine.Agent
}

// Options configures platform construction. CallControl may be nil when the
// host has no call session to expose.
type Options struct {
	Config      *config.Config
	Logger      zerolog.Logger
	CallControl enginetools.CallControl
	HTTPClient  *http.Client
}

// New assembles the platform: opens and migrates the task store when
// enabled, builds the engine ports from config and loads every agent
// definition from the agents directory.
func New(opts Options) (*Platform, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger := opts.Logger

	var taskStore engineports.TaskStore
	var sqldb *sql.DB
	if cfg.Engine.TaskStoreEnabled {
		var err error
		sqldb, err = db.Connect(databasePath(cfg), logger)
		if err != nil {
			return nil, fmt.Errorf("open task store: %w", err)
		}
		if err := db.Migrate(sqldb); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("migrate task store: %w", err)
		}
		taskStore = engineadapters.NewSQLTaskStore(sqldb)
	}

	var tracer engineports.Tracer = engineadapters.NopTracer{}
	if cfg.Engine.EnableTracing {
		tracer = engineadapters.NewZerologTracer(logger)
	}

	var limiter engineports.RateLimiter
	if cfg.Engine.RateLimitEnabled {
		limiter = engineadapters.NewTokenBucketLimiter(cfg.Engine.RateLimitRPS, cfg.Engine.RateLimitBurst)
	}

	var cache engineports.Cache
	if cfg.Engine.CacheEnabled {
		cache = engineadapters.NewLRUCache(cfg.Engine.CacheCapacity)
	}

	p := &Platform{
		cfg:    cfg,
		logger: logger,
		loader: agentdef.NewLoader(logger),
		sqldb:  sqldb,
		factoryOpts: engine.FactoryOptions{
			MaxConcurrentCalls: cfg.Engine.ToolConcurrency,
			HTTPClient:         opts.HTTPClient,
			RateLimiter:        limiter,
			Cache:              cache,
			Tracer:             tracer,
			TaskStore:          taskStore,
			Logger:             logger,
		},
		natives: enginetools.Natives(opts.CallControl),
		agents:  make(map[string]*engine.Agent),
	}

	defs, err := p.loader.LoadDir(cfg.Voiceforge.AgentsDir)
	if err != nil {
		p.Close()
		return nil, err
	}
	for id, def := range defs {
		agent, err := engine.BuildAgent(def, p.natives, p.factoryOpts)
		if err != nil {
			logger.Error().Err(err).Str("agent_id", id).Msg("agent failed to build, skipping")
			continue
		}
		p.agents[id] = agent
	}
	return p, nil
}

// Agent returns the live agent for id.
func (p *Platform) Agent(id string) (*engine.Agent, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.agents[id]
	return a, ok
}

// AgentIDs lists the live agents.
func (p *Platform) AgentIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.agents))
	for id := range p.agents {
		out = append(out, id)
	}
	return out
}

// Dispatch routes one tool call to the named agent.
func (p *Platform) Dispatch(ctx context.Context, agentID, tool string, args, sessionCtx map[string]any) engineports.Outcome {
	agent, ok := p.Agent(agentID)
	if !ok {
		return engineports.Outcome{
			Status:  engineports.StatusError,
			Kind:    engine.KindDispatch,
			Message: fmt.Sprintf("unknown agent %q", agentID),
		}
	}
	return agent.Dispatch(ctx, tool, args, sessionCtx)
}

// Watch rebuilds agents as their definition files change. Blocks until ctx
// ends; callers run it on its own goroutine. A no-op when watching is
// disabled in config.
func (p *Platform) Watch(ctx context.Context) error {
	if !p.cfg.Voiceforge.WatchDefs {
		<-ctx.Done()
		return ctx.Err()
	}
	watcher := agentdef.NewWatcher(p.cfg.Voiceforge.AgentsDir, p.loader, p.logger)

	go func() {
		for def := range watcher.Changes() {
			agent, err := engine.BuildAgent(def, p.natives, p.factoryOpts)
			if err != nil {
				p.logger.Error().Err(err).Str("agent_id", def.AgentID).Msg("rebuilt agent invalid, keeping previous")
				continue
			}
			p.mu.Lock()
			old := p.agents[def.AgentID]
			p.agents[def.AgentID] = agent
			p.mu.Unlock()
			if old != nil {
				go old.Drain()
			}
			p.logger.Info().Str("agent_id", def.AgentID).Msg("agent rebuilt from changed definition")
		}
	}()

	return watcher.Run(ctx)
}

// Close drains background tasks of every agent and releases the task store.
func (p *Platform) Close() error {
	p.mu.Lock()
	agents := make([]*engine.Agent, 0, len(p.agents))
	for _, a := range p.agents {
		agents = append(agents, a)
	}
	p.mu.Unlock()
	for _, a := range agents {
		a.Drain()
	}
	if p.sqldb != nil {
		return p.sqldb.Close()
	}
	return nil
}

func databasePath(cfg *config.Config) string {
	dsn := cfg.Voiceforge.Database.DSN
	if len(dsn) > 5 && dsn[:5] == "file:" {
		return dsn[5:]
	}
	return dsn
}
