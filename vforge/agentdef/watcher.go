package agentdef

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reports changed agent definition files so the host can rebuild the
// affected agents without a restart. Events are debounced per file; editors
// tend to fire several writes for one save.
type Watcher struct {
	dir      string
	loader   *Loader
	logger   zerolog.Logger
	debounce time.Duration
	changes  chan *AgentDefinition
}

// NewWatcher builds a watcher over dir using loader to parse changed files.
func NewWatcher(dir string, loader *Loader, logger zerolog.Logger) *Watcher {
	return &Watcher{
		dir:      dir,
		loader:   loader,
		logger:   logger,
		debounce: 250 * time.Millisecond,
		changes:  make(chan *AgentDefinition, 8),
	}
}

// Changes delivers reloaded definitions. Closed when Run returns.
func (w *Watcher) Changes() <-chan *AgentDefinition { return w.changes }

// Run watches until ctx is cancelled. Definitions that fail to reload are
// logged and dropped; the previously loaded agent keeps running.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	defer close(w.changes)

	if err := fw.Add(w.dir); err != nil {
		return err
	}

	pending := make(map[string]*time.Timer)
	fire := make(chan string, 8)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			path := ev.Name
			if t, exists := pending[path]; exists {
				t.Stop()
			}
			pending[path] = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- path:
				case <-ctx.Done():
				}
			})
		case path := <-fire:
			delete(pending, path)
			def, err := w.loader.LoadFile(path)
			if err != nil {
				w.logger.Error().Err(err).Str("file", filepath.Base(path)).Msg("reload failed, keeping previous definition")
				continue
			}
			w.logger.Info().Str("agent_id", def.AgentID).Str("file", filepath.Base(path)).Msg("agent definition changed")
			select {
			case w.changes <- def:
			case <-ctx.Done():
				return ctx.Err()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("definition watcher error")
		}
	}
}
