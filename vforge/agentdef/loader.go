// Package agentdef defines the declarative agent and tool model and loads it
// from JSON definition files.
package agentdef

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// ${NAME} or ${NAME:-default}. Applied to secret-bearing string fields after
// parse, so operators keep credentials out of definition files.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// Loader reads agent definitions from disk.
type Loader struct {
	logger zerolog.Logger
}

// NewLoader builds a loader. A .env file next to the working directory is
// picked up once so ${VAR} references resolve in development too.
func NewLoader(logger zerolog.Logger) *Loader {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Debug().Err(err).Msg("no .env file loaded")
	}
	return &Loader{logger: logger}
}

// LoadFile parses and validates one agent definition.
func (l *Loader) LoadFile(path string) (*AgentDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent definition %s: %w", path, err)
	}
	var def AgentDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parse agent definition %s: %w", path, err)
	}
	if err := expandDefinitionEnv(&def); err != nil {
		return nil, fmt.Errorf("agent definition %s: %w", path, err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("agent definition %s: %w", path, err)
	}
	return &def, nil
}

// LoadDir loads every *.json definition in dir, keyed by agent id. A file
// that fails to load is logged and skipped so one broken definition cannot
// take the others down.
func (l *Loader) LoadDir(dir string) (map[string]*AgentDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read agents dir %s: %w", dir, err)
	}
	out := make(map[string]*AgentDefinition)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		def, err := l.LoadFile(path)
		if err != nil {
			l.logger.Error().Err(err).Str("file", path).Msg("skipping agent definition")
			continue
		}
		if prev, dup := out[def.AgentID]; dup {
			l.logger.Error().
				Str("agent_id", def.AgentID).
				Str("file", path).
				Str("kept", prev.Name).
				Msg("duplicate agent id, keeping first definition")
			continue
		}
		out[def.AgentID] = def
		l.logger.Info().Str("agent_id", def.AgentID).Int("tools", len(def.Tools)).Msg("agent definition loaded")
	}
	return out, nil
}

// expandDefinitionEnv substitutes ${VAR} references in the fields that carry
// operator-supplied secrets and endpoints. A reference without a default
// must resolve; a missing variable is a load error, not a silent empty
// string.
func expandDefinitionEnv(def *AgentDefinition) error {
	for i := range def.Tools {
		t := &def.Tools[i]
		for k, v := range t.Constants {
			if s, ok := v.(string); ok {
				ev, err := expandEnv(s)
				if err != nil {
					return fmt.Errorf("tool %s constant %s: %w", t.Name, k, err)
				}
				t.Constants[k] = ev
			}
		}
		if t.API != nil {
			if err := expandCallSpecEnv(t.API); err != nil {
				return fmt.Errorf("tool %s: %w", t.Name, err)
			}
		}
	}
	for _, hook := range []*LifecycleWebhook{def.CompletionWebhook, def.MetricsWebhook, def.EvaluationWebhook} {
		if hook == nil {
			continue
		}
		ev, err := expandEnv(hook.URL)
		if err != nil {
			return err
		}
		hook.URL = ev
		for k, v := range hook.Headers {
			ev, err := expandEnv(v)
			if err != nil {
				return fmt.Errorf("webhook header %s: %w", k, err)
			}
			hook.Headers[k] = ev
		}
	}
	return nil
}

func expandCallSpecEnv(api *APICallSpec) error {
	ev, err := expandEnv(api.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	api.URL = ev
	for k, v := range api.Headers {
		ev, err := expandEnv(v)
		if err != nil {
			return fmt.Errorf("header %s: %w", k, err)
		}
		api.Headers[k] = ev
	}
	for k, v := range api.Query {
		ev, err := expandEnv(v)
		if err != nil {
			return fmt.Errorf("query %s: %w", k, err)
		}
		api.Query[k] = ev
	}
	return nil
}

func expandEnv(s string) (string, error) {
	var expandErr error
	out := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name, hasDefault, def := sub[1], sub[2] != "", sub[3]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if hasDefault {
			return def
		}
		if expandErr == nil {
			expandErr = fmt.Errorf("environment variable %s is not set", name)
		}
		return match
	})
	if expandErr != nil {
		return "", expandErr
	}
	return out, nil
}
