package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir()) // no config file in reach

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Engine.ToolConcurrency)
	assert.Equal(t, 30, cfg.Engine.DefaultTimeoutSeconds)
	assert.True(t, cfg.Engine.EnableTracing)
	assert.True(t, cfg.Engine.TaskStoreEnabled)
	assert.False(t, cfg.Engine.RateLimitEnabled)
	assert.False(t, cfg.Engine.CacheEnabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  tool_concurrency: 12
  rate_limit_enabled: true
  rate_limit_rps: 2.5
logging:
  level: debug
  pretty: true
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Engine.ToolConcurrency)
	assert.True(t, cfg.Engine.RateLimitEnabled)
	assert.Equal(t, 2.5, cfg.Engine.RateLimitRPS)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, 30, cfg.Engine.DefaultTimeoutSeconds)
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(LoggingConfig{Level: "warn"})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	// unknown level falls back to info
	logger = NewLogger(LoggingConfig{Level: "shout"})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
