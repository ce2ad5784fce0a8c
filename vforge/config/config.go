package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/voiceforge/voiceforge/vforge"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Voiceforge VoiceforgeConfig `mapstructure:"voiceforge"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// DatabaseConfig stores task-store connection details.
type DatabaseConfig struct {
	DSN  string `mapstructure:"dsn"`
	Type string `mapstructure:"type"`
	// Embedded-only configuration
	DataDir string `mapstructure:"data_dir"` // Directory for database files
}

// VoiceforgeConfig stores application-level settings.
type VoiceforgeConfig struct {
	AgentsDir string         `mapstructure:"agents_dir"` // Directory of agent definition files
	WatchDefs bool           `mapstructure:"watch_defs"` // Reload agents on definition changes
	Database  DatabaseConfig `mapstructure:"database"`
}

// EngineConfig stores tool-engine settings.
type EngineConfig struct {
	// Outbound call settings
	ToolConcurrency       int `mapstructure:"tool_concurrency"`        // Max concurrent outbound calls per agent
	DefaultTimeoutSeconds int `mapstructure:"default_timeout_seconds"` // Per-attempt timeout when a tool sets none

	// Cache settings
	CacheEnabled  bool `mapstructure:"cache_enabled"`  // Enable GET response caching
	CacheCapacity int  `mapstructure:"cache_capacity"` // LRU cache capacity

	// Rate limiting
	RateLimitEnabled bool    `mapstructure:"rate_limit_enabled"` // Enable outbound rate limiting
	RateLimitRPS     float64 `mapstructure:"rate_limit_rps"`     // Sustained calls per second
	RateLimitBurst   int     `mapstructure:"rate_limit_burst"`   // Burst capacity

	// Telemetry
	EnableTracing bool `mapstructure:"enable_tracing"` // Enable span logging

	// Background tasks
	TaskStoreEnabled bool `mapstructure:"task_store_enabled"` // Persist background-task status
}

// LoggingConfig stores logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // trace, debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // Console writer instead of JSON
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("..")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set default values
	viper.SetDefault("voiceforge.agents_dir", internal.DefaultAgentsDir)
	viper.SetDefault("voiceforge.watch_defs", true)
	viper.SetDefault("voiceforge.database.dsn", "file:"+internal.DefaultDatabasePath)
	viper.SetDefault("voiceforge.database.type", "libsql")
	viper.SetDefault("voiceforge.database.data_dir", internal.DefaultDataDir)

	// Engine defaults
	viper.SetDefault("engine.tool_concurrency", 5)
	viper.SetDefault("engine.default_timeout_seconds", 30)
	viper.SetDefault("engine.cache_enabled", false)
	viper.SetDefault("engine.cache_capacity", 256)
	viper.SetDefault("engine.rate_limit_enabled", false)
	viper.SetDefault("engine.rate_limit_rps", 10)
	viper.SetDefault("engine.rate_limit_burst", 5)
	viper.SetDefault("engine.enable_tracing", true)
	viper.SetDefault("engine.task_store_enabled", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.pretty", false)

	viper.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. engine.tool_concurrency becomes ENGINE_TOOL_CONCURRENCY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and environment variables apply.
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
