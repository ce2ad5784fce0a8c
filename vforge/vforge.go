package vforge

// Application-wide defaults shared by the config package and hosts embedding
// the engine.
const (
	DefaultAppName = "voiceforge"

	DefaultConfigPath = "/etc/voiceforge"
	DefaultDataDir    = ".voiceforge"

	// DefaultAgentsDir is where agent definition JSON files are discovered
	// when the config does not name a directory.
	DefaultAgentsDir = "agents"

	// DefaultDatabasePath holds the embedded task-status database.
	DefaultDatabasePath = ".voiceforge/tasks.db"
)
