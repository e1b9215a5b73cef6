// Package config provides configuration management for the mod loader.
package config

// Default configuration values.
const (
	// DefaultGameDir is the directory holding the game executable.
	DefaultGameDir = "."

	// DefaultModsDirName is the mods root inside the game directory.
	DefaultModsDirName = "mods"

	// DefaultOutput is the default formatter for mod lists.
	DefaultOutput = "pretty"

	// DefaultRetentionDays is the number of days history entries are kept.
	DefaultRetentionDays = 90

	// DefaultUpdateTimeout bounds one update check.
	DefaultUpdateTimeout = "30s"

	// EnvPrefix prefixes environment overrides, e.g. MODLOADER_GAME_DIR.
	EnvPrefix = "MODLOADER"
)
