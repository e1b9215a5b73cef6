package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Console    string            `mapstructure:"console"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// HistoryConfig configures the operation journal.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// CacheConfig configures the signature offset cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// UpdateConfig configures update checks.
type UpdateConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config represents the application configuration.
type Config struct {
	// GameDir holds SonicGenerations.exe or slw.exe.
	GameDir string `mapstructure:"game_dir"`

	// ModsDir is the mods root. Empty means <GameDir>/mods.
	ModsDir string `mapstructure:"mods_dir"`

	Output string `mapstructure:"output"`

	// Trash moves removed mods to the desktop trash instead of deleting them.
	Trash bool `mapstructure:"trash"`

	History HistoryConfig `mapstructure:"history"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Update  UpdateConfig  `mapstructure:"update"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ResolvedModsDir returns ModsDir, defaulting to the mods folder of GameDir.
func (c *Config) ResolvedModsDir() string {
	if c.ModsDir != "" {
		return c.ModsDir
	}
	return filepath.Join(c.GameDir, DefaultModsDirName)
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("game_dir", DefaultGameDir)
	v.SetDefault("mods_dir", "")
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("trash", true)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", HistoryDir())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", OffsetCacheDir())

	v.SetDefault("update.timeout", DefaultUpdateTimeout)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.console", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", false)
	v.SetDefault("logging.components", map[string]string{
		"registry": "info",
		"patch":    "info",
		"watcher":  "warn",
	})
}

// Load reads configuration from cfgFile, or from config.yaml in ConfigDir
// when cfgFile is empty, then applies MODLOADER_ environment overrides.
// A missing config file, named or not, is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	return LoadInto(v, cfgFile)
}

// LoadInto is Load on a caller-supplied viper instance, so command-line
// flags bound to v take part.
func LoadInto(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.GameDir, &cfg.ModsDir, &cfg.History.Path, &cfg.Cache.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	return &cfg, nil
}

// ConfigDir returns $XDG_CONFIG_HOME/modloader.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "modloader")
	}
	return filepath.Join(xdg.ConfigHome, "modloader")
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns $XDG_DATA_HOME/modloader.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "modloader")
	}
	return filepath.Join(xdg.DataHome, "modloader")
}

// CacheDir returns $XDG_CACHE_HOME/modloader.
func CacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "modloader")
	}
	return filepath.Join(xdg.CacheHome, "modloader")
}

// HistoryDir returns the default journal directory.
func HistoryDir() string {
	return filepath.Join(DataDir(), "history")
}

// OffsetCacheDir returns the default offset cache directory.
func OffsetCacheDir() string {
	return filepath.Join(CacheDir(), "offsets")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// WriteDefault writes a commented default config to path if no file exists
// there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# Mod loader configuration

# Directory containing SonicGenerations.exe or slw.exe
game_dir: %s

# Mods root (empty means <game_dir>/mods)
mods_dir: ""

# Default output format: pretty, plain, json, jsonl, yaml, tsv, csv, markdown, titles, template
output: %s

# Move removed mods to the desktop trash instead of deleting them
trash: true

# Journal of saves, patches and removals
history:
  enabled: true
  path: %s
  retention_days: %d

# Remembers where the loader signature sits in the executable
cache:
  enabled: true
  path: %s

update:
  timeout: %s

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/modloader/modloader.log)
  path: ""
  # Also log to stderr at this level (empty disables)
  console: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: false
  components:
    registry: info
    patch: info
    watcher: warn
`, DefaultGameDir, DefaultOutput, HistoryDir(), DefaultRetentionDays, OffsetCacheDir(), DefaultUpdateTimeout)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}
	return true, nil
}
