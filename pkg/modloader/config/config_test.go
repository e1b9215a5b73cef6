package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultGameDir, cfg.GameDir)
	assert.Equal(t, filepath.Join(".", "mods"), cfg.ResolvedModsDir())
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.True(t, cfg.Trash)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join(dir, "data", "modloader", "history"), cfg.History.Path)
	assert.Equal(t, DefaultRetentionDays, cfg.History.RetentionDays)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, filepath.Join(dir, "cache", "modloader", "offsets"), cfg.Cache.Path)
	assert.Equal(t, 30*time.Second, cfg.Update.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "10MB", cfg.Logging.Rotation.MaxSize)
	assert.Equal(t, "warn", cfg.Logging.Components["watcher"])
}

func TestLoad_FromFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
game_dir: ~/games/slw
output: json
trash: false
history:
  enabled: false
  retention_days: 7
cache:
  path: /tmp/offsets
update:
  timeout: 5s
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "games", "slw"), cfg.GameDir)
	assert.Equal(t, filepath.Join(dir, "games", "slw", "mods"), cfg.ResolvedModsDir())
	assert.Equal(t, "json", cfg.Output)
	assert.False(t, cfg.Trash)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, 7, cfg.History.RetentionDays)
	assert.Equal(t, "/tmp/offsets", cfg.Cache.Path)
	assert.Equal(t, 5*time.Second, cfg.Update.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_DefaultLocation(t *testing.T) {
	isolate(t)
	require.NoError(t, os.MkdirAll(ConfigDir(), 0o755))
	require.NoError(t, os.WriteFile(ConfigFile(), []byte("mods_dir: /srv/mods\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/mods", cfg.ResolvedModsDir())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("MODLOADER_GAME_DIR", "/opt/gens")
	t.Setenv("MODLOADER_HISTORY_RETENTION_DAYS", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/opt/gens", cfg.GameDir)
	assert.Equal(t, 3, cfg.History.RetentionDays)
}

func TestLoadInto_FlagsTakePrecedence(t *testing.T) {
	isolate(t)
	v := viper.New()
	v.Set("output", "tsv")

	cfg, err := LoadInto(v, "")
	require.NoError(t, err)
	assert.Equal(t, "tsv", cfg.Output)
}

func TestLoad_MissingNamedFile(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultOutput, cfg.Output)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("game_dir: [unterminated\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestWriteDefault(t *testing.T) {
	isolate(t)
	path := ConfigFile()

	created, err := WriteDefault(path)
	require.NoError(t, err)
	assert.True(t, created)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, HistoryDir(), cfg.History.Path)

	require.NoError(t, os.WriteFile(path, []byte("output: csv\n"), 0o644))
	created, err = WriteDefault(path)
	require.NoError(t, err)
	assert.False(t, created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "output: csv\n", string(data))
}

func TestExpandPath(t *testing.T) {
	dir := isolate(t)

	tests := []struct {
		in, want string
	}{
		{"~", dir},
		{"~/mods", filepath.Join(dir, "mods")},
		{"/abs", "/abs"},
		{"rel/~x", "rel/~x"},
		{"~user/x", "~user/x"},
	}
	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
