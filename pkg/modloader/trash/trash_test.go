package trash

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Alpha")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mod.ini"), []byte("[Desc]\nTitle=Alpha\n"), 0o644))
	return dir
}

func noTools(string) (string, error) {
	return "", errors.New("not found")
}

func TestRemove_Permanent(t *testing.T) {
	dir := modDir(t)
	r := New(true)
	r.lookPath = func(string) (string, error) {
		t.Fatal("trash tools must not be consulted")
		return "", nil
	}

	method, err := r.Remove(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, Deleted, method)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestRemove_FallsBackWithoutTools(t *testing.T) {
	dir := modDir(t)
	r := New(false)
	r.lookPath = noTools

	method, err := r.Remove(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, Deleted, method)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestRemove_UsesFirstWorkingTool(t *testing.T) {
	dir := modDir(t)
	r := New(false)
	r.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }

	var calls []string
	r.run = func(_ context.Context, name string, args ...string) error {
		calls = append(calls, name)
		if name == "/usr/bin/gio" {
			return errors.New("gio: no trash on this mount")
		}
		assert.Equal(t, []string{dir}, args)
		return os.RemoveAll(args[0])
	}

	method, err := r.Remove(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, Trashed, method)
	assert.Equal(t, []string{"/usr/bin/gio", "/usr/bin/trash-put"}, calls)
}

func TestRemove_Nonexistent(t *testing.T) {
	_, err := New(true).Remove(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFunc(t *testing.T) {
	dir := modDir(t)
	r := New(false)
	r.lookPath = noTools

	require.NoError(t, r.Func(context.Background())(dir))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestFallbackDelete_Directory(t *testing.T) {
	dir := modDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "disk", "bb"), 0o755))

	require.NoError(t, fallbackDelete(dir))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
