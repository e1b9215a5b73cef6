package patch_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesainslie/modloader/pkg/modloader/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signatureOffset = 12_000_000

// writeExecutable creates name in dir with sig at signatureOffset and
// deterministic filler elsewhere.
func writeExecutable(t *testing.T, dir, name string, sig []byte) (string, []byte) {
	t.Helper()
	data := make([]byte, signatureOffset+4096)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if sig != nil {
		copy(data[signatureOffset:], sig)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o755))
	return path, data
}

func TestStatus_Scenario(t *testing.T) {
	dir := t.TempDir()
	path, original := writeExecutable(t, dir, "slw.exe", patch.SignatureUnpatched)

	e := patch.New(dir)

	st, err := e.Status()
	require.NoError(t, err)
	assert.Equal(t, patch.Unpatched, st)

	outcome, err := e.Install()
	require.NoError(t, err)
	assert.Equal(t, patch.Applied, outcome)

	st, err = e.Status()
	require.NoError(t, err)
	assert.Equal(t, patch.Patched, st)

	// Only the signature bytes changed.
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, len(original))
	assert.Equal(t, patch.SignaturePatched, got[signatureOffset:signatureOffset+8])
	assert.True(t, bytes.Equal(original[:signatureOffset], got[:signatureOffset]))
	assert.True(t, bytes.Equal(original[signatureOffset+8:], got[signatureOffset+8:]))

	// The stock executable was kept as the backup.
	backup, err := os.ReadFile(filepath.Join(dir, "slw_Backup.exe"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(original, backup))
}

func TestInstall_AlreadyPatchedWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path, original := writeExecutable(t, dir, "SonicGenerations.exe", patch.SignaturePatched)

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, old, old))

	outcome, err := patch.New(dir).Install()
	require.NoError(t, err)
	assert.Equal(t, patch.AlreadyApplied, outcome)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "mtime changed")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(original, got))

	_, err = os.Stat(filepath.Join(dir, "SonicGenerations_Backup.exe"))
	assert.True(t, os.IsNotExist(err), "no backup expected")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUninstall_RestoresOriginalBytes(t *testing.T) {
	dir := t.TempDir()
	path, original := writeExecutable(t, dir, "slw.exe", patch.SignatureUnpatched)
	e := patch.New(dir)

	_, err := e.Install()
	require.NoError(t, err)

	outcome, err := e.Uninstall()
	require.NoError(t, err)
	assert.Equal(t, patch.Applied, outcome)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(original, got))

	st, err := e.Status()
	require.NoError(t, err)
	assert.Equal(t, patch.Unpatched, st)

	outcome, err = e.Uninstall()
	require.NoError(t, err)
	assert.Equal(t, patch.AlreadyApplied, outcome)
}

func TestInstall_ExistingBackupIsKept(t *testing.T) {
	dir := t.TempDir()
	_, original := writeExecutable(t, dir, "slw.exe", patch.SignatureUnpatched)
	e := patch.New(dir)

	_, err := e.Install()
	require.NoError(t, err)
	_, err = e.Uninstall()
	require.NoError(t, err)

	// Mark the backup so a rewrite would be visible.
	backupPath := filepath.Join(dir, "slw_Backup.exe")
	marked := append([]byte(nil), original...)
	marked[0] ^= 0xff
	require.NoError(t, os.WriteFile(backupPath, marked, 0o755))

	outcome, err := e.Install()
	require.NoError(t, err)
	assert.Equal(t, patch.Applied, outcome)

	backup, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(marked, backup), "existing backup must not be replaced")

	st, err := e.Status()
	require.NoError(t, err)
	assert.Equal(t, patch.Patched, st)
}

func TestInstall_KeepsFileMode(t *testing.T) {
	dir := t.TempDir()
	path, _ := writeExecutable(t, dir, "slw.exe", patch.SignatureUnpatched)
	require.NoError(t, os.Chmod(path, 0o750))

	_, err := patch.New(dir).Install()
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())
}

func TestSignatureNotFound(t *testing.T) {
	dir := t.TempDir()
	path, original := writeExecutable(t, dir, "slw.exe", nil)
	e := patch.New(dir)

	st, err := e.Status()
	require.NoError(t, err)
	assert.Equal(t, patch.Unknown, st)

	for name, op := range map[string]func() (patch.Outcome, error){
		"install":   e.Install,
		"uninstall": e.Uninstall,
	} {
		t.Run(name, func(t *testing.T) {
			outcome, err := op()
			require.Error(t, err)
			assert.True(t, errors.Is(err, patch.ErrSignatureNotFound))
			assert.Equal(t, patch.NotApplied, outcome)

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(original, got))
		})
	}
}

func TestSignatureBeforeScanStartIsIgnored(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, patch.ScanStart+64)
	copy(data[100:], patch.SignatureUnpatched)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slw.exe"), data, 0o644))

	st, err := patch.New(dir).Status()
	require.NoError(t, err)
	assert.Equal(t, patch.Unknown, st)
}

func TestTarget(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		e := patch.New(t.TempDir())
		_, err := e.Target()
		assert.True(t, errors.Is(err, patch.ErrTargetNotFound))

		st, err := e.Status()
		assert.Equal(t, patch.Unknown, st)
		assert.True(t, errors.Is(err, patch.ErrTargetNotFound))

		_, err = e.Install()
		assert.True(t, errors.Is(err, patch.ErrTargetNotFound))
	})

	t.Run("generations preferred", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "slw.exe"), nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "SonicGenerations.exe"), nil, 0o644))

		target, err := patch.New(dir).Target()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "SonicGenerations.exe"), target.Path)
		assert.Equal(t, filepath.Join(dir, "SonicGenerations_Backup.exe"), target.Backup)
		assert.Equal(t, "Sonic Generations", target.Game())
	})

	t.Run("lost world", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "slw.exe"), nil, 0o644))

		target, err := patch.New(dir).Target()
		require.NoError(t, err)
		assert.Equal(t, "Sonic Lost World", target.Game())
	})

	t.Run("resolved on every call", func(t *testing.T) {
		dir := t.TempDir()
		e := patch.New(dir)
		_, err := e.Target()
		require.Error(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "slw.exe"), nil, 0o644))
		_, err = e.Target()
		require.NoError(t, err)
	})
}

func TestToggle(t *testing.T) {
	dir := t.TempDir()
	writeExecutable(t, dir, "slw.exe", patch.SignatureUnpatched)
	e := patch.New(dir)

	st, err := e.Toggle()
	require.NoError(t, err)
	assert.Equal(t, patch.Patched, st)

	st, err = e.Toggle()
	require.NoError(t, err)
	assert.Equal(t, patch.Unpatched, st)
}

func TestBackupPath(t *testing.T) {
	assert.Equal(t, "/g/slw_Backup.exe", patch.BackupPath("/g/slw.exe"))
	assert.Equal(t, "SonicGenerations_Backup.exe", patch.BackupPath("SonicGenerations.exe"))
}

func TestStateAndOutcomeStrings(t *testing.T) {
	assert.Equal(t, "patched", patch.Patched.String())
	assert.Equal(t, "unpatched", patch.Unpatched.String())
	assert.Equal(t, "unknown", patch.Unknown.String())
	assert.Equal(t, "already applied", patch.AlreadyApplied.String())
}
