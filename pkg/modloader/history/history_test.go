package history

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock returns a now func that advances by one second per call.
func clock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := current
		current = current.Add(time.Second)
		return t
	}
}

func newJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(filepath.Join(t.TempDir(), "history"))
	require.NoError(t, err)
	j.now = clock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return j
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New("")
	assert.Error(t, err)

	j, err := New(t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, j)
}

func TestJournal_RecordCreatesDirectory(t *testing.T) {
	t.Parallel()
	j := newJournal(t)

	entry, err := j.LogSave("/games/slw/mods/ModsDB.ini", []string{"Beta", "Alpha"})
	require.NoError(t, err)

	_, err = uuid.Parse(entry.ID)
	assert.NoError(t, err, "ID should be a UUID")
	assert.Equal(t, OpSave, entry.Operation)
	assert.Equal(t, []string{"Beta", "Alpha"}, entry.Mods)
	assert.Equal(t, "2 active", entry.Result)

	info, err := os.Stat(j.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestJournal_ListNewestFirst(t *testing.T) {
	t.Parallel()
	j := newJournal(t)

	first, err := j.LogSave("/mods/ModsDB.ini", []string{"Alpha"})
	require.NoError(t, err)
	second, err := j.LogPatch(OpInstall, "/g/slw.exe", "applied")
	require.NoError(t, err)
	third, err := j.LogRemove("/mods/Beta", "Beta", "trashed")
	require.NoError(t, err)

	entries, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, third.ID, entries[0].ID)
	assert.Equal(t, second.ID, entries[1].ID)
	assert.Equal(t, first.ID, entries[2].ID)

	limited, err := j.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestJournal_ListSkipsGarbage(t *testing.T) {
	t.Parallel()
	j := newJournal(t)

	_, err := j.LogPatch(OpUninstall, "/g/slw.exe", "applied")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(j.Dir(), "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(j.Dir(), "notes.txt"), []byte("x"), 0o644))

	entries, err := j.List(0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJournal_ListMissingDirectory(t *testing.T) {
	t.Parallel()
	j := newJournal(t)

	entries, err := j.List(10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestJournal_Get(t *testing.T) {
	t.Parallel()
	j := newJournal(t)

	entry, err := j.LogRemove("/mods/Beta", "Beta", "deleted")
	require.NoError(t, err)

	got, err := j.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Target, got.Target)
	assert.Equal(t, []string{"Beta"}, got.Mods)
	assert.True(t, entry.Timestamp.Equal(got.Timestamp))

	_, err = j.Get(uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = j.Get("")
	assert.Error(t, err)
}

func TestJournal_LogPatchRejectsOtherOperations(t *testing.T) {
	t.Parallel()
	j := newJournal(t)

	_, err := j.LogPatch(OpSave, "/g/slw.exe", "applied")
	assert.Error(t, err)
}

func TestJournal_Cleanup(t *testing.T) {
	t.Parallel()
	j := newJournal(t)

	j.now = clock(time.Now().AddDate(0, 0, -40))
	old, err := j.LogSave("/mods/ModsDB.ini", nil)
	require.NoError(t, err)

	j.now = time.Now
	recent, err := j.LogSave("/mods/ModsDB.ini", []string{"Alpha"})
	require.NoError(t, err)

	removed, err := j.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = j.Get(old.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = j.Get(recent.ID)
	assert.NoError(t, err)

	removed, err = j.Cleanup(0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestJournal_ConcurrentRecords(t *testing.T) {
	t.Parallel()
	j := newJournal(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := j.LogSave("/mods/ModsDB.ini", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := j.List(0)
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}
