package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jamesainslie/modloader/pkg/modloader/fsutil"
	"github.com/jamesainslie/modloader/pkg/modloader/logging"
)

// ErrNotFound is returned by Get when no entry has the requested ID.
var ErrNotFound = errors.New("history entry not found")

// Journal stores one JSON file per entry in a directory.
type Journal struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New creates a Journal in dir. The directory is created on the first write.
func New(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &Journal{dir: dir, now: time.Now}, nil
}

// Dir returns the journal directory.
func (j *Journal) Dir() string {
	return j.dir
}

// LogSave records that the active order of modsRoot was saved.
func (j *Journal) LogSave(dbPath string, active []string) (*Entry, error) {
	return j.Record(OpSave, dbPath, active, fmt.Sprintf("%d active", len(active)))
}

// LogPatch records an install or uninstall of the executable at path.
func (j *Journal) LogPatch(op OperationType, path, result string) (*Entry, error) {
	if op != OpInstall && op != OpUninstall {
		return nil, fmt.Errorf("not a patch operation: %s", op)
	}
	return j.Record(op, path, nil, result)
}

// LogRemove records the removal of a mod directory.
func (j *Journal) LogRemove(dir, title, result string) (*Entry, error) {
	return j.Record(OpRemove, dir, []string{title}, result)
}

// Record creates and persists an entry.
func (j *Journal) Record(op OperationType, target string, mods []string, result string) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := &Entry{
		ID:        uuid.NewString(),
		Timestamp: j.now().UTC(),
		Operation: op,
		Target:    target,
		Mods:      mods,
		Result:    result,
	}

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling history entry: %w", err)
	}

	path := filepath.Join(j.dir, entryFilename(entry))
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing history entry: %w", err)
	}

	logging.Get("history").Debug("recorded operation", "id", entry.ID, "operation", op, "target", target)
	return entry, nil
}

// entryFilename sorts by time in a directory listing and ends in the ID.
func entryFilename(e *Entry) string {
	return fmt.Sprintf("%s-%s-%s.json", e.Timestamp.Format("20060102T150405.000000000"), e.Operation, e.ID)
}

// List returns entries newest first. If limit is 0 or negative, all entries
// are returned. Files that cannot be parsed are skipped.
func (j *Journal) List(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Timestamp.After(entries[b].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry with the given ID.
func (j *Journal) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	files, err := os.ReadDir(j.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading history directory: %w", err)
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), "-"+id+".json") {
			continue
		}
		return readEntry(filepath.Join(j.dir, f.Name()))
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Cleanup removes entries older than retentionDays and returns how many were
// removed. A retention of 0 or less keeps everything.
func (j *Journal) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := j.now().AddDate(0, 0, -retentionDays)
	log := logging.Get("history")

	files, err := os.ReadDir(j.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading history directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		path := filepath.Join(j.dir, f.Name())
		entry, err := readEntry(path)
		if err != nil {
			log.Warn("skipping unreadable history entry", "path", path, "error", err)
			continue
		}

		if entry.Timestamp.Before(cutoff) {
			if err := os.Remove(path); err != nil {
				log.Warn("removing history entry", "path", path, "error", err)
				continue
			}
			removed++
		}
	}

	log.Info("cleaned up history", "removed", removed, "retention_days", retentionDays)
	return removed, nil
}

func (j *Journal) readAll() ([]Entry, error) {
	files, err := os.ReadDir(j.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("reading history directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		entry, err := readEntry(filepath.Join(j.dir, f.Name()))
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func readEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parsing history entry: %w", err)
	}
	return &entry, nil
}
