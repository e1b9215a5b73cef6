package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const defaultMaxSize = 10 << 20

// RotationConfig controls when the log is rotated and which backups are
// kept. Backups are numbered from newest: modloader.log.1, modloader.log.2.
type RotationConfig struct {
	// MaxSize is the file size in bytes that triggers rotation. Zero uses
	// 10 MiB.
	MaxSize int64

	// MaxAge removes backups last written more than this many days ago.
	// Zero keeps them regardless of age.
	MaxAge int

	// MaxBackups is the number of numbered backups kept. Zero keeps all.
	MaxBackups int

	// Daily rotates on the first write of a day, so each file covers one day.
	Daily bool
}

// DefaultRotationConfig keeps five backups of up to 10 MiB for 30 days.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    defaultMaxSize,
		MaxAge:     30,
		MaxBackups: 5,
		Daily:      true,
	}
}

// RotatingWriter appends to a log file that several modloader processes may
// share. Every write holds an exclusive flock on the current file. Whether to
// rotate is decided from the file on disk, and a writer whose file was
// rotated away by another process reopens the path instead of rotating twice.
type RotatingWriter struct {
	mu   sync.Mutex
	path string
	cfg  RotationConfig
	file *os.File
}

// NewRotatingWriter opens path for appending, creating its directory, and
// removes backups that have outlived cfg.MaxAge.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	file, err := openLog(path)
	if err != nil {
		return nil, err
	}
	w := &RotatingWriter{path: path, cfg: cfg, file: file}
	w.prune(w.backups())
	return w, nil
}

func openLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// Write appends p, rotating first if p would overflow the current file.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if err := unix.Flock(int(w.file.Fd()), unix.LOCK_EX); err != nil {
		return 0, fmt.Errorf("locking log file: %w", err)
	}
	// rollover may swap w.file; the lock moves with it.
	defer func() { _ = unix.Flock(int(w.file.Fd()), unix.LOCK_UN) }()

	if err := w.rollover(int64(len(p))); err != nil {
		return 0, err
	}

	n, err := w.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("writing log file: %w", err)
	}
	return n, nil
}

// rollover leaves w.file locked and pointing at the live log file with room
// for size more bytes.
func (w *RotatingWriter) rollover(size int64) error {
	cur, err := w.file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}

	onDisk, err := os.Stat(w.path)
	if err != nil || !os.SameFile(cur, onDisk) {
		return w.reopen()
	}
	if !w.due(cur, size, time.Now()) {
		return nil
	}

	backups := w.backups()
	if err := w.shift(backups); err != nil {
		return err
	}
	if err := w.reopen(); err != nil {
		return err
	}
	w.prune(w.backups())
	return nil
}

func (w *RotatingWriter) due(cur os.FileInfo, size int64, now time.Time) bool {
	if cur.Size() == 0 {
		return false
	}
	if cur.Size()+size > w.cfg.MaxSize {
		return true
	}
	if w.cfg.Daily {
		y1, m1, d1 := cur.ModTime().Date()
		y2, m2, d2 := now.Date()
		return y1 != y2 || m1 != m2 || d1 != d2
	}
	return false
}

// reopen opens the path and moves the lock from the old file to the new one.
func (w *RotatingWriter) reopen() error {
	f, err := openLog(w.path)
	if err != nil {
		return err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return fmt.Errorf("locking log file: %w", err)
	}
	_ = unix.Flock(int(w.file.Fd()), unix.LOCK_UN)
	_ = w.file.Close()
	w.file = f
	return nil
}

type backup struct {
	n    int
	path string
}

// backups lists the numbered backups of the log, highest number first.
func (w *RotatingWriter) backups() []backup {
	entries, err := os.ReadDir(filepath.Dir(w.path))
	if err != nil {
		return nil
	}

	prefix := filepath.Base(w.path) + "."
	var found []backup
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok || e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 1 {
			continue
		}
		found = append(found, backup{n: n, path: filepath.Join(filepath.Dir(w.path), e.Name())})
	}
	slices.SortFunc(found, func(a, b backup) int { return b.n - a.n })
	return found
}

func (w *RotatingWriter) numbered(n int) string {
	return w.path + "." + strconv.Itoa(n)
}

// shift renumbers every backup up by one, dropping those past MaxBackups,
// and moves the live file to .1.
func (w *RotatingWriter) shift(backups []backup) error {
	for _, b := range backups {
		if w.cfg.MaxBackups > 0 && b.n >= w.cfg.MaxBackups {
			if err := os.Remove(b.path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("removing old log: %w", err)
			}
			continue
		}
		if err := os.Rename(b.path, w.numbered(b.n+1)); err != nil {
			return fmt.Errorf("renumbering old log: %w", err)
		}
	}

	if err := os.Rename(w.path, w.numbered(1)); err != nil {
		return fmt.Errorf("rotating log file: %w", err)
	}
	return nil
}

// prune removes backups older than MaxAge. Failures are ignored; the next
// rotation tries again.
func (w *RotatingWriter) prune(backups []backup) {
	if w.cfg.MaxAge <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -w.cfg.MaxAge)
	for _, b := range backups {
		info, err := os.Stat(b.path)
		if err == nil && info.ModTime().Before(cutoff) {
			_ = os.Remove(b.path)
		}
	}
}

// Close syncs and closes the log file. Closing twice is a no-op.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := errors.Join(w.file.Sync(), w.file.Close())
	w.file = nil
	return err
}
