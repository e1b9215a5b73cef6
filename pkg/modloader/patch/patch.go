// Package patch toggles the CPK redirection hook in the game executable.
//
// The executable carries one of two 8-byte import names somewhere past a fixed
// offset: "imagehlp" in a stock build and "cpkredir" once patched. Install and
// Uninstall swap one for the other and leave every other byte untouched. The
// first install keeps the stock executable as <name>_Backup.exe.
//
// An Engine assumes exclusive access to the executable for the duration of a
// call. Writes go through a temp file and a rename, so an interrupted write
// leaves either the old or the new image in place.
package patch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/modloader/pkg/modloader/logging"
)

// ScanStart is the offset where the signature search begins. It is tied to
// the executable builds the loader supports.
const ScanStart int64 = 11918000

// SignatureLen is the length of both signatures.
const SignatureLen = 8

var (
	// SignaturePatched marks an executable that loads redirected CPKs.
	SignaturePatched = []byte("cpkredir")

	// SignatureUnpatched marks a stock executable.
	SignatureUnpatched = []byte("imagehlp")
)

// Candidates are the executable names looked up in the game directory, in
// preference order.
var Candidates = []string{"SonicGenerations.exe", "slw.exe"}

// BackupSuffix is inserted before the extension of the backup file name.
const BackupSuffix = "_Backup"

var (
	// ErrTargetNotFound is returned when no candidate executable exists.
	ErrTargetNotFound = errors.New("game executable not found")

	// ErrSignatureNotFound is returned when neither signature is present.
	ErrSignatureNotFound = errors.New("patch signature not found")
)

// State is the observed patch state of the executable.
type State int

const (
	Unknown State = iota
	Unpatched
	Patched
)

func (s State) String() string {
	switch s {
	case Unpatched:
		return "unpatched"
	case Patched:
		return "patched"
	default:
		return "unknown"
	}
}

// Outcome reports what a state-changing call did.
type Outcome int

const (
	// NotApplied accompanies a non-nil error.
	NotApplied Outcome = iota
	// Applied means the executable was rewritten.
	Applied
	// AlreadyApplied means the executable was already in the requested state
	// and nothing was written.
	AlreadyApplied
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case AlreadyApplied:
		return "already applied"
	default:
		return "not applied"
	}
}

// Target is the resolved executable.
type Target struct {
	Path   string
	Backup string
}

// Game returns the display name of the game the executable belongs to.
func (t Target) Game() string {
	switch filepath.Base(t.Path) {
	case "SonicGenerations.exe":
		return "Sonic Generations"
	case "slw.exe":
		return "Sonic Lost World"
	default:
		return filepath.Base(t.Path)
	}
}

// BackupPath returns path with BackupSuffix inserted before its extension.
func BackupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + BackupSuffix + ext
}

// OffsetCache remembers where a signature was found in a file of a given
// size and modification time.
type OffsetCache interface {
	Lookup(path string, size int64, mtime time.Time) (int64, bool)
	Remember(path string, size int64, mtime time.Time, offset int64) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache enables the offset cache.
func WithCache(c OffsetCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithLogger overrides the component logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// Engine reads and rewrites the executable found in one game directory.
type Engine struct {
	gameDir   string
	cache     OffsetCache
	log       *logging.Logger
	scanStart int64
}

// New returns an Engine for the executable in gameDir.
func New(gameDir string, opts ...Option) *Engine {
	e := &Engine{
		gameDir:   gameDir,
		scanStart: ScanStart,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GameDir returns the directory the engine resolves targets in.
func (e *Engine) GameDir() string {
	return e.gameDir
}

// Target resolves the executable. It is called again by every operation, so
// a game installed or removed between calls is picked up.
func (e *Engine) Target() (Target, error) {
	for _, name := range Candidates {
		path := filepath.Join(e.gameDir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return Target{Path: path, Backup: BackupPath(path)}, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Target{}, fmt.Errorf("checking %s: %w", path, err)
		}
	}
	return Target{}, fmt.Errorf("%w in %s (looked for %s)", ErrTargetNotFound, e.gameDir, strings.Join(Candidates, ", "))
}

func (e *Engine) logger() *logging.Logger {
	if e.log != nil {
		return e.log
	}
	return logging.Get("patch")
}
