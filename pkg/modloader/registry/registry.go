// Package registry owns the discovered mods of one mods root and the ordered
// subset of them that is active.
//
// The active order is the sole source of truth for both activation and load
// priority: a title's presence marks the mod active and its index is its
// priority (index 0 loads first). It is persisted in ModsDB.ini as
//
//	[Main]
//	ActiveModCount=2
//	ActiveMod0=Beta
//	ActiveMod1=Alpha
//
// A Registry is a plain value owned by the caller. It is not safe for
// concurrent use, and two registries must not save to the same mods root at
// the same time.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jamesainslie/modloader/pkg/modloader/inifile"
	"github.com/jamesainslie/modloader/pkg/modloader/logging"
	"github.com/jamesainslie/modloader/pkg/modloader/mod"
)

// DatabaseName is the name of the central document inside the mods root.
const DatabaseName = "ModsDB.ini"

var (
	// ErrNotFound is returned when the mods root does not exist.
	ErrNotFound = errors.New("mods directory not found")

	// ErrUnknownMod is returned when a title matches no discovered mod.
	ErrUnknownMod = errors.New("unknown mod")

	// ErrCorruptDatabase is returned when the persisted active list is inconsistent.
	ErrCorruptDatabase = errors.New("corrupt mods database")
)

// Registry holds all discovered mods and the active order.
type Registry struct {
	root   string
	mods   []mod.Mod
	index  map[string]int
	active []string
}

// Discover scans the immediate subdirectories of root for mods. Directories
// without a usable descriptor are logged and skipped. The active order of the
// returned registry is empty.
func Discover(root string) (*Registry, error) {
	log := logging.Get("registry").With("root", root)

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
		}
		return nil, fmt.Errorf("reading mods directory: %w", err)
	}

	r := &Registry{
		root:  root,
		index: make(map[string]int),
	}

	// os.ReadDir sorts by name, which fixes the discovery order.
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		if !isDir(dir, entry) {
			continue
		}

		m, err := mod.Load(dir)
		if err != nil {
			if errors.Is(err, mod.ErrNotFound) {
				log.Debug("not a mod directory", "dir", dir)
			} else {
				log.Warn("skipping mod directory", "dir", dir, "error", err)
			}
			continue
		}

		if _, dup := r.index[m.Title]; dup {
			log.Warn("skipping mod with duplicate title", "dir", dir, "title", m.Title)
			continue
		}

		r.index[m.Title] = len(r.mods)
		r.mods = append(r.mods, m)
	}

	log.Debug("discovered mods", "count", len(r.mods))
	return r, nil
}

// LoadAll discovers the mods under root and restores the active order from
// root/ModsDB.ini. A missing database yields an empty active order. Titles
// that match no discovered mod are dropped.
func LoadAll(root string) (*Registry, error) {
	r, err := Discover(root)
	if err != nil {
		return nil, err
	}

	log := logging.Get("registry").With("root", root)

	doc, err := inifile.Load(r.DatabasePath())
	if err != nil {
		if errors.Is(err, inifile.ErrNotFound) {
			log.Info("no mods database, starting with no active mods")
			return r, nil
		}
		return nil, fmt.Errorf("loading mods database: %w", err)
	}

	titles, err := readActiveOrder(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.DatabasePath(), err)
	}

	for _, title := range titles {
		if _, ok := r.index[title]; !ok {
			log.Warn("dropping active entry for missing mod", "title", title)
			continue
		}
		if r.IsActive(title) {
			log.Warn("dropping duplicate active entry", "title", title)
			continue
		}
		r.active = append(r.active, title)
	}

	log.Info("loaded mods", "count", len(r.mods), "active", len(r.active))
	return r, nil
}

// Root returns the mods root directory.
func (r *Registry) Root() string {
	return r.root
}

// DatabasePath returns the path of the central document.
func (r *Registry) DatabasePath() string {
	return filepath.Join(r.root, DatabaseName)
}

// Len returns the number of discovered mods.
func (r *Registry) Len() int {
	return len(r.mods)
}

// ActiveCount returns the number of active mods.
func (r *Registry) ActiveCount() int {
	return len(r.active)
}

// Mods returns all mods in discovery order.
func (r *Registry) Mods() []mod.Mod {
	out := make([]mod.Mod, len(r.mods))
	copy(out, r.mods)
	return out
}

// Mod returns the mod with the given title.
func (r *Registry) Mod(title string) (mod.Mod, bool) {
	i, ok := r.index[title]
	if !ok {
		return mod.Mod{}, false
	}
	return r.mods[i], true
}

// ActiveOrder returns a copy of the active titles in priority order.
func (r *Registry) ActiveOrder() []string {
	out := make([]string, len(r.active))
	copy(out, r.active)
	return out
}

// IsActive reports whether title is in the active order.
func (r *Registry) IsActive(title string) bool {
	return r.position(title) >= 0
}

func (r *Registry) position(title string) int {
	for i, t := range r.active {
		if t == title {
			return i
		}
	}
	return -1
}

func isDir(path string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
