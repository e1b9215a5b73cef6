package registry

import (
	"fmt"

	"github.com/jamesainslie/modloader/pkg/modloader/logging"
	"github.com/jamesainslie/modloader/pkg/modloader/mod"
)

// Entry is one row of the display projection.
type Entry struct {
	Mod    mod.Mod
	Active bool

	// Priority is the index in the active order, or -1 for inactive mods.
	Priority int
}

// Display returns every mod in display order: active mods in active order
// followed by inactive mods in discovery order.
func (r *Registry) Display() []Entry {
	out := make([]Entry, 0, len(r.mods))
	for i, title := range r.active {
		out = append(out, Entry{
			Mod:      r.mods[r.index[title]],
			Active:   true,
			Priority: i,
		})
	}
	for _, m := range r.mods {
		if r.IsActive(m.Title) {
			continue
		}
		out = append(out, Entry{Mod: m, Priority: -1})
	}
	return out
}

// DeleteFunc removes a directory tree, e.g. trash.MoveToTrash.
type DeleteFunc func(path string) error

// Remove deletes the mod's root directory with del and drops the mod from the
// registry. The registry is unchanged if del fails. The caller saves.
func (r *Registry) Remove(title string, del DeleteFunc) error {
	i, ok := r.index[title]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMod, title)
	}
	m := r.mods[i]

	if err := del(m.RootDirectory); err != nil {
		return fmt.Errorf("removing %s: %w", m.RootDirectory, err)
	}

	if p := r.position(title); p >= 0 {
		r.active = append(r.active[:p], r.active[p+1:]...)
	}

	r.mods = append(r.mods[:i], r.mods[i+1:]...)
	r.index = make(map[string]int, len(r.mods))
	for j, rest := range r.mods {
		r.index[rest.Title] = j
	}

	logging.Get("registry").Info("removed mod", "title", title, "dir", m.RootDirectory)
	return nil
}
