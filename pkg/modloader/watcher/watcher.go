// Package watcher reports changes to a mods root: mod directories added or
// removed, descriptors edited and the mods database rewritten. Bursts of
// filesystem events are coalesced into one notification.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jamesainslie/modloader/pkg/modloader/logging"
	"github.com/jamesainslie/modloader/pkg/modloader/mod"
	"github.com/jamesainslie/modloader/pkg/modloader/registry"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 250 * time.Millisecond

// Change lists the paths touched since the previous notification.
type Change struct {
	Paths []string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// Watcher watches a mods root and its immediate subdirectories.
type Watcher struct {
	root     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	paths    map[string]bool
	mu       sync.Mutex
	closed   bool
}

// New creates a Watcher for root. Call Close when done.
func New(root string, opts ...Option) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watching %s: not a directory", root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     absRoot,
		debounce: DefaultDebounce,
		watcher:  fsw,
		paths:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addWatch(absRoot); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	entries, err := os.ReadDir(absRoot)
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			// A mod directory that cannot be watched only loses descriptor edits.
			_ = w.addWatch(filepath.Join(absRoot, e.Name()))
		}
	}

	return w, nil
}

// Watch runs a Watcher on modsRoot until ctx is done.
func Watch(ctx context.Context, modsRoot string, onChange func(Change), opts ...Option) error {
	w, err := New(modsRoot, opts...)
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Run(ctx, onChange)
}

// Run delivers debounced changes to onChange until ctx is done or the
// watcher is closed. onChange runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(Change)) error {
	log := logging.Get("watcher").With("root", w.root)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.handleEvent(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				log.Warn("event queue overflowed, reporting a full change")
				pending[w.root] = struct{}{}
				timer.Reset(w.debounce)
				continue
			}
			log.Error("watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			change := Change{Paths: make([]string, 0, len(pending))}
			for p := range pending {
				change.Paths = append(change.Paths, p)
			}
			sort.Strings(change.Paths)
			clear(pending)

			log.Debug("mods root changed", "paths", len(change.Paths))
			if onChange != nil {
				onChange(change)
			}
		}
	}
}

// handleEvent keeps the watch list in step with the mod directories and
// reports whether the event is relevant.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if isTempFile(name) {
		return false
	}

	parent := filepath.Dir(event.Name)

	if parent == w.root {
		switch {
		case event.Has(fsnotify.Create):
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				_ = w.addWatch(event.Name)
				return true
			}
		case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
			if w.removeWatch(event.Name) {
				return true
			}
		}
		return name == registry.DatabaseName
	}

	// Inside a mod directory only the descriptor matters.
	return name == mod.DescriptorName && filepath.Dir(parent) == w.root
}

func isTempFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}
	if err := w.watcher.Add(path); err != nil {
		logging.Get("watcher").Warn("failed to add watch", "path", path, "error", err)
		return err
	}
	w.paths[path] = true
	return nil
}

// removeWatch reports whether path was being watched.
func (w *Watcher) removeWatch(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.paths[path] {
		return false
	}
	_ = w.watcher.Remove(path)
	delete(w.paths, path)
	return true
}

// Watched returns the watched directories.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}
