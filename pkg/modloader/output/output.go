// Package output provides formatters for displaying the mod list in various
// output formats (pretty, plain, json, yaml, etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/modloader/pkg/modloader/registry"
)

// ModInfo is one row of the mod list.
type ModInfo struct {
	Title        string `json:"title" yaml:"title"`
	Version      string `json:"version,omitempty" yaml:"version,omitempty"`
	Author       string `json:"author,omitempty" yaml:"author,omitempty"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	Date         string `json:"date,omitempty" yaml:"date,omitempty"`
	URL          string `json:"url,omitempty" yaml:"url,omitempty"`
	UpdateServer string `json:"update_server,omitempty" yaml:"update_server,omitempty"`
	SaveFile     string `json:"save_file,omitempty" yaml:"save_file,omitempty"`
	Directory    string `json:"directory" yaml:"directory"`

	// Active reports whether the mod is in the active order.
	Active bool `json:"active" yaml:"active"`

	// Priority is the index in the active order, or -1 when inactive.
	Priority int `json:"priority" yaml:"priority"`

	// Size and Files are only set when disk usage was measured.
	Size      int64  `json:"size,omitempty" yaml:"size,omitempty"`
	SizeHuman string `json:"size_human,omitempty" yaml:"size_human,omitempty"`
	Files     int64  `json:"files,omitempty" yaml:"files,omitempty"`
}

// PriorityLabel returns the 1-based load position, or "-" when inactive.
func (m ModInfo) PriorityLabel() string {
	if m.Priority < 0 {
		return "-"
	}
	return strconv.Itoa(m.Priority + 1)
}

// Result contains the complete output data for formatting.
type Result struct {
	// ModsRoot is the directory the mods were discovered in.
	ModsRoot string `json:"mods_root" yaml:"mods_root"`

	// Game names the game executable found, if any.
	Game string `json:"game,omitempty" yaml:"game,omitempty"`

	// Patch is the patch state of the executable, if known.
	Patch string `json:"patch,omitempty" yaml:"patch,omitempty"`

	// Mods lists active mods in load order, then inactive mods.
	Mods []ModInfo `json:"mods" yaml:"mods"`

	// Warnings contains messages produced while loading.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ActiveCount returns the number of active mods.
func (r *Result) ActiveCount() int {
	n := 0
	for _, m := range r.Mods {
		if m.Active {
			n++
		}
	}
	return n
}

// TotalSize returns the sum of all measured mod sizes.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, m := range r.Mods {
		total += m.Size
	}
	return total
}

// FromEntries converts registry display entries into rows.
func FromEntries(entries []registry.Entry) []ModInfo {
	rows := make([]ModInfo, len(entries))
	for i, e := range entries {
		rows[i] = ModInfo{
			Title:        e.Mod.Title,
			Version:      e.Mod.Version,
			Author:       e.Mod.Author,
			Description:  e.Mod.Description,
			Date:         e.Mod.Date,
			URL:          e.Mod.URL,
			UpdateServer: e.Mod.UpdateServer,
			SaveFile:     e.Mod.SaveFile,
			Directory:    e.Mod.RootDirectory,
			Active:       e.Active,
			Priority:     e.Priority,
		}
	}
	return rows
}

// SetUsage records a measured size on the row.
func (m *ModInfo) SetUsage(bytes, files int64) {
	m.Size = bytes
	m.Files = files
	m.SizeHuman = humanize.IBytes(uint64(max(bytes, 0)))
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry, replacing any existing
// formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
