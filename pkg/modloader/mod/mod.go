// Package mod loads a single mod's descriptor (mod.ini) from its directory.
package mod

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/modloader/pkg/modloader/inifile"
)

// DescriptorName is the fixed name of the descriptor file inside a mod directory.
const DescriptorName = "mod.ini"

var (
	// ErrNotFound is returned when a directory has no descriptor; it is not a mod.
	ErrNotFound = errors.New("mod descriptor not found")

	// ErrInvalidMod is returned when a descriptor lacks a required field.
	ErrInvalidMod = errors.New("invalid mod descriptor")
)

// descriptorSections are searched in order for every key.
var descriptorSections = []string{"Desc", "Main", inifile.DefaultSection}

// Mod is one discovered mod package. It is immutable once loaded.
type Mod struct {
	// Title is the unique key of the mod within a registry.
	Title string `json:"title" yaml:"title"`

	Version      string `json:"version,omitempty" yaml:"version,omitempty"`
	Author       string `json:"author,omitempty" yaml:"author,omitempty"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	Date         string `json:"date,omitempty" yaml:"date,omitempty"`
	URL          string `json:"url,omitempty" yaml:"url,omitempty"`
	UpdateServer string `json:"update_server,omitempty" yaml:"update_server,omitempty"`

	// SaveFile is empty when the mod has no save-data component.
	SaveFile string `json:"save_file,omitempty" yaml:"save_file,omitempty"`

	// RootDirectory owns all files belonging to the mod.
	RootDirectory string `json:"root_directory" yaml:"root_directory"`
}

// HasSaveFile reports whether the mod ships its own save file.
func (m Mod) HasSaveFile() bool {
	return m.SaveFile != ""
}

// HasUpdateServer reports whether the mod can be checked for updates.
func (m Mod) HasUpdateServer() bool {
	return m.UpdateServer != ""
}

// DescriptorPath returns the path of the mod's descriptor file.
func (m Mod) DescriptorPath() string {
	return filepath.Join(m.RootDirectory, DescriptorName)
}

// Load reads the descriptor in dir. It never modifies the filesystem.
func Load(dir string) (Mod, error) {
	doc, err := inifile.Load(filepath.Join(dir, DescriptorName))
	if err != nil {
		if errors.Is(err, inifile.ErrNotFound) {
			return Mod{}, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return Mod{}, err
	}

	m := Mod{
		Title:         strings.TrimSpace(lookup(doc, "Title")),
		Version:       lookup(doc, "Version"),
		Author:        lookup(doc, "Author"),
		Description:   lookup(doc, "Description"),
		Date:          lookup(doc, "Date"),
		URL:           lookup(doc, "URL", "Url"),
		UpdateServer:  lookup(doc, "UpdateServer"),
		SaveFile:      lookup(doc, "SaveFile"),
		RootDirectory: dir,
	}

	if m.Title == "" {
		return Mod{}, fmt.Errorf("%w: %s: missing Title", ErrInvalidMod, dir)
	}

	return m, nil
}

// lookup returns the first value found for any of keys across descriptorSections.
func lookup(doc *inifile.Document, keys ...string) string {
	for _, name := range descriptorSections {
		sec, ok := doc.Lookup(name)
		if !ok {
			continue
		}
		for _, key := range keys {
			if v, ok := sec.Get(key); ok {
				return v
			}
		}
	}
	return ""
}
