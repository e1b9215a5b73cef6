// Package inifile implements the sectioned key-value documents used by the
// mod loader: ModsDB.ini, every mod's mod.ini and the remote mod_version.ini.
//
// A Document keeps sections and keys in insertion order so that a load/save
// cycle reproduces the same section/key/value triples. Parsing is
// delegated to gopkg.in/ini.v1; writing quotes only the values its parser
// would otherwise trim or unquote.
//
// Basic usage:
//
//	doc, err := inifile.Load("mods/ModsDB.ini")
//	if errors.Is(err, inifile.ErrNotFound) {
//	    doc = inifile.New()
//	}
//	doc.Section("Main").Set("ActiveModCount", "0")
//	if err := inifile.Save(doc, "mods/ModsDB.ini"); err != nil {
//	    return err
//	}
package inifile

// DefaultSection is the name of the unnamed section holding keys that appear
// before the first section header.
const DefaultSection = ""

// Section is a named, ordered set of unique keys.
type Section struct {
	name   string
	keys   []string
	values map[string]string
}

func newSection(name string) *Section {
	return &Section{
		name:   name,
		values: make(map[string]string),
	}
}

// Name returns the section name.
func (s *Section) Name() string {
	return s.name
}

// Get returns the value stored under key.
func (s *Section) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Value returns the value stored under key, or "" if the key is absent.
func (s *Section) Value(key string) string {
	return s.values[key]
}

// Has reports whether key is present.
func (s *Section) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Set stores value under key. An existing key keeps its position;
// a new key is appended.
func (s *Section) Set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Delete removes key and reports whether it was present.
func (s *Section) Delete(key string) bool {
	if _, ok := s.values[key]; !ok {
		return false
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (s *Section) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of keys.
func (s *Section) Len() int {
	return len(s.keys)
}

// Document is an ordered collection of sections.
type Document struct {
	sections []*Section
	index    map[string]*Section
}

// New returns an empty document.
func New() *Document {
	return &Document{index: make(map[string]*Section)}
}

// Section returns the named section, appending an empty one if it does not exist.
func (d *Document) Section(name string) *Section {
	if s, ok := d.index[name]; ok {
		return s
	}
	s := newSection(name)
	d.sections = append(d.sections, s)
	d.index[name] = s
	return s
}

// Lookup returns the named section without creating it.
func (d *Document) Lookup(name string) (*Section, bool) {
	s, ok := d.index[name]
	return s, ok
}

// Sections returns the sections in insertion order.
func (d *Document) Sections() []*Section {
	out := make([]*Section, len(d.sections))
	copy(out, d.sections)
	return out
}

// Triple is one section/key/value entry of a document.
type Triple struct {
	Section string
	Key     string
	Value   string
}

// Triples flattens the document in order.
func (d *Document) Triples() []Triple {
	var out []Triple
	for _, s := range d.sections {
		for _, k := range s.keys {
			out = append(out, Triple{Section: s.name, Key: k, Value: s.values[k]})
		}
	}
	return out
}
