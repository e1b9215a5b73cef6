package inifile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jamesainslie/modloader/pkg/modloader/fsutil"
	"gopkg.in/ini.v1"
)

var (
	// ErrNotFound is returned by Load when the file does not exist.
	ErrNotFound = errors.New("ini file not found")

	// ErrParse is returned when a document cannot be parsed.
	ErrParse = errors.New("ini parse error")

	// ErrUnrepresentable is returned when a section, key or value cannot be
	// written in a form that parses back to the same text.
	ErrUnrepresentable = errors.New("value cannot be represented in an ini file")
)

// loadOptions controls how documents are parsed. Lines that are neither a
// section header, a comment nor a key=value pair are skipped. Values are
// taken verbatim after the first '=', so titles may contain ';', '#' or ':',
// and a trailing '\' does not join the next line.
var loadOptions = ini.LoadOptions{
	SkipUnrecognizableLines: true,
	IgnoreInlineComment:     true,
	IgnoreContinuation:      true,
	KeyValueDelimiters:      "=",
}

// tripleQuote wraps values the parser would otherwise alter. The parser takes
// everything up to the last closing triple quote, so any single-line value
// survives.
const tripleQuote = `"""`

// Load reads and parses the document at path.
// A missing file yields an error wrapping ErrNotFound.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse parses an in-memory document.
func Parse(data []byte) (*Document, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	doc := New()
	for _, sec := range f.Sections() {
		name := sec.Name()
		keys := sec.Keys()
		if name == ini.DefaultSection {
			if len(keys) == 0 {
				continue
			}
			name = DefaultSection
		}

		s := doc.Section(name)
		for _, k := range keys {
			s.Set(k.Name(), k.Value())
		}
	}

	return doc, nil
}

// WriteTo serializes the document to w as "Key=Value" lines without
// alignment padding, the form the game-side loader expects. Values the parser
// would trim or unquote are wrapped in triple quotes. Anything that still
// could not be read back unchanged fails with ErrUnrepresentable.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	// Keys before the first header belong to the default section, so it is
	// written first wherever it sits in the document.
	if s, ok := d.Lookup(DefaultSection); ok {
		if err := writeKeys(&buf, s); err != nil {
			return 0, err
		}
	}

	for _, s := range d.sections {
		if s.name == DefaultSection {
			continue
		}
		if err := checkSection(s.name); err != nil {
			return 0, err
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString("[" + s.name + "]\n")
		if err := writeKeys(&buf, s); err != nil {
			return 0, err
		}
	}

	return buf.WriteTo(w)
}

func writeKeys(buf *bytes.Buffer, s *Section) error {
	for _, k := range s.keys {
		if err := checkKey(k); err != nil {
			return fmt.Errorf("section %q: %w", s.name, err)
		}
		v, err := encodeValue(s.values[k])
		if err != nil {
			return fmt.Errorf("key %q in section %q: %w", k, s.name, err)
		}
		buf.WriteString(k + "=" + v + "\n")
	}
	return nil
}

func checkSection(name string) error {
	switch {
	case name == "", name == ini.DefaultSection:
		return fmt.Errorf("%w: reserved section name %q", ErrUnrepresentable, name)
	case strings.ContainsAny(name, "\r\n"), strings.TrimSpace(name) != name:
		return fmt.Errorf("%w: section name %q", ErrUnrepresentable, name)
	}
	return nil
}

func checkKey(k string) error {
	if k == "" || strings.ContainsAny(k, "=\r\n") || strings.TrimSpace(k) != k ||
		strings.ContainsAny(k[:1], "\"`[;#") {
		return fmt.Errorf("%w: key %q", ErrUnrepresentable, k)
	}
	return nil
}

func encodeValue(v string) (string, error) {
	if strings.ContainsAny(v, "\r\n") {
		return "", fmt.Errorf("%w: value %q spans lines", ErrUnrepresentable, v)
	}
	if v == "" {
		return v, nil
	}
	first, _ := utf8.DecodeRuneInString(v)
	last, _ := utf8.DecodeLastRuneInString(v)
	if needsQuoting(first) || needsQuoting(last) {
		return tripleQuote + v + tripleQuote, nil
	}
	return v, nil
}

func needsQuoting(r rune) bool {
	return r == '"' || r == '\'' || r == '`' || unicode.IsSpace(r)
}
