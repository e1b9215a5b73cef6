package patch

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// image is the executable read into memory.
type image struct {
	data []byte
	info fs.FileInfo
}

type match struct {
	state  State
	offset int64
}

func readImage(path string) (*image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening executable: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("reading executable: %w", err)
	}

	data := make([]byte, info.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("reading executable: %w", err)
	}
	return &image{data: data, info: info}, nil
}

// scan returns the first occurrence of either signature at or after start.
func scan(data []byte, start int64) match {
	if start < 0 || start >= int64(len(data)) {
		return match{state: Unknown, offset: -1}
	}

	window := data[start:]
	patched := bytes.Index(window, SignaturePatched)
	unpatched := bytes.Index(window, SignatureUnpatched)

	switch {
	case patched < 0 && unpatched < 0:
		return match{state: Unknown, offset: -1}
	case unpatched < 0 || (patched >= 0 && patched < unpatched):
		return match{state: Patched, offset: start + int64(patched)}
	default:
		return match{state: Unpatched, offset: start + int64(unpatched)}
	}
}

// stateAt reports which signature, if any, sits at offset.
func stateAt(data []byte, offset int64) State {
	if offset < 0 || offset+SignatureLen > int64(len(data)) {
		return Unknown
	}
	window := data[offset : offset+SignatureLen]
	switch {
	case bytes.Equal(window, SignaturePatched):
		return Patched
	case bytes.Equal(window, SignatureUnpatched):
		return Unpatched
	default:
		return Unknown
	}
}

// firstAt reports whether no signature starts in [start, offset), so a
// signature at offset is the one a fresh scan would report.
func firstAt(data []byte, start, offset int64) bool {
	prefix := data[start : offset+SignatureLen-1]
	return !bytes.Contains(prefix, SignaturePatched) && !bytes.Contains(prefix, SignatureUnpatched)
}

// locate finds the signature, preferring a cached offset whose bytes still
// hold a signature.
func (e *Engine) locate(path string, img *image) match {
	log := e.logger()

	if e.cache != nil {
		if off, ok := e.cache.Lookup(path, img.info.Size(), img.info.ModTime()); ok && off >= e.scanStart {
			if st := stateAt(img.data, off); st != Unknown && firstAt(img.data, e.scanStart, off) {
				log.Debug("signature offset from cache", "path", path, "offset", off)
				return match{state: st, offset: off}
			}
			log.Debug("cached signature offset is stale", "path", path, "offset", off)
		}
	}

	m := scan(img.data, e.scanStart)
	if m.state != Unknown {
		e.remember(path, img.info, m.offset)
	}
	return m
}

func (e *Engine) remember(path string, info fs.FileInfo, offset int64) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Remember(path, info.Size(), info.ModTime(), offset); err != nil {
		e.logger().Warn("caching signature offset", "path", path, "error", err)
	}
}

// Status reports the patch state of the executable. A read failure yields
// Unknown together with the error.
func (e *Engine) Status() (State, error) {
	t, err := e.Target()
	if err != nil {
		return Unknown, err
	}

	img, err := readImage(t.Path)
	if err != nil {
		return Unknown, err
	}

	m := e.locate(t.Path, img)
	e.logger().Debug("patch status", "path", t.Path, "state", m.state, "offset", m.offset)
	return m.state, nil
}
