package cache

import (
	"bytes"
	"encoding/gob"
)

// Version is incremented when the entry encoding changes. Entries written by
// another version are treated as missing.
const Version = 1

// KeySeparator separates the key namespace from the file path.
const KeySeparator = '\x00'

const offsetNamespace = "offset"

// Entry records where a signature was last found in a file, together with the
// file identity it was found in.
type Entry struct {
	Version int
	Size    int64 // File size in bytes
	Mtime   int64 // Modification time as UnixNano
	Offset  int64
}

// Encode serializes the entry to bytes using gob.
func (e *Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes into the entry using gob.
func (e *Entry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey creates the key for an absolute file path.
// Format: offset\x00<path>
func MakeKey(path string) []byte {
	return []byte(offsetNamespace + string(KeySeparator) + path)
}

// ParseKey extracts the file path from a key.
func ParseKey(key []byte) string {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key)
	}
	return string(key[idx+1:])
}

// MakeKeyPrefix returns the prefix shared by every offset key.
func MakeKeyPrefix() []byte {
	return []byte(offsetNamespace + string(KeySeparator))
}
