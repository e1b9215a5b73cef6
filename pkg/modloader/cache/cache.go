// Package cache remembers where the patch signature sits inside a game
// executable so repeated status checks can skip the linear scan.
//
// Entries are keyed by absolute path and carry the file size and mtime they
// were recorded against. An entry whose identity no longer matches the file
// is reported as a miss. Callers must still verify the bytes at a returned
// offset before trusting it.
package cache

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Cache provides offset lookups backed by a Store.
type Cache struct {
	store *Store
}

// Open opens or creates a cache at the given directory.
func Open(path string) (*Cache, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening offset cache: %w", err)
	}
	return &Cache{store: store}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Lookup returns the offset recorded for path when the file still has the
// given size and modification time.
func (c *Cache) Lookup(path string, size int64, mtime time.Time) (int64, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, false
	}

	entry, err := c.store.Get(abs)
	if err != nil {
		return 0, false
	}

	if entry.Version != Version || entry.Size != size || entry.Mtime != mtime.UnixNano() {
		return 0, false
	}
	return entry.Offset, true
}

// Remember records offset for path at the given size and modification time.
func (c *Cache) Remember(path string, size int64, mtime time.Time, offset int64) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	return c.store.Put(abs, &Entry{
		Version: Version,
		Size:    size,
		Mtime:   mtime.UnixNano(),
		Offset:  offset,
	})
}

// Forget drops the entry for path. A missing entry is not an error.
func (c *Cache) Forget(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	err = c.store.Delete(abs)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Paths returns the files that currently have an entry.
func (c *Cache) Paths() ([]string, error) {
	return c.store.Paths()
}

// Clear removes all entries.
func (c *Cache) Clear() error {
	return c.store.DeleteAll()
}
