// Package footprint measures how much disk space an installed mod occupies.
package footprint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"
)

// Usage summarizes the files below one mod directory.
type Usage struct {
	Files int64 `json:"files" yaml:"files"`
	Dirs  int64 `json:"dirs" yaml:"dirs"`
	Bytes int64 `json:"bytes" yaml:"bytes"`

	// Archives counts CPK archives, the data files the loader redirects.
	Archives int64 `json:"archives" yaml:"archives"`

	// Unreadable counts entries skipped because of errors.
	Unreadable int64 `json:"unreadable,omitempty" yaml:"unreadable,omitempty"`
}

// Human returns the byte total in IEC units, e.g. "1.2 GiB".
func (u Usage) Human() string {
	if u.Bytes < 0 {
		return humanize.IBytes(0)
	}
	return humanize.IBytes(uint64(u.Bytes))
}

func (u Usage) String() string {
	return fmt.Sprintf("%s in %s files", u.Human(), humanize.Comma(u.Files))
}

type counters struct {
	files, dirs, bytes, archives, unreadable atomic.Int64
}

func (c *counters) usage() Usage {
	return Usage{
		Files:      c.files.Load(),
		Dirs:       c.dirs.Load(),
		Bytes:      c.bytes.Load(),
		Archives:   c.archives.Load(),
		Unreadable: c.unreadable.Load(),
	}
}

// Measure walks dir and totals the regular files below it. Symlinks are not
// followed. Entries that cannot be read are counted in Unreadable rather than
// failing the walk.
func Measure(ctx context.Context, dir string) (Usage, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Usage{}, fmt.Errorf("measuring %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Usage{}, fmt.Errorf("measuring %s: not a directory", dir)
	}

	var c counters
	conf := fastwalk.Config{
		Follow: false, // Don't follow symlinks.
	}

	walkErr := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			c.unreadable.Add(1)
			return nil
		}
		if d.IsDir() {
			if path != dir {
				c.dirs.Add(1)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			c.unreadable.Add(1)
			return nil
		}
		c.files.Add(1)
		c.bytes.Add(fi.Size())
		if strings.EqualFold(filepath.Ext(path), ".cpk") {
			c.archives.Add(1)
		}
		return nil
	})

	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return c.usage(), walkErr
		}
		return c.usage(), fmt.Errorf("walking %s: %w", dir, walkErr)
	}
	return c.usage(), nil
}

// MeasureAll measures up to Parallelism() directories at a time. Directories
// that fail are left out of the result and reported in the joined error.
func MeasureAll(ctx context.Context, dirs []string) (map[string]Usage, error) {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)
	out := make(map[string]Usage, len(dirs))
	sem := make(chan struct{}, Parallelism())

	for _, dir := range dirs {
		wg.Add(1)
		go func(dir string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			u, err := Measure(ctx, dir)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			out[dir] = u
		}(dir)
	}
	wg.Wait()

	return out, errors.Join(errs...)
}

// Parallelism is the number of mods measured at once. Each walk already
// fans out over fastwalk's own workers.
func Parallelism() int {
	return max(2, runtime.NumCPU()/2)
}
