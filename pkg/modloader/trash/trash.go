// Package trash removes mod directories, moving them to the desktop trash
// when a trash tool is installed so a removed mod can be restored by hand.
package trash

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/jamesainslie/modloader/pkg/modloader/logging"
)

// commandTimeout is the maximum time to wait for a trash command.
const commandTimeout = 30 * time.Second

// Method reports how a path was removed.
type Method string

const (
	Trashed Method = "trashed"
	Deleted Method = "deleted"
)

// runner executes an external command. Tests replace it.
type runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Remover removes files and directories.
type Remover struct {
	// Permanent skips the trash and deletes directly.
	Permanent bool

	lookPath func(string) (string, error)
	run      runner
}

// New returns a Remover that prefers the trash unless permanent is set.
func New(permanent bool) *Remover {
	return &Remover{
		Permanent: permanent,
		lookPath:  exec.LookPath,
		run:       execRunner,
	}
}

// Remove moves path to the trash, or deletes it when no trash tool works or
// the remover is permanent.
func (r *Remover) Remove(ctx context.Context, path string) (Method, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("cannot remove %q: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve absolute path for %q: %w", path, err)
	}

	log := logging.Get("trash").With("path", absPath)

	if !r.Permanent {
		if tool, ok := r.trash(ctx, absPath); ok {
			log.Info("moved to trash", "tool", tool)
			return Trashed, nil
		}
		log.Warn("no working trash tool, deleting permanently")
	}

	if err := fallbackDelete(absPath); err != nil {
		return "", err
	}
	log.Info("deleted permanently")
	return Deleted, nil
}

// Func adapts the remover to a plain delete callback.
func (r *Remover) Func(ctx context.Context) func(path string) error {
	return func(path string) error {
		_, err := r.Remove(ctx, path)
		return err
	}
}

// trash tries gio, then trash-cli. It reports the tool that succeeded.
func (r *Remover) trash(ctx context.Context, path string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	tools := []struct {
		name string
		args []string
	}{
		{"gio", []string{"trash", path}},
		{"trash-put", []string{path}},
	}

	for _, tool := range tools {
		bin, err := r.lookPath(tool.name)
		if err != nil {
			continue
		}
		if err := r.run(ctx, bin, tool.args...); err == nil {
			return tool.name, true
		}
	}
	return "", false
}

// fallbackDelete permanently removes a file or directory.
func fallbackDelete(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete %q: %w", path, err)
	}
	return nil
}
