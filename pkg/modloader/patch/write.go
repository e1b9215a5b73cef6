package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jamesainslie/modloader/pkg/modloader/fsutil"
)

// Install writes the patched signature. The first install moves the stock
// executable to the backup path; later installs replace the current file
// and leave the existing backup alone.
func (e *Engine) Install() (Outcome, error) {
	return e.apply(Patched, SignaturePatched, true)
}

// Uninstall writes the stock signature back.
func (e *Engine) Uninstall() (Outcome, error) {
	return e.apply(Unpatched, SignatureUnpatched, false)
}

// Toggle uninstalls a patched executable and installs otherwise. It returns
// the resulting state.
func (e *Engine) Toggle() (State, error) {
	st, err := e.Status()
	if err != nil {
		return st, err
	}

	if st == Patched {
		if _, err := e.Uninstall(); err != nil {
			return Patched, err
		}
		return Unpatched, nil
	}

	if _, err := e.Install(); err != nil {
		return st, err
	}
	return Patched, nil
}

func (e *Engine) apply(want State, sig []byte, backup bool) (Outcome, error) {
	t, err := e.Target()
	if err != nil {
		return NotApplied, err
	}

	log := e.logger().With("path", t.Path)

	img, err := readImage(t.Path)
	if err != nil {
		return NotApplied, err
	}

	m := e.locate(t.Path, img)
	switch m.state {
	case want:
		log.Info("executable already in requested state", "state", want)
		return AlreadyApplied, nil
	case Unknown:
		return NotApplied, fmt.Errorf("%w in %s", ErrSignatureNotFound, t.Path)
	}

	copy(img.data[m.offset:m.offset+SignatureLen], sig)

	if err := e.write(t, img.data, img.info.Mode().Perm(), backup); err != nil {
		return NotApplied, err
	}

	if info, err := os.Stat(t.Path); err == nil {
		e.remember(t.Path, info, m.offset)
	}

	log.Info("rewrote executable signature", "state", want, "offset", m.offset)
	return Applied, nil
}

func (e *Engine) write(t Target, data []byte, perm fs.FileMode, backup bool) error {
	if backup {
		exists, err := fsutil.Exists(t.Backup)
		if err != nil {
			return fmt.Errorf("checking backup: %w", err)
		}
		if !exists {
			return e.writeWithBackup(t, data, perm)
		}
	}

	if err := fsutil.WriteFileAtomic(t.Path, data, perm); err != nil {
		return fmt.Errorf("writing executable: %w", err)
	}
	return nil
}

// writeWithBackup moves the original aside and writes data in its place,
// moving the original back if the write fails.
func (e *Engine) writeWithBackup(t Target, data []byte, perm fs.FileMode) error {
	if err := os.Rename(t.Path, t.Backup); err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}

	if err := fsutil.WriteFileAtomic(t.Path, data, perm); err != nil {
		werr := fmt.Errorf("writing executable: %w", err)
		if rerr := os.Rename(t.Backup, t.Path); rerr != nil {
			return errors.Join(werr, fmt.Errorf("restoring original: %w", rerr))
		}
		return werr
	}

	e.logger().Info("created backup", "backup", t.Backup)
	return nil
}
