//go:build windows

package lock

import (
	"errors"
	"fmt"
	"os"
)

// LockDirectory creates the LOCK file of path exclusively. A LOCK file left
// behind by a crashed process must be removed by hand; Holder names the pid
// that wrote it.
func LockDirectory(path string) (*os.File, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create %s: %w", path, err)
	}

	f, err := os.OpenFile(lockPath(path), os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return nil, lockedError(path)
	}

	if err := writePID(f); err != nil {
		UnlockDirectory(f)
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return f, nil
}

// UnlockDirectory closes f and removes the lock file.
func UnlockDirectory(f *os.File) error {
	name := f.Name()
	return errors.Join(f.Close(), os.Remove(name))
}
