//go:build unix

package lock

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// LockDirectory takes an exclusive, non-blocking flock(2) on the LOCK file of
// path, creating the directory if needed, and records the caller's pid in it.
// The returned file must stay open for as long as the lock is held.
func LockDirectory(path string) (*os.File, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create %s: %w", path, err)
	}

	f, err := os.OpenFile(lockPath(path), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("unable to open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, lockedError(path)
	}

	if err := writePID(f); err != nil {
		UnlockDirectory(f)
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return f, nil
}

// UnlockDirectory releases the flock and closes f. The file stays on disk.
func UnlockDirectory(f *os.File) error {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return errors.Join(err, f.Close())
}
