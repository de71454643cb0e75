// Package lock keeps two processes from opening the same index directory.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrLocked is returned when another process holds the directory.
var ErrLocked = errors.New("directory already in use by another seqcask instance")

const lockFileName = "LOCK"

func lockPath(dir string) string { return filepath.Join(dir, lockFileName) }

// Holder returns the pid recorded by the process holding dir, or 0 when the
// lock file is missing or unreadable.
func Holder(dir string) int {
	b, err := os.ReadFile(lockPath(dir))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0
	}
	return pid
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	return err
}

func lockedError(dir string) error {
	if pid := Holder(dir); pid > 0 {
		return fmt.Errorf("%w: %s (pid %d)", ErrLocked, dir, pid)
	}
	return fmt.Errorf("%w: %s", ErrLocked, dir)
}
