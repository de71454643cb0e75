package lock_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/0xRadioAc7iv/go-seqcask/internal/lock"
)

func TestLockFile(t *testing.T) {
	t.Run("second lock on a held directory fails", func(t *testing.T) {
		dir := t.TempDir()

		f, err := lock.LockDirectory(dir)
		if err != nil {
			t.Fatalf("could not take initial lock: %v", err)
		}

		if got := lock.Holder(dir); got != os.Getpid() {
			t.Errorf("Holder() = %d, want %d", got, os.Getpid())
		}

		_, err = lock.LockDirectory(dir)
		if !errors.Is(err, lock.ErrLocked) {
			t.Errorf("second LockDirectory() error = %v, want ErrLocked", err)
		}
		if err != nil && !strings.Contains(err.Error(), "pid "+strconv.Itoa(os.Getpid())) {
			t.Errorf("error %q does not name the holder", err)
		}

		if err := lock.UnlockDirectory(f); err != nil {
			t.Errorf("UnlockDirectory() error: %v", err)
		}
	})

	t.Run("directory can be locked again after unlock", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "index")

		f, err := lock.LockDirectory(dir)
		if err != nil {
			t.Fatalf("LockDirectory() error: %v", err)
		}
		lock.UnlockDirectory(f)

		f, err = lock.LockDirectory(dir)
		if err != nil {
			t.Fatalf("relock failed: %v", err)
		}
		lock.UnlockDirectory(f)
	})
}

func TestHolderWithoutLockFile(t *testing.T) {
	if pid := lock.Holder(t.TempDir()); pid != 0 {
		t.Errorf("Holder() = %d, want 0", pid)
	}
}
