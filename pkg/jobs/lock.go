package jobs

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"
)

// ErrDirectoryLocked is returned when another job holds a directory
var ErrDirectoryLocked = errors.New("directory is locked by another job")

// 🔒 Locker hands out advisory locks keyed by target directory. The lock
// files live in Dir, never inside the directory being modified.
type Locker struct {
	// Dir holds the lock files; empty means os.TempDir()
	Dir string
}

// LockPath is the lock file used for a target directory
func (l *Locker) LockPath(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}

	base := l.Dir
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "replacepr-"+uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String()+".lock")
}

// TryLock locks dir without blocking
func (l *Locker) TryLock(dir string) (*DirLock, error) {
	path := l.LockPath(dir)
	fl := flock.New(path)

	acquired, err := fl.TryLock()
	if err != nil {
		return nil, errors.Errorf("trying lock on %s: %w", path, err)
	}
	if !acquired {
		return nil, errors.Errorf("%w: %s", ErrDirectoryLocked, dir)
	}
	return &DirLock{flock: fl, dir: dir}, nil
}

// DirLock is a held directory lock
type DirLock struct {
	flock *flock.Flock
	dir   string
}

// Unlock releases the lock. The lock file is left in place so that a
// concurrent TryLock never races with its removal.
func (d *DirLock) Unlock() error {
	if err := d.flock.Unlock(); err != nil {
		return errors.Errorf("releasing lock on %s: %w", d.dir, err)
	}
	return nil
}
