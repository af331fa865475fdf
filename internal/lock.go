package internal

import (
	"errors"
	"os"
)

// Lock is the exclusive lock file guarding one target across a whole
// copy-modify-swap sequence.
type Lock struct {
	path string
	file *os.File
}

// LockPath returns the lock file used for target.
func LockPath(target string) string {
	return target + ".lock"
}

// AcquireLock takes the lock of target without waiting.
// A held lock fails with an error for which IsSharingViolation reports true.
func AcquireLock(target string) (*Lock, error) {
	path := LockPath(target)
	f, err := OpenLock(path)
	if err != nil {
		return nil, err
	}
	return &Lock{path: path, file: f}, nil
}

// Path returns the path of the lock file.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	cerr := l.file.Close()
	rerr := os.Remove(l.path)
	if errors.Is(rerr, os.ErrNotExist) {
		rerr = nil
	}
	return errors.Join(cerr, rerr)
}
