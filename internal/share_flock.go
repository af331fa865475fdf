//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package internal

import (
	"os"

	"golang.org/x/sys/unix"
)

// OpenShared opens path read-only. Unix has no share modes, so concurrent
// writers and renames are never blocked.
func OpenShared(path string) (*os.File, error) {
	return os.Open(path)
}

// OpenExclusive opens path for reading and writing and takes a
// non-blocking exclusive advisory lock. The lock is released on Close.
func OpenExclusive(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, &os.PathError{Op: "flock", Path: path, Err: err}
	}
	return f, nil
}

// OpenLock opens or creates path and takes a non-blocking exclusive lock.
// A file unlinked by its previous holder between open and flock is rejected.
func OpenLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, &os.PathError{Op: "flock", Path: path, Err: err}
	}
	held, herr := f.Stat()
	linked, lerr := os.Stat(path)
	if herr != nil || lerr != nil || !os.SameFile(held, linked) {
		_ = f.Close()
		return nil, &os.PathError{Op: "flock", Path: path, Err: unix.EWOULDBLOCK}
	}
	return f, nil
}

// IsSharingViolation reports whether err stems from another lock holder.
func IsSharingViolation(err error) bool {
	return errorIs(err, unix.EWOULDBLOCK)
}
