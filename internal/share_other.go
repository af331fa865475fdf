//go:build !windows && !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package internal

import "os"

// OpenShared opens path read-only.
func OpenShared(path string) (*os.File, error) {
	return os.Open(path)
}

// OpenExclusive opens path for reading and writing.
// The platform offers no locking, so exclusivity is not enforced.
func OpenExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}

// OpenLock opens or creates path. No lock is taken.
func OpenLock(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
}

// IsSharingViolation always reports false.
func IsSharingViolation(error) bool {
	return false
}
