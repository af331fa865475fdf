//go:build windows

package internal

import (
	"os"

	"golang.org/x/sys/windows"
)

// OpenShared opens path read-only while allowing other processes to read,
// write, rename or delete it.
func OpenShared(path string) (*os.File, error) {
	return createFile(path, windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE, windows.OPEN_EXISTING)
}

// OpenExclusive opens path for reading and writing with share mode 0.
// A file that is open elsewhere fails with ERROR_SHARING_VIOLATION.
func OpenExclusive(path string) (*os.File, error) {
	return createFile(path, windows.GENERIC_READ|windows.GENERIC_WRITE, 0, windows.OPEN_EXISTING)
}

// OpenLock opens or creates path with share mode 0.
func OpenLock(path string) (*os.File, error) {
	return createFile(path, windows.GENERIC_READ|windows.GENERIC_WRITE, 0, windows.OPEN_ALWAYS)
}

func createFile(path string, access, share, disposition uint32) (*os.File, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	h, err := windows.CreateFile(name, access, share, nil,
		disposition, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(h), path), nil
}

// IsSharingViolation reports whether err stems from another open handle.
func IsSharingViolation(err error) bool {
	return errorIs(err, windows.ERROR_SHARING_VIOLATION) || errorIs(err, windows.ERROR_LOCK_VIOLATION)
}
