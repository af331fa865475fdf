package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func errorIs(err, target error) bool {
	return errors.Is(err, target)
}

// IsFile reports whether path names an existing regular file.
// A missing file is not an error; any other stat failure is.
func IsFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%q is a directory", path)
	}
	return true, nil
}

// TempPattern is the os.CreateTemp pattern for staging copies of target.
func TempPattern(target string) string {
	return filepath.Base(target) + ".*.tmp"
}

// StageCopy duplicates src into a new temporary file inside dir and returns its path.
// If dir is empty, the directory of src is used.
// Nothing is left behind on failure.
func StageCopy(src, dir, pattern string) (string, error) {
	if dir == "" {
		dir = filepath.Dir(src)
	}
	in, err := OpenShared(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	tmp := out.Name()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("copy %q: %w", src, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// Swap replaces target with tmp in a single rename.
// tmp takes over the permission bits of an existing target.
// On failure tmp is still present and target is unchanged.
func Swap(tmp, target string) error {
	if info, err := os.Stat(target); err == nil {
		if err := os.Chmod(tmp, info.Mode().Perm()); err != nil {
			return err
		}
	}
	return os.Rename(tmp, target)
}
