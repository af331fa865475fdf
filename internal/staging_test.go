package internal

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRandom(t *testing.T, path string, n int) []byte {
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return data
}

func TestIsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.dll")
	writeRandom(t, file, 16)

	ok, err := IsFile(file)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsFile(filepath.Join(dir, "missing.dll"))
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = IsFile(dir)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestTempPattern(t *testing.T) {
	pattern := TempPattern(filepath.Join("build", "out", "server.dll"))
	assert.Equal(t, "server.dll.*.tmp", pattern)
}

func TestStageCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.dll")
	data := writeRandom(t, src, 64*1024+17)

	tmp, err := StageCopy(src, "", TempPattern(src))
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(tmp))
	assert.True(t, strings.HasPrefix(filepath.Base(tmp), "app.dll."))
	assert.True(t, strings.HasSuffix(tmp, ".tmp"))

	copied, err := os.ReadFile(tmp)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, copied))

	// the source stays untouched
	orig, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, data, orig)
}

func TestStageCopy_OtherDir(t *testing.T) {
	src := filepath.Join(t.TempDir(), "app.dll")
	writeRandom(t, src, 100)
	staging := t.TempDir()

	tmp, err := StageCopy(src, staging, TempPattern(src))
	require.NoError(t, err)
	assert.Equal(t, staging, filepath.Dir(tmp))
}

func TestStageCopy_MissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := StageCopy(filepath.Join(dir, "missing.dll"), "", "missing.dll.*.tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStageCopy_MissingDir(t *testing.T) {
	src := filepath.Join(t.TempDir(), "app.dll")
	writeRandom(t, src, 100)

	_, err := StageCopy(src, filepath.Join(t.TempDir(), "nope"), TempPattern(src))
	assert.Error(t, err)
}

func TestSwap(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app.exe")
	writeRandom(t, target, 32)
	if runtime.GOOS != "windows" {
		require.NoError(t, os.Chmod(target, 0o750))
	}

	tmp := filepath.Join(dir, "app.exe.1.tmp")
	data := writeRandom(t, tmp, 48)

	require.NoError(t, Swap(tmp, target))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = os.Stat(tmp)
	assert.ErrorIs(t, err, os.ErrNotExist)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())
	}
}

func TestSwap_MissingTemp(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app.exe")
	data := writeRandom(t, target, 32)

	assert.Error(t, Swap(filepath.Join(dir, "gone.tmp"), target))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
