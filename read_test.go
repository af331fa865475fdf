package peres

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maja42/peres/internal"
	"github.com/maja42/peres/internal/petest"
)

var (
	primaryManifest  = []byte(`<assembly manifestVersion="1.0"><assemblyIdentity name="primary"/></assembly>`)
	fallbackManifest = []byte(`<assembly manifestVersion="1.0"><assemblyIdentity name="fallback"/></assembly>`)
)

func writeImage(t *testing.T, name string, res ...petest.Resource) string {
	return petest.Write(t, t.TempDir(), name, petest.Options{DLL: true, Resources: res})
}

func TestReadManifest(t *testing.T) {
	t.Run("primary slot", func(t *testing.T) {
		path := writeImage(t, "both.dll",
			petest.Resource{Type: uint16(Manifest), Name: 1, Data: primaryManifest},
			petest.Resource{Type: uint16(Manifest), Name: 2, Data: fallbackManifest},
		)
		data, found, err := ReadManifest(path, nil)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, primaryManifest, data)
	})

	t.Run("fallback slot", func(t *testing.T) {
		path := writeImage(t, "fallback.dll",
			petest.Resource{Type: uint16(Manifest), Name: 2, Data: fallbackManifest},
		)

		img, err := OpenImage(path, nil)
		require.NoError(t, err)
		_, found, err := img.Lookup(Identifier{Type: Manifest, Name: ManifestPrimary})
		require.NoError(t, err)
		assert.False(t, found)
		require.NoError(t, img.Close())

		data, found, err := ReadManifest(path, nil)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, fallbackManifest, data)
	})

	t.Run("absent", func(t *testing.T) {
		path := writeImage(t, "none.dll",
			petest.Resource{Type: uint16(Version), Name: 1, Data: []byte{1}},
		)
		data, found, err := ReadManifest(path, nil)
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, data)
	})

	t.Run("no resource directory", func(t *testing.T) {
		path := writeImage(t, "bare.dll")
		data, found, err := ReadManifest(path, nil)
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, data)
	})

	t.Run("language specific manifest", func(t *testing.T) {
		path := writeImage(t, "localized.dll",
			petest.Resource{Type: uint16(Manifest), Name: 1, Language: 0x409, Data: primaryManifest},
		)
		data, found, err := ReadManifest(path, nil)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, primaryManifest, data)
	})

	t.Run("neutral language preferred", func(t *testing.T) {
		path := writeImage(t, "multi.dll",
			petest.Resource{Type: uint16(Manifest), Name: 1, Language: 0x407, Data: fallbackManifest},
			petest.Resource{Type: uint16(Manifest), Name: 1, Language: LangNeutral, Data: primaryManifest},
		)
		data, found, err := ReadManifest(path, nil)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, primaryManifest, data)
	})

	t.Run("localized primary wins over neutral fallback", func(t *testing.T) {
		path := writeImage(t, "mixed.dll",
			petest.Resource{Type: uint16(Manifest), Name: 1, Language: 0x409, Data: primaryManifest},
			petest.Resource{Type: uint16(Manifest), Name: 2, Data: fallbackManifest},
		)
		data, found, err := ReadManifest(path, nil)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, primaryManifest, data)
	})

	t.Run("first language in directory order", func(t *testing.T) {
		path := writeImage(t, "two.dll",
			petest.Resource{Type: uint16(Manifest), Name: 2, Language: 0x409, Data: primaryManifest},
			petest.Resource{Type: uint16(Manifest), Name: 2, Language: 0x407, Data: fallbackManifest},
		)
		data, found, err := ReadManifest(path, nil)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, fallbackManifest, data)
	})

	t.Run("missing image", func(t *testing.T) {
		_, found, err := ReadManifest(filepath.Join(t.TempDir(), "missing.dll"), nil)
		assert.ErrorIs(t, err, ErrOpen)
		assert.False(t, found)
	})
}

func TestReadResource_ZeroLength(t *testing.T) {
	path := writeImage(t, "empty.dll",
		petest.Resource{Type: uint16(TypeLibrary), Name: 1, Data: []byte{}},
	)
	data, found, err := ReadResource(path, TypeLibrary, 1, 2, nil)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func TestReadResource_RawType(t *testing.T) {
	payload := []byte("custom")
	path := writeImage(t, "custom.dll",
		petest.Resource{Type: 0x2001, Name: 5, Data: payload},
	)
	data, found, err := ReadResource(path, RawType(0x2001), 4, 5, nil)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload, data)
}

func TestReadResource_ReleasesImage(t *testing.T) {
	path := writeImage(t, "release.dll",
		petest.Resource{Type: uint16(Manifest), Name: 1, Data: primaryManifest},
	)
	_, _, err := ReadManifest(path, nil)
	require.NoError(t, err)

	// A released image can be removed and replaced.
	assert.NoError(t, os.Remove(path))
}

func TestReadManifest_OpenElsewhere(t *testing.T) {
	path := writeImage(t, "busy.dll",
		petest.Resource{Type: uint16(Manifest), Name: 1, Data: primaryManifest},
	)

	t.Run("shared reader", func(t *testing.T) {
		other, err := internal.OpenShared(path)
		require.NoError(t, err)
		defer other.Close()

		data, found, err := ReadManifest(path, nil)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, primaryManifest, data)
	})

	t.Run("exclusive writer", func(t *testing.T) {
		writer, err := internal.OpenExclusive(path)
		require.NoError(t, err)
		defer writer.Close()

		data, found, err := ReadManifest(path, nil)
		if runtime.GOOS == "windows" {
			// share mode 0 denies every other handle
			assert.ErrorIs(t, err, ErrOpen)
			assert.True(t, internal.IsSharingViolation(err), "%v", err)
			assert.False(t, found)
			return
		}
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, primaryManifest, data)
	})
}

func TestHasManifestExtension(t *testing.T) {
	for path, want := range map[string]bool{
		"server.dll":         true,
		"SERVER.DLL":         true,
		"app.exe":            true,
		"control.OCX":        true,
		"types.tlb":          false,
		"server.dll.bak":     false,
		"noext":              false,
		"dir.dll/server.txt": false,
	} {
		assert.Equal(t, want, HasManifestExtension(path), path)
	}
}

func TestResolveManifest(t *testing.T) {
	t.Run("side-by-side wins", func(t *testing.T) {
		path := writeImage(t, "server.dll",
			petest.Resource{Type: uint16(Manifest), Name: 1, Data: primaryManifest},
		)
		sidecar := []byte("<assembly><assemblyIdentity name=\"sidecar\"/></assembly>")
		require.NoError(t, os.WriteFile(path+".manifest", sidecar, 0o644))

		data, src, err := ResolveManifest(path, nil)
		assert.NoError(t, err)
		assert.Equal(t, SideBySide, src)
		assert.Equal(t, sidecar, data)
	})

	t.Run("embedded", func(t *testing.T) {
		path := writeImage(t, "server.exe",
			petest.Resource{Type: uint16(Manifest), Name: 2, Data: fallbackManifest},
		)
		data, src, err := ResolveManifest(path, nil)
		assert.NoError(t, err)
		assert.Equal(t, Embedded, src)
		assert.Equal(t, fallbackManifest, data)
	})

	t.Run("none", func(t *testing.T) {
		path := writeImage(t, "server.ocx")
		data, src, err := ResolveManifest(path, nil)
		assert.NoError(t, err)
		assert.Equal(t, NoManifest, src)
		assert.Nil(t, data)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeImage(t, "server.tlb",
			petest.Resource{Type: uint16(Manifest), Name: 1, Data: primaryManifest},
		)
		data, src, err := ResolveManifest(path, nil)
		assert.NoError(t, err)
		assert.Equal(t, NoManifest, src)
		assert.Nil(t, data)
	})
}
