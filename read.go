package peres

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/maja42/peres/internal"
)

// ReadResource opens the image at path, probes (typ, primary) and then
// (typ, fallback), and returns a private copy of the first match. Within a
// name the language neutral entry is preferred over other languages, see
// Image.Find. found is false, with a nil error, when neither name exists.
// The image is released before ReadResource returns.
func ReadResource(path string, typ ResourceType, primary, fallback uint16, opts *ReadOptions) (data []byte, found bool, err error) {
	log := opts.logger()

	img, err := OpenImage(path, opts)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if cerr := img.Close(); cerr != nil {
			log.Warn("failed to release image", "path", path, "error", cerr)
		}
	}()

	for _, name := range []uint16{primary, fallback} {
		var id Identifier
		data, id, found, err = img.Find(typ, name)
		if err != nil {
			return nil, false, NewError(KindIO, "read resource", path, err)
		}
		if found {
			log.Debug("resource found", "path", path, "resource", id, "size", len(data))
			return data, true, nil
		}
	}
	log.Debug("resource not found", "path", path, "type", typ, "names", []uint16{primary, fallback})
	return nil, false, nil
}

// ReadManifest returns the embedded application manifest of an image,
// probing name 1 before name 2.
func ReadManifest(path string, opts *ReadOptions) ([]byte, bool, error) {
	return ReadResource(path, Manifest, ManifestPrimary, ManifestFallback, opts)
}

// ManifestSource tells where ResolveManifest found a manifest.
type ManifestSource uint8

const (
	NoManifest ManifestSource = iota
	// SideBySide is a "<image>.manifest" file next to the image.
	SideBySide
	// Embedded is a manifest resource inside the image.
	Embedded
)

func (s ManifestSource) String() string {
	switch s {
	case SideBySide:
		return "side-by-side"
	case Embedded:
		return "embedded"
	}
	return "none"
}

// manifestExtensions are the image kinds that can carry an assembly manifest.
var manifestExtensions = []string{".dll", ".exe", ".ocx"}

// HasManifestExtension reports whether path names a .dll, .exe or .ocx file.
func HasManifestExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range manifestExtensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// ResolveManifest locates the assembly manifest of a COM server image.
// A side-by-side "<path>.manifest" file wins over the embedded resource.
// Paths without a .dll, .exe or .ocx extension are skipped (NoManifest, nil).
func ResolveManifest(path string, opts *ReadOptions) ([]byte, ManifestSource, error) {
	log := opts.logger()

	if !HasManifestExtension(path) {
		log.Debug("skipping unsupported image", "path", path)
		return nil, NoManifest, nil
	}

	sidecar := path + ".manifest"
	ok, err := internal.IsFile(sidecar)
	if err != nil {
		return nil, NoManifest, NewError(KindIO, "probe manifest", sidecar, err)
	}
	if ok {
		data, err := os.ReadFile(sidecar)
		if err != nil {
			return nil, NoManifest, NewError(KindIO, "read manifest", sidecar, err)
		}
		log.Debug("using side-by-side manifest", "path", sidecar, "size", len(data))
		return data, SideBySide, nil
	}

	data, found, err := ReadManifest(path, opts)
	if err != nil {
		return nil, NoManifest, err
	}
	if !found {
		return nil, NoManifest, nil
	}
	return data, Embedded, nil
}
