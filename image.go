package peres

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/tc-hib/winres"

	"github.com/maja42/peres/internal"
)

// Mode tells how an image handle was acquired.
type Mode uint8

const (
	// ModeUpdate is an exclusive, write-intent handle held by an update transaction.
	ModeUpdate Mode = iota + 1
	// ModeMappedReadOnly is a shared read-only handle used for resource inspection.
	// Only the headers and the resource section are decoded; the image is never
	// loaded for execution, so no entry point or initializer can run.
	ModeMappedReadOnly
)

func (m Mode) String() string {
	switch m {
	case ModeUpdate:
		return "update"
	case ModeMappedReadOnly:
		return "mapped-readonly"
	}
	return "invalid"
}

// ReadOptions configure the resource reader.
type ReadOptions struct {
	// Logger receives debug events. Nil disables logging.
	Logger hclog.Logger
}

func (o *ReadOptions) logger() hclog.Logger {
	if o == nil || o.Logger == nil {
		return hclog.NewNullLogger()
	}
	return o.Logger
}

// Image is a read-only view of the resources of an executable image.
type Image struct {
	path      string
	file      *os.File
	resources *winres.ResourceSet
	entries   []internal.Entry
}

// OpenImage opens an executable image in ModeMappedReadOnly.
//
// The file stays open until Close, sharing read, write and delete access with
// other processes where the platform supports share modes.
// An image without a resource directory is valid and has no resources.
func OpenImage(path string, opts *ReadOptions) (*Image, error) {
	log := opts.logger()

	f, err := internal.OpenShared(path)
	if err != nil {
		// A missing image is an open failure too; os.ErrNotExist stays in the chain.
		return nil, NewError(KindOpen, "open image", path, err)
	}
	keep := false
	defer func() {
		if !keep {
			_ = f.Close()
		}
	}()

	rs, err := internal.LoadResources(f)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, NewError(KindIO, "read resource directory", path, err)
		}
		return nil, NewError(KindOpen, "read resource directory", path, err)
	}

	img := &Image{
		path:      path,
		file:      f,
		resources: rs,
		entries:   internal.Entries(rs),
	}
	log.Debug("opened image", "path", path, "mode", ModeMappedReadOnly, "resources", len(img.entries))

	keep = true
	return img, nil
}

// Close releases the image. Close returns ErrClosed if it has already been called.
func (img *Image) Close() error {
	if img.file == nil {
		return ErrClosed
	}
	err := img.file.Close()
	img.file = nil
	img.resources = nil
	img.entries = nil
	return err
}

// Path returns the path the image was opened from.
func (img *Image) Path() string {
	return img.path
}

// Mode returns ModeMappedReadOnly.
func (img *Image) Mode() Mode {
	return ModeMappedReadOnly
}

// Lookup returns a private copy of the resource data.
// found is false if no resource with exactly this identifier exists.
// A zero-length resource is found and yields an empty, non-nil slice.
func (img *Image) Lookup(id Identifier) (data []byte, found bool, err error) {
	if img.file == nil {
		return nil, false, ErrClosed
	}
	if id.Type == 0 || id.Name == 0 {
		return nil, false, nil
	}
	raw := img.resources.Get(winres.ID(id.Type), winres.ID(id.Name), id.Language)
	if raw == nil {
		return nil, false, nil
	}
	data = make([]byte, len(raw))
	copy(data, raw)
	return data, true, nil
}

// Resources lists the numerically addressed resources in directory order.
// String-named entries are not listed.
func (img *Image) Resources() ([]Identifier, error) {
	if img.file == nil {
		return nil, ErrClosed
	}
	if len(img.entries) == 0 {
		return nil, nil
	}
	ids := make([]Identifier, len(img.entries))
	for i, e := range img.entries {
		ids[i] = Identifier{Type: ResourceType(e.Type), Name: e.Name, Language: e.Language}
	}
	return ids, nil
}

// Find locates resource name of type typ the way the loader does without a
// language preference: the language neutral entry wins, otherwise the first
// language stored under (typ, name) in directory order is used.
// id reports the identifier that matched.
func (img *Image) Find(typ ResourceType, name uint16) (data []byte, id Identifier, found bool, err error) {
	id = Identifier{Type: typ, Name: name, Language: LangNeutral}
	data, found, err = img.Lookup(id)
	if err != nil || found {
		return data, id, found, err
	}
	for _, e := range img.entries {
		if e.Type == uint16(typ) && e.Name == name {
			id.Language = e.Language
			data, found, err = img.Lookup(id)
			return data, id, found, err
		}
	}
	return nil, Identifier{}, false, nil
}

// Count returns the number of numerically addressed resources.
func (img *Image) Count() (int, error) {
	if img.file == nil {
		return 0, ErrClosed
	}
	return len(img.entries), nil
}

// Size returns the size of a resource in bytes, or zero if it does not exist.
func (img *Image) Size(id Identifier) (int64, error) {
	if img.file == nil {
		return 0, ErrClosed
	}
	for _, e := range img.entries {
		if e.Type == uint16(id.Type) && e.Name == id.Name && e.Language == id.Language {
			return int64(len(e.Data)), nil
		}
	}
	return 0, nil
}

// Reader groups basic methods available on resource data.
type Reader interface {
	io.ReadSeeker
	io.ReaderAt
	Size() int64
}

// Reader returns a reader over a private copy of the resource.
// The reader is nil if the resource does not exist.
func (img *Image) Reader(id Identifier) (Reader, error) {
	data, found, err := img.Lookup(id)
	if err != nil || !found {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
