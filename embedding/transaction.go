package embedding

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/tc-hib/winres"

	"github.com/maja42/peres"
	"github.com/maja42/peres/internal"
)

// Authenticode selects how signed images are treated on commit.
type Authenticode uint8

const (
	// RefuseSigned fails the commit of a signed image.
	RefuseSigned Authenticode = iota
	// IgnoreSignature rewrites the image and leaves the now invalid signature in place.
	IgnoreSignature
	// RemoveSignature rewrites the image and strips the signature.
	RemoveSignature
)

func (a Authenticode) writeEXE(rs *winres.ResourceSet, dst io.Writer, src io.ReadSeeker) error {
	switch a {
	case IgnoreSignature:
		return rs.WriteToEXE(dst, src, winres.WithAuthenticode(winres.IgnoreSignature))
	case RemoveSignature:
		return rs.WriteToEXE(dst, src, winres.WithAuthenticode(winres.RemoveSignature))
	}
	return rs.WriteToEXE(dst, src)
}

// updateFile is the exclusive handle a transaction rewrites on commit.
type updateFile interface {
	io.Reader
	io.WriterAt
	Truncate(size int64) error
	Sync() error
	Close() error
}

// openUpdateFile acquires the exclusive handle. Tests replace it to inject faults.
var openUpdateFile = func(path string) (updateFile, error) {
	return internal.OpenExclusive(path)
}

type update struct {
	id   peres.Identifier
	data []byte // nil deletes
}

// Transaction is an open update session against one image file.
//
// Updates are staged in submission order and only written by Commit.
// Every transaction ends with exactly one Commit or Discard; Discard is a
// no-op on an ended transaction and can always be deferred.
type Transaction struct {
	path         string
	file         updateFile
	src          []byte
	resources    *winres.ResourceSet
	pending      []update
	signed       bool
	authenticode Authenticode
	log          hclog.Logger
}

// Begin opens path in peres.ModeUpdate and loads its resource directory.
func Begin(path string, opts *Options) (*Transaction, error) {
	log := opts.logger()

	f, err := openUpdateFile(path)
	if err != nil {
		return nil, peres.NewError(peres.KindOpen, "begin update", path, err)
	}

	src, err := io.ReadAll(f)
	if err != nil {
		_ = f.Close()
		return nil, peres.NewError(peres.KindOpen, "begin update", path, err)
	}
	rs, err := internal.LoadResources(bytes.NewReader(src))
	if err != nil {
		_ = f.Close()
		return nil, peres.NewError(peres.KindOpen, "begin update", path, err)
	}
	signed, err := winres.IsSignedEXE(bytes.NewReader(src))
	if err != nil {
		_ = f.Close()
		return nil, peres.NewError(peres.KindOpen, "begin update", path, err)
	}
	if signed && opts.authenticode() == RefuseSigned {
		log.Warn("image carries an authenticode signature, commit will be refused", "path", path)
	}

	log.Debug("update transaction started", "path", path, "mode", peres.ModeUpdate, "size", len(src), "signed", signed)
	return &Transaction{
		path:         path,
		file:         f,
		src:          src,
		resources:    rs,
		signed:       signed,
		authenticode: opts.authenticode(),
		log:          log,
	}, nil
}

// Path returns the file the transaction writes to.
func (tx *Transaction) Path() string {
	return tx.path
}

// Signed reports whether the image carried an authenticode signature when the transaction began.
func (tx *Transaction) Signed() bool {
	return tx.signed
}

// Pending returns the number of staged updates.
func (tx *Transaction) Pending() int {
	return len(tx.pending)
}

// Update stages data as the content of resource id.
// The transaction owns data until it ends.
func (tx *Transaction) Update(id peres.Identifier, data []byte) error {
	if tx.file == nil {
		return peres.NewError(peres.KindUpdate, "update resource", tx.path, peres.ErrClosed)
	}
	if err := id.Validate(); err != nil {
		return peres.NewError(peres.KindUpdate, "update resource", tx.path, err)
	}
	if len(data) == 0 {
		return peres.NewError(peres.KindUpdate, "update resource", tx.path, peres.ErrEmptyPayload)
	}
	tx.pending = append(tx.pending, update{id: id, data: data})
	tx.log.Debug("staged resource update", "resource", id, "size", len(data))
	return nil
}

// Delete stages the removal of resource id. Removing a missing resource is not an error.
func (tx *Transaction) Delete(id peres.Identifier) error {
	if tx.file == nil {
		return peres.NewError(peres.KindUpdate, "delete resource", tx.path, peres.ErrClosed)
	}
	if err := id.Validate(); err != nil {
		return peres.NewError(peres.KindUpdate, "delete resource", tx.path, err)
	}
	tx.pending = append(tx.pending, update{id: id})
	tx.log.Debug("staged resource removal", "resource", id)
	return nil
}

// Commit applies the staged updates in order, rewrites the image in place
// and ends the transaction. The handle is released even if Commit fails.
func (tx *Transaction) Commit() error {
	if tx.file == nil {
		return peres.NewError(peres.KindCommit, "commit", tx.path, peres.ErrClosed)
	}
	err := tx.commit()
	if cerr := tx.release(); err == nil && cerr != nil {
		err = peres.NewError(peres.KindCommit, "commit", tx.path, cerr)
	}
	return err
}

func (tx *Transaction) commit() error {
	for _, u := range tx.pending {
		err := tx.resources.Set(winres.ID(u.id.Type), winres.ID(u.id.Name), u.id.Language, u.data)
		if err != nil {
			return peres.NewError(peres.KindCommit, "apply "+u.id.String(), tx.path, err)
		}
	}

	out := new(bytes.Buffer)
	if err := tx.authenticode.writeEXE(tx.resources, out, bytes.NewReader(tx.src)); err != nil {
		return peres.NewError(peres.KindCommit, "rewrite resource section", tx.path, err)
	}

	if _, err := tx.file.WriteAt(out.Bytes(), 0); err != nil {
		return peres.NewError(peres.KindCommit, "write image", tx.path, err)
	}
	if err := tx.file.Truncate(int64(out.Len())); err != nil {
		return peres.NewError(peres.KindCommit, "write image", tx.path, err)
	}
	if err := tx.file.Sync(); err != nil {
		return peres.NewError(peres.KindCommit, "sync image", tx.path, err)
	}

	tx.log.Debug("update transaction committed", "path", tx.path,
		"updates", len(tx.pending), "size_before", len(tx.src), "size_after", out.Len())
	return nil
}

// Discard ends the transaction without writing anything.
func (tx *Transaction) Discard() error {
	if tx.file == nil {
		return nil
	}
	tx.log.Debug("update transaction discarded", "path", tx.path, "updates", len(tx.pending))
	return tx.release()
}

func (tx *Transaction) release() error {
	f := tx.file
	tx.file = nil
	tx.src = nil
	tx.resources = nil
	tx.pending = nil
	if err := f.Close(); err != nil {
		return fmt.Errorf("release %q: %w", tx.path, err)
	}
	return nil
}
