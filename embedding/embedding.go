// Package embedding writes resources into PE images with copy-modify-swap transactions.
package embedding

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/maja42/peres"
	"github.com/maja42/peres/internal"
)

// Options configure the resource writer.
type Options struct {
	// Logger receives progress (info) and step (debug) events.
	// Nil disables logging.
	Logger hclog.Logger

	// TempDir holds the staging copy. Defaults to the directory of the target,
	// which keeps the final rename on one filesystem.
	TempDir string

	// Authenticode selects how signed images are treated.
	Authenticode Authenticode
}

func (o *Options) logger() hclog.Logger {
	if o == nil || o.Logger == nil {
		return hclog.NewNullLogger()
	}
	return o.Logger
}

func (o *Options) tempDir() string {
	if o == nil {
		return ""
	}
	return o.TempDir
}

func (o *Options) authenticode() Authenticode {
	if o == nil {
		return RefuseSigned
	}
	return o.Authenticode
}

// Embed stores payload as resource id inside the image at target.
//
// source is the image to start from; if empty or equal to target, target
// is updated in place. The image is duplicated to a temporary sibling file,
// updated there and then renamed over target. target is therefore either
// untouched or fully replaced, whatever step fails.
//
// A sibling "<target>.lock" file is held for the whole sequence; a second
// writer of the same target fails with an open error instead of silently
// overwriting the first.
//
// The payload is owned by Embed until it returns and is never retained.
func Embed(target, source string, id peres.Identifier, payload []byte, opts *Options) error {
	log := opts.logger()

	if len(payload) == 0 {
		return peres.NewError(peres.KindUpdate, "validate payload", target, peres.ErrEmptyPayload)
	}
	if err := id.Validate(); err != nil {
		return peres.NewError(peres.KindUpdate, "validate resource", target, err)
	}
	if source == "" {
		source = target
	}
	if err := requireFile("target", target); err != nil {
		return err
	}
	if source != target {
		if err := requireFile("source", source); err != nil {
			return err
		}
		log.Info("copying image", "source", source, "target", target)
	}

	log.Info("embedding resource", "target", target, "resource", id, "size", len(payload))

	lock, err := internal.AcquireLock(target)
	if err != nil {
		return peres.NewError(peres.KindOpen, "lock target", target, err)
	}
	defer func() {
		if lerr := lock.Release(); lerr != nil {
			log.Warn("failed to release target lock", "path", lock.Path(), "error", lerr)
		}
	}()

	tmp, err := internal.StageCopy(source, opts.tempDir(), internal.TempPattern(target))
	if err != nil {
		return peres.NewError(peres.KindCopy, "stage copy", source, err)
	}
	log.Debug("staged temporary copy", "path", tmp)

	tx, err := Begin(tmp, opts)
	if err != nil {
		log.Warn("keeping temporary copy for inspection", "path", tmp)
		return err
	}
	defer func() {
		if derr := tx.Discard(); derr != nil {
			log.Warn("failed to release update transaction", "path", tmp, "error", derr)
		}
	}()

	fail := func(err error) error {
		if derr := tx.Discard(); derr != nil {
			log.Warn("failed to release update transaction", "path", tmp, "error", derr)
		}
		removeTemp(log, tmp)
		return err
	}

	if err := tx.Update(id, payload); err != nil {
		return fail(err)
	}
	if err := tx.Commit(); err != nil {
		return fail(err)
	}

	if err := internal.Swap(tmp, target); err != nil {
		removeTemp(log, tmp)
		return peres.NewError(peres.KindCopy, "replace target", target, err)
	}

	log.Info("embedded resource", "target", target, "resource", id)
	return nil
}

// EmbedFile embeds the content of the file at payloadPath as resource id.
//
// See Embed for more information.
func EmbedFile(target, source, payloadPath string, id peres.Identifier, opts *Options) error {
	if err := requireFile("payload", payloadPath); err != nil {
		return err
	}
	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		return peres.NewError(peres.KindIO, "read payload", payloadPath, err)
	}
	return Embed(target, source, id, payload, opts)
}

// EmbedTypeLib embeds the type library at typeLibPath as resource
// peres.TypeLibraryID (type library, name 1, neutral language).
func EmbedTypeLib(target, source, typeLibPath string, opts *Options) error {
	opts.logger().Info("embedding type library", "typelib", typeLibPath, "target", target)
	return EmbedFile(target, source, typeLibPath, peres.TypeLibraryID, opts)
}

func requireFile(role, path string) error {
	ok, err := internal.IsFile(path)
	if err != nil {
		return peres.NewError(peres.KindIO, "probe "+role, path, err)
	}
	if !ok {
		return peres.NewError(peres.KindNotFound, "find "+role, path,
			fmt.Errorf("could not find %s file: %w", role, os.ErrNotExist))
	}
	return nil
}

func removeTemp(log hclog.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove temporary copy", "path", path, "error", err)
	}
}
