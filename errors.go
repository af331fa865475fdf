package peres

import (
	"errors"
	"fmt"
)

// Kind classifies failures of the reader and the writer.
type Kind uint8

const (
	KindNotFound Kind = iota + 1 // target, source or payload file missing
	KindOpen                     // no update handle or read-only mapping
	KindUpdate                   // a single staged update was rejected
	KindCommit                   // finalizing the transaction failed
	KindCopy                     // temp-file staging or swap failed
	KindIO                       // reading resource bytes failed
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindOpen:
		return "open"
	case KindUpdate:
		return "update"
	case KindCommit:
		return "commit"
	case KindCopy:
		return "copy"
	case KindIO:
		return "i/o"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrNotFound = &Error{Kind: KindNotFound}
	ErrOpen     = &Error{Kind: KindOpen}
	ErrUpdate   = &Error{Kind: KindUpdate}
	ErrCommit   = &Error{Kind: KindCommit}
	ErrCopy     = &Error{Kind: KindCopy}
	ErrIO       = &Error{Kind: KindIO}
)

// ErrClosed is returned when a released handle or a finished transaction is used.
var ErrClosed = errors.New("peres: handle already released")

// ErrEmptyPayload is returned when an empty byte sequence is submitted for embedding.
var ErrEmptyPayload = errors.New("empty payload")

// Error reports a failed reader or writer step.
type Error struct {
	Kind Kind
	Op   string // failed step, e.g. "begin update"
	Path string
	Err  error
}

// NewError wraps err with a kind, the failed step and the affected file.
func NewError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg = e.Op
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" %q", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrCommit) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
