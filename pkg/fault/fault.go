// Package fault classifies archive failures so callers can tell a corrupt or
// foreign archive apart from a disk problem or a bad argument.
package fault

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure.
type Kind uint8

const (
	// KindUnknown is reported for errors that were never classified.
	KindUnknown Kind = iota
	// KindOpen means a path could not be opened for reading or writing.
	KindOpen
	// KindFormat means the input is not a valid container, or is corrupt.
	KindFormat
	// KindIO means a read or write failed mid-stream.
	KindIO
	// KindValidation means an argument was rejected before any work started.
	KindValidation
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrOpen       = errors.New("open error")
	ErrFormat     = errors.New("format error")
	ErrIO         = errors.New("i/o error")
	ErrValidation = errors.New("validation error")
)

// String returns the name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindFormat:
		return "format"
	case KindIO:
		return "io"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindOpen:
		return ErrOpen
	case KindFormat:
		return ErrFormat
	case KindIO:
		return ErrIO
	case KindValidation:
		return ErrValidation
	default:
		return nil
	}
}

// Error describes a classified failure. Op names the step that failed
// ("create", "read name", "decode"...), Path the file or segment involved.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Path)
	}
	if e.Err == nil {
		return msg
	}
	if msg == "" {
		return e.Err.Error()
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newError(kind Kind, op, path string, err error) error {
	// An inner classification is kept as is.
	var inner *Error
	if errors.As(err, &inner) {
		return fmt.Errorf("%s: %w", (&Error{Op: op, Path: path}).Error(), err)
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Open reports that path could not be opened.
func Open(op, path string, err error) error {
	return newError(KindOpen, op, path, err)
}

// Format reports an invalid or corrupt container.
func Format(op, path string, err error) error {
	return newError(KindFormat, op, path, err)
}

// IO reports a mid-stream read or write failure.
func IO(op, path string, err error) error {
	return newError(KindIO, op, path, err)
}

// Validation reports a rejected argument.
func Validation(op, path string, err error) error {
	return newError(KindValidation, op, path, err)
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
