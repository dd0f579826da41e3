package common

import (
	"errors"
	"fmt"
)

// Kind classifies a compilation failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindMapParse
	KindMissingImage
	KindImageDecode
	KindInvalidGid
	KindPackingOverflow
	KindUnsupportedShape
	KindIo
)

func (k Kind) String() string {
	switch k {
	case KindMapParse:
		return "map parse"
	case KindMissingImage:
		return "missing image"
	case KindImageDecode:
		return "image decode"
	case KindInvalidGid:
		return "invalid gid"
	case KindPackingOverflow:
		return "packing overflow"
	case KindUnsupportedShape:
		return "unsupported shape"
	case KindIo:
		return "io"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrMapParse         = &Error{Kind: KindMapParse}
	ErrMissingImage     = &Error{Kind: KindMissingImage}
	ErrImageDecode      = &Error{Kind: KindImageDecode}
	ErrInvalidGid       = &Error{Kind: KindInvalidGid}
	ErrPackingOverflow  = &Error{Kind: KindPackingOverflow}
	ErrUnsupportedShape = &Error{Kind: KindUnsupportedShape}
	ErrIo               = &Error{Kind: KindIo}
)

// Error is the single error type produced by the compiler pipeline.
// Path names the file or element involved, when there is one.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf builds an *Error of the given kind with a formatted cause.
func Errorf(kind Kind, path string, format string, args ...any) error {
	return &Error{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind to err. A nil err stays nil.
func Wrap(kind Kind, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Fatal reports whether err must abort the run. UnsupportedShape is the only
// recoverable kind.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrUnsupportedShape)
}
