// Package failure classifies conversion errors so that a batch can record
// why each file failed without losing the underlying cause.
package failure

import (
	"errors"
	"fmt"
)

// Kind is the classification of a conversion failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnsupportedFormat
	KindDecode
	KindInvalidDimension
	KindEncode
	KindUnsupportedFormatCombination
	KindMetadataStrip
	KindInvalidSettings
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindDecode:
		return "DecodeError"
	case KindInvalidDimension:
		return "InvalidDimension"
	case KindEncode:
		return "EncodeError"
	case KindUnsupportedFormatCombination:
		return "UnsupportedFormatCombination"
	case KindMetadataStrip:
		return "MetadataStripError"
	case KindInvalidSettings:
		return "InvalidSettings"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrUnsupportedFormat            = &Error{Kind: KindUnsupportedFormat}
	ErrDecode                       = &Error{Kind: KindDecode}
	ErrInvalidDimension             = &Error{Kind: KindInvalidDimension}
	ErrEncode                       = &Error{Kind: KindEncode}
	ErrUnsupportedFormatCombination = &Error{Kind: KindUnsupportedFormatCombination}
	ErrMetadataStrip                = &Error{Kind: KindMetadataStrip}
	ErrInvalidSettings              = &Error{Kind: KindInvalidSettings}
	ErrCanceled                     = &Error{Kind: KindCanceled}
)

// Error carries a Kind, the operation that failed and the wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op + ": " + e.Kind.String()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New returns an error of the given kind wrapping err.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an error of the given kind from a format string.
func Errorf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Ensure classifies err as kind unless it already carries a Kind.
func Ensure(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return New(kind, op, err)
}
