package cauldron

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind discriminates the three error classes the decoder can surface.
type Kind int

const (
	// KindIO marks a transport failure: a short read, an unexpected EOF
	// mid-structure, or any other failure reported by the underlying byte
	// source.
	KindIO Kind = iota
	// KindParse marks a well-formed transport carrying a semantically
	// invalid container: bad magic, a CRC mismatch, inconsistent fmt
	// fields, an out-of-range partition order, narrowing overflow, etc.
	KindParse
	// KindUnsupported marks valid-looking input the decoder deliberately
	// refuses: a negative LPC shift, a reserved subframe type, an unknown
	// sub-format GUID, a PCM bit depth outside {8,16,24,32}, requesting
	// the sample iterator a second time, and so on.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by every exported operation in
// this package. Callers distinguish failure classes with Kind rather than
// sentinel values, since the underlying cause (when present) is wrapped
// with github.com/pkg/errors for stack context.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("cauldron: %s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("cauldron: %s: %s", e.Kind, e.msg)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

func ioError(cause error, msg string, args ...any) *Error {
	return &Error{Kind: KindIO, msg: fmt.Sprintf(msg, args...), cause: errors.WithStack(cause)}
}

func parseError(msg string, args ...any) *Error {
	return &Error{Kind: KindParse, msg: fmt.Sprintf(msg, args...)}
}

func unsupportedError(msg string, args ...any) *Error {
	return &Error{Kind: KindUnsupported, msg: fmt.Sprintf(msg, args...)}
}
