// Package ih5err provides error types and error codes shared across the
// container-format packages. This is a leaf package with no internal
// dependencies, designed to be imported by userblock, naming, chain, overlay,
// skeleton, stub, and manifest without causing circular imports.
package ih5err

import (
	"errors"
	"fmt"
)

// ErrorCode represents the category of error that occurred.
type ErrorCode int

const (
	// ErrInvalidName indicates a chain or node name fails the allowed character set.
	ErrInvalidName ErrorCode = iota + 1

	// ErrNotAContainer indicates a file's first line is not the ih5 magic string.
	ErrNotAContainer

	// ErrCorruptUserBlock indicates the user-block JSON could not be parsed or is malformed.
	ErrCorruptUserBlock

	// ErrNoReservedUserBlock indicates a file was not created with a reserved user-block.
	ErrNoReservedUserBlock

	// ErrIntegrityFailure indicates a stored hashsum does not match recomputed content.
	ErrIntegrityFailure

	// ErrBrokenChain indicates the ordered file list fails one of the chain invariants.
	ErrBrokenChain

	// ErrIncompleteTail indicates the tail file lacks a payload hashsum and write access was not requested.
	ErrIncompleteTail

	// ErrReadOnly indicates a write was attempted against a chain with no writable tail.
	ErrReadOnly

	// ErrPathConflict indicates a write collides with an existing node of a different kind.
	ErrPathConflict

	// ErrInvalidKey indicates an attribute key or node name violates the allowed character set.
	ErrInvalidKey

	// ErrForbiddenValue indicates a reserved sentinel value or key was used as ordinary user data.
	ErrForbiddenValue

	// ErrStubNotBase indicates create_stub or the stub flag was applied to a non-base file.
	ErrStubNotBase

	// ErrManifestMismatch indicates the manifest sidecar does not match the tail user-block's extension.
	ErrManifestMismatch

	// ErrNotOpen indicates an operation was attempted on a chain with no open file handles.
	ErrNotOpen

	// ErrUserBlockTooSmall indicates the serialized user-block would not fit before the final NUL.
	ErrUserBlockTooSmall

	// ErrNotFound indicates a read or delete addressed a path/attribute/chain that does not exist
	// in the merged view (spec.md §8.2's "KeyError/NotFound").
	ErrNotFound
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrInvalidName:
		return "InvalidName"
	case ErrNotAContainer:
		return "NotAContainer"
	case ErrCorruptUserBlock:
		return "CorruptUserBlock"
	case ErrNoReservedUserBlock:
		return "NoReservedUserBlock"
	case ErrIntegrityFailure:
		return "IntegrityFailure"
	case ErrBrokenChain:
		return "BrokenChain"
	case ErrIncompleteTail:
		return "IncompleteTail"
	case ErrReadOnly:
		return "ReadOnly"
	case ErrPathConflict:
		return "PathConflict"
	case ErrInvalidKey:
		return "InvalidKey"
	case ErrForbiddenValue:
		return "ForbiddenValue"
	case ErrStubNotBase:
		return "StubNotBase"
	case ErrManifestMismatch:
		return "ManifestMismatch"
	case ErrNotOpen:
		return "NotOpen"
	case ErrUserBlockTooSmall:
		return "UserBlockTooSmall"
	case ErrNotFound:
		return "NotFound"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// Error wraps a code, a message, and an optional underlying cause. It
// supports errors.Is/errors.As via Unwrap and via comparison on Code.
type Error struct {
	Code    ErrorCode
	Message string
	Path    string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s (path: %s): %v", e.Code, e.Message, e.Path, e.Cause)
	case e.Path != "":
		return fmt.Sprintf("%s: %s (path: %s)", e.Code, e.Message, e.Path)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause, if any, enabling errors.Is/errors.As
// to see through to a wrapped I/O or JSON error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Code, so callers can
// write errors.Is(err, ih5err.New(ih5err.ErrReadOnly, "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// New creates an Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error with the given code, message, and underlying cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithPath attaches a path to an Error, returning the same instance for chaining.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// Code extracts the ErrorCode from err if it is (or wraps) an *Error.
func Code(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// HasCode reports whether err is (or wraps) an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	c, ok := Code(err)
	return ok && c == code
}
