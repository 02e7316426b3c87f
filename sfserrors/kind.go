// Package sfserrors defines the error vocabulary used across the sfs module.
//
// It mirrors the errno-shim shape of a flat-file-system driver: a small set
// of named conditions, each usable directly as an `error`, each extensible
// with a custom message or a wrapped cause without losing its identity.
package sfserrors

import "fmt"

// Kind identifies one of the error conditions spec.md §7 enumerates.
type Kind string

const (
	NotFound             = Kind("no such file")
	AlreadyOpen          = Kind("file already open")
	FdTableFull          = Kind("open file table full")
	InodeTableFull       = Kind("no free inode")
	DirectoryFull        = Kind("directory full")
	NoFreeBlock          = Kind("no free block")
	PointerListExhausted = Kind("direct and indirect pointer capacity reached")
	InvalidArgument      = Kind("invalid argument")
	IoFailure            = Kind("i/o failure")
	Corrupted            = Kind("file system corrupted")
)

func (k Kind) Error() string {
	return string(k)
}

// WithMessage attaches a detail message to the kind, keeping the kind
// identifiable via errors.Is (the returned error's Is matches its kind).
func (k Kind) WithMessage(message string) DriverError {
	return driverError{kind: k, message: fmt.Sprintf("%s: %s", k, message)}
}

// WrapError folds an underlying error into the kind's message while
// preserving it as the Unwrap target.
func (k Kind) WrapError(err error) DriverError {
	return driverError{kind: k, message: fmt.Sprintf("%s: %s", k, err.Error()), cause: err}
}

// DriverError is the common shape returned by every mutating sfs operation
// that can fail. Its kind is returned by Kind() and matched by errors.Is.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	WrapError(err error) DriverError
	Kind() Kind
}

type driverError struct {
	kind    Kind
	message string
	cause   error
}

func (e driverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.kind.Error()
}

func (e driverError) Kind() Kind {
	return e.kind
}

func (e driverError) WithMessage(message string) DriverError {
	return driverError{kind: e.kind, message: fmt.Sprintf("%s: %s", e.message, message), cause: e}
}

func (e driverError) WrapError(err error) DriverError {
	return driverError{kind: e.kind, message: fmt.Sprintf("%s: %s", e.message, err.Error()), cause: err}
}

func (e driverError) Unwrap() error {
	return e.cause
}

// Is lets errors.Is(err, sfserrors.NotFound) match a DriverError built from
// that kind, without requiring the caller to unwrap down to the cause.
func (e driverError) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.kind == k
	}
	if other, ok := target.(driverError); ok {
		return e.kind == other.kind
	}
	return false
}

// New builds a DriverError directly from a Kind, with no extra message.
func New(kind Kind) DriverError {
	return driverError{kind: kind, message: kind.Error()}
}

// Is lets errors.Is(err, sfserrors.NotFound) work against both a bare Kind
// and a DriverError built from it.
func (k Kind) Is(target error) bool {
	if other, ok := target.(Kind); ok {
		return k == other
	}
	if de, ok := target.(driverError); ok {
		return k == de.kind
	}
	return false
}
