package types

import "errors"

// Store operation errors. Match with errors.Is; implementations wrap these
// with the key or ID involved.
var (
	// ErrNotFound: an owner ID or slot that must exist does not.
	ErrNotFound = errors.New("no such element")
	// ErrInvalidState: the store or backend is closed.
	ErrInvalidState = errors.New("store is closed")
	// ErrUnsupported: the backend is a sentinel or cannot perform the operation.
	ErrUnsupported = errors.New("operation not supported")
	// ErrConfigMismatch: persisted metadata disagrees with the requested
	// family or mapping variant.
	ErrConfigMismatch = errors.New("configuration mismatch")
	// ErrIO: the substrate failed. Always wrapped in an IOError.
	ErrIO              = errors.New("substrate i/o failure")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidID       = errors.New("invalid object ID")
	ErrInvalidData     = errors.New("invalid value")
	ErrFamilyMismatch  = errors.New("backends belong to different families")
)

// IOError wraps a substrate failure. It matches both ErrIO and the cause.
type IOError struct {
	Op  string
	Err error
}

// WrapIO wraps err as an IOError for op. A nil err stays nil.
func WrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: op, Err: err}
}

func (e *IOError) Error() string {
	return e.Op + ": " + ErrIO.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the ErrIO sentinel and the underlying cause.
func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}
