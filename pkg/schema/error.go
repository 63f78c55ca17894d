package schema

import (
	"errors"
	"fmt"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Err is a transfer error code. Errors built with With and Withf wrap the
// code, so errors.Is(err, ErrIncomplete) holds for them.
type Err int

type codeErr struct {
	code  Err
	msg   string
	cause error
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	ErrPathNotFound Err = iota + 1
	ErrContainerCreation
	ErrTransient
	ErrUnexpected
	ErrDecode
	ErrEmptyLedger
	ErrIncomplete
	ErrConflict
)

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (e Err) Error() string {
	switch e {
	case ErrPathNotFound:
		return "path not found"
	case ErrContainerCreation:
		return "container creation failed"
	case ErrTransient:
		return "transient transport error"
	case ErrUnexpected:
		return "unexpected error"
	case ErrDecode:
		return "cannot decode chunk name"
	case ErrEmptyLedger:
		return "no chunk objects in ledger"
	case ErrIncomplete:
		return "incomplete transfer"
	case ErrConflict:
		return "conflict"
	default:
		return fmt.Sprintf("error code %d", int(e))
	}
}

func (e *codeErr) Error() string {
	return e.code.Error() + ": " + e.msg
}

func (e *codeErr) Unwrap() []error {
	if e.cause != nil {
		return []error{e.code, e.cause}
	}
	return []error{e.code}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// With returns an error wrapping the code, with a message built from args
func (e Err) With(args ...any) error {
	return &codeErr{code: e, msg: fmt.Sprint(args...)}
}

// Withf returns an error wrapping the code, with a formatted message. A %w
// verb in the format keeps the wrapped error reachable with errors.Is.
func (e Err) Withf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &codeErr{code: e, msg: err.Error(), cause: errors.Unwrap(err)}
}
