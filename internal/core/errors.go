package core

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors into the three recovery categories callers
// care about: bad input, refused state transition, and broken multi-record
// consistency that needs manual reconciliation.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindState       Kind = "state"
	KindConsistency Kind = "consistency"
)

// Error is a kinded engine error. It is comparable with errors.Is against the
// sentinel values below; boundary layers wrap it with %w and extra context.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

var (
	ErrInvalidAmount    = &Error{KindValidation, "invalid amount"}
	ErrInvalidRate      = &Error{KindValidation, "invalid rate"}
	ErrInvalidInput     = &Error{KindValidation, "invalid input"}
	ErrInvalidDate      = &Error{KindValidation, "invalid date"}
	ErrInvalidSplit     = &Error{KindValidation, "invalid split"}
	ErrEmptyDescription = &Error{KindValidation, "empty description"}
	ErrEmptyCategory    = &Error{KindValidation, "empty category"}

	ErrNotFound          = &Error{KindState, "record not found"}
	ErrAlreadySettled    = &Error{KindState, "due item already settled"}
	ErrNotSettled        = &Error{KindState, "due item not settled"}
	ErrCannotEditSettled = &Error{KindState, "cannot edit a settled due item"}
)

// ConsistencyError builds a consistency-kind error for a partial multi-record
// write. These are fatal for the operation and never retried automatically.
func ConsistencyError(format string, args ...any) error {
	return &Error{KindConsistency, fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err if it is (or wraps) a core Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
