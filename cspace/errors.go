package cspace

import (
	"errors"
	"fmt"
)

// PreconditionError reports an operation invoked on a component that was not set up for it,
// for example a factory without a dimension or a distance acceptor without a target. It is a
// programming error on the caller's side and is never recovered from inside the engine.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition violated: %s", e.Op, e.Reason)
}

// NewPreconditionError returns a *PreconditionError for the named operation.
func NewPreconditionError(op, reason string) error {
	return &PreconditionError{Op: op, Reason: reason}
}

// IsPreconditionError reports whether any error in err's chain is a *PreconditionError.
func IsPreconditionError(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// NewDimensionMismatchError is returned when a configuration does not have the dimension its
// consumer expects.
func NewDimensionMismatchError(want, got int) error {
	return &PreconditionError{Op: "dimension", Reason: fmt.Sprintf("configuration has %d values, expected %d", got, want)}
}

var errNoSource = NewPreconditionError("IsAcceptable", "no source configuration bound")
