package motionplan

import (
	"errors"
	"fmt"

	"go.viam.com/planengine/cspace"
)

var (
	errNoPlannerOptions = errors.New("planner options cannot be nil")

	errNotStarted = cspace.NewPreconditionError("Solve", "planner has not been started")

	errAlreadyStarted = cspace.NewPreconditionError("Start", "planner has already been started")

	errEmptyIndex = cspace.NewPreconditionError("nearest", "nearest neighbor index is empty")
)

// NewPlannerFailedError is returned by GetSolution when no goal vertex is reachable from the start.
func NewPlannerFailedError() error {
	return errors.New("motion planner failed to find path")
}

// NewUnknownPlannerError is returned by NewPlanner for an unregistered planner kind.
func NewUnknownPlannerError(kind string) error {
	return fmt.Errorf("unknown planner kind %q", kind)
}

// FormatError reports a malformed record in persisted planner state. Record names the kind of
// record and Index its position among the records of that kind.
type FormatError struct {
	Record string
	Index  int
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed %s record %d: %v", e.Record, e.Index, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func newFormatError(record string, index int, err error) error {
	return &FormatError{Record: record, Index: index, Err: err}
}
