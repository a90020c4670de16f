package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/stepflow/id"
)

// Status is the terminal classification of a run.
type Status int

const (
	// StatusCompleted means every step succeeded.
	StatusCompleted Status = iota
	// StatusFaulted means a step failed and compensation was disabled.
	StatusFaulted
	// StatusAborted means a step set the Aborted flag.
	StatusAborted
	// StatusCompensated means a step failed and the compensation stack
	// was unwound.
	StatusCompensated
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFaulted:
		return "faulted"
	case StatusAborted:
		return "aborted"
	case StatusCompensated:
		return "compensated"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of a run. The runner always returns one; errors
// raised by steps are reported here instead of escaping.
type Result struct {
	Status  Status
	Context *Context
	Elapsed time.Duration

	// FailedStep and Cause describe the failure that ended a Faulted or
	// Compensated run.
	FailedStep string
	Cause      error

	// CompensationErr joins the failures raised while unwinding.
	CompensationErr error
}

// Succeeded reports whether the run completed.
func (r *Result) Succeeded() bool { return r.Status == StatusCompleted }

// WorkflowID returns the id of the run.
func (r *Result) WorkflowID() id.ID {
	if r.Context == nil {
		return id.Nil
	}
	return r.Context.WorkflowID()
}

// Err returns the failure that ended the run, or nil for Completed and
// Aborted runs.
func (r *Result) Err() error {
	if r.Cause != nil {
		return r.Cause
	}
	if r.Context == nil {
		return nil
	}
	records := r.Context.Errors()
	errs := make([]error, 0, len(records))
	for _, rec := range records {
		errs = append(errs, rec.Err)
	}
	return errors.Join(errs...)
}
