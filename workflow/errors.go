package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/stepflow"
)

// StepError attributes a failure to the top-level step that raised it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// TimeoutError is raised by a Timeout step whose own timer fired before the
// inner step finished. It matches stepflow.ErrStepTimeout via errors.Is.
type TimeoutError struct {
	Step  string
	After time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("step %q timed out after %s", e.Step, e.After)
}

func (e *TimeoutError) Unwrap() []error {
	if e.Err == nil {
		return []error{stepflow.ErrStepTimeout}
	}
	return []error{stepflow.ErrStepTimeout, e.Err}
}

// RetryExhaustedError is raised when the final attempt of a RetryGroup
// fails. Err holds the failure of that final attempt.
type RetryExhaustedError struct {
	Step     string
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("step %q: retry exhausted after %d attempts: %v", e.Step, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() []error {
	return []error{stepflow.ErrRetryExhausted, e.Err}
}

// PanicError carries a value recovered from a panicking step.
type PanicError struct {
	Step  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("step %q panicked: %v", e.Step, e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return errors.Join(stepflow.ErrStepPanicked, err)
	}
	return stepflow.ErrStepPanicked
}
