package stepflow

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("stepflow: no checkpoint store configured")
	ErrStoreClosed     = errors.New("stepflow: store closed")
	ErrMigrationFailed = errors.New("stepflow: migration failed")

	// Not found errors.
	ErrWorkflowNotFound   = errors.New("stepflow: workflow not found")
	ErrCheckpointNotFound = errors.New("stepflow: checkpoint not found")
	ErrActionNotFound     = errors.New("stepflow: action not found")

	// Definition errors.
	ErrInvalidDefinition = errors.New("stepflow: invalid workflow definition")
	ErrDuplicateStep     = errors.New("stepflow: duplicate step name")

	// Execution errors.
	ErrStepTimeout     = errors.New("stepflow: step timed out")
	ErrRetryExhausted  = errors.New("stepflow: retry attempts exhausted")
	ErrWorkflowAborted = errors.New("stepflow: workflow aborted")
	ErrStepPanicked    = errors.New("stepflow: step panicked")
	ErrCircuitOpen     = errors.New("stepflow: circuit breaker open")
	ErrRateLimited     = errors.New("stepflow: rate limit wait failed")
)
