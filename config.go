package stepflow

import "time"

// Config holds configuration for the Runtime.
type Config struct {
	// MaxParallelism bounds how many Parallel siblings run at once.
	// Zero means unbounded.
	MaxParallelism int

	// StepTimeout, when non-zero, wraps every top-level step in a
	// deadline enforced by the timeout middleware.
	StepTimeout time.Duration

	// Compensation enables the saga stack for definitions that do not
	// set it themselves.
	Compensation bool

	// ClearCheckpointOnSuccess removes the checkpoint after a fresh
	// (non-resumed) run completes. Resumed runs always clear on success.
	ClearCheckpointOnSuccess bool

	// ShutdownTimeout is the maximum time to wait for store shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxParallelism:           0,
		StepTimeout:              0,
		Compensation:             false,
		ClearCheckpointOnSuccess: false,
		ShutdownTimeout:          30 * time.Second,
	}
}
