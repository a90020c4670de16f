package stepflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Option configures a Runtime.
type Option func(*Runtime) error

// Storer is the minimal store interface held by the Runtime.
// It covers lifecycle operations only. The checkpoint contract itself
// (checkpoint.Store) is asserted in the engine layer, which avoids an
// import cycle between this package and the packages that define it.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Runtime is the root configuration holder for workflow execution. It
// carries the logger, the configuration and an optional checkpoint store.
//
// Create one with New() and functional options, then hand it to
// engine.Build to wire the runner, middleware and extensions.
type Runtime struct {
	config Config
	logger *slog.Logger
	store  Storer

	closed bool
}

// New creates a new Runtime with the given options.
func New(opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// Store returns the runtime's checkpoint store, or nil.
func (rt *Runtime) Store() Storer { return rt.store }

// Config returns a copy of the runtime's configuration.
func (rt *Runtime) Config() Config { return rt.config }

// Start migrates and pings the configured store. It is a no-op without a
// store.
func (rt *Runtime) Start(ctx context.Context) error {
	if rt.store == nil {
		return nil
	}
	if err := rt.store.Migrate(ctx); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	if err := rt.store.Ping(ctx); err != nil {
		return fmt.Errorf("stepflow: ping store: %w", err)
	}
	return nil
}

// Stop releases the store. Calling Stop twice returns ErrStoreClosed.
func (rt *Runtime) Stop(ctx context.Context) error {
	if rt.closed {
		return ErrStoreClosed
	}
	rt.closed = true
	if rt.store == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- rt.store.Close() }()

	timeout := rt.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ShutdownTimeout
	}
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		rt.logger.Error("store close timed out", slog.Duration("timeout", timeout))
		return context.DeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(rt *Runtime) error {
		rt.config = cfg
		return nil
	}
}

// WithLogger sets the structured logger for the runtime.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) error {
		if l == nil {
			return errors.New("stepflow: nil logger")
		}
		rt.logger = l
		return nil
	}
}

// WithCheckpointStore sets the persistence backend used for checkpoints.
// The store must implement Storer at minimum; typically it will also
// implement checkpoint.Store.
func WithCheckpointStore(s Storer) Option {
	return func(rt *Runtime) error {
		rt.store = s
		return nil
	}
}

// WithMaxParallelism bounds concurrent Parallel siblings.
func WithMaxParallelism(n int) Option {
	return func(rt *Runtime) error {
		if n < 0 {
			return fmt.Errorf("stepflow: max parallelism must be >= 0, got %d", n)
		}
		rt.config.MaxParallelism = n
		return nil
	}
}

// WithStepTimeout sets a deadline applied to every top-level step.
func WithStepTimeout(d time.Duration) Option {
	return func(rt *Runtime) error {
		if d < 0 {
			return fmt.Errorf("stepflow: step timeout must be >= 0, got %v", d)
		}
		rt.config.StepTimeout = d
		return nil
	}
}

// WithCompensation enables the saga stack by default.
func WithCompensation(enabled bool) Option {
	return func(rt *Runtime) error {
		rt.config.Compensation = enabled
		return nil
	}
}
