// Package engine wires all stepflow subsystems together. It creates the
// extension registry, definition registry, middleware chain, runner and
// checkpoint resumer, and provides Run/Resume operations.
//
// This package exists to break the import cycle: the root stepflow package
// defines the sentinel errors and the Runtime (imported by workflow,
// checkpoint, etc.) and so cannot import those packages back. The engine
// package sits above all subsystem packages and below the application layer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/stepflow"
	"github.com/xraph/stepflow/checkpoint"
	"github.com/xraph/stepflow/definition"
	"github.com/xraph/stepflow/ext"
	"github.com/xraph/stepflow/id"
	mw "github.com/xraph/stepflow/middleware"
	"github.com/xraph/stepflow/observability"
	"github.com/xraph/stepflow/workflow"
)

const instrumentationName = "github.com/xraph/stepflow"

// Engine wraps a Runtime with typed subsystem access.
// Use Build() to create one from a Runtime.
type Engine struct {
	rt         *stepflow.Runtime
	extensions *ext.Registry
	registry   *workflow.Registry
	runner     *workflow.Runner
	resumer    *checkpoint.Resumer
	mws        []mw.Middleware
	logger     *slog.Logger

	// Idempotency (optional; requires a store implementing IdempotencyStore).
	idempotent     bool
	idempotencyTTL time.Duration

	// Prometheus registerer for the lifecycle metrics extension (optional).
	registerer prometheus.Registerer
	metrics    *observability.MetricsExtension

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.extensions.Register(e)
	}
}

// WithMiddleware adds middleware to the engine's chain. User middleware
// runs inside the built-in observability middleware and outside
// idempotency and checkpointing.
func WithMiddleware(m ...mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m...)
	}
}

// WithIdempotency skips top-level steps already completed under the same
// workflow id, remembering completions for ttl (zero keeps them forever).
// The runtime's store must implement middleware.IdempotencyStore.
func WithIdempotency(ttl time.Duration) Option {
	return func(eng *Engine) {
		eng.idempotent = true
		eng.idempotencyTTL = ttl
	}
}

// WithMetricsRegisterer registers the Prometheus lifecycle metrics
// extension with reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(eng *Engine) {
		eng.registerer = reg
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// When set, the tracing middleware uses this provider instead of the global one.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// When set, the metrics middleware uses this provider instead of the
// global one. If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// Build creates an Engine from an existing Runtime. When the Runtime has a
// store it must implement checkpoint.Store; runs are then checkpointed
// after every top-level step and can be resumed.
func Build(rt *stepflow.Runtime, opts ...Option) (*Engine, error) {
	if rt == nil {
		return nil, errors.New("stepflow: nil runtime")
	}
	logger := rt.Logger()
	cfg := rt.Config()

	var cs checkpoint.Store
	if s := rt.Store(); s != nil {
		var ok bool
		cs, ok = s.(checkpoint.Store)
		if !ok {
			return nil, fmt.Errorf("stepflow: store %T does not implement checkpoint.Store", s)
		}
	}

	eng := &Engine{
		rt:         rt,
		extensions: ext.NewRegistry(logger),
		registry:   workflow.NewRegistry(),
		logger:     logger,
	}

	for _, opt := range opts {
		opt(eng)
	}

	// Register the observability metrics extension.
	if eng.registerer != nil {
		eng.metrics = observability.NewMetricsExtensionWithRegisterer(eng.registerer)
		eng.extensions.Register(eng.metrics)
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	// Default middleware stack: recover → logging → tracing → metrics → user → idempotency.
	allMws := make([]mw.Middleware, 0, 5+len(eng.mws))
	allMws = append(allMws,
		mw.Recover(logger),
		mw.Logging(logger),
		tracingMw,
		metricsMw,
	)
	allMws = append(allMws, eng.mws...)

	if eng.idempotent {
		is, ok := rt.Store().(mw.IdempotencyStore)
		if !ok {
			return nil, fmt.Errorf("stepflow: idempotency requires a store implementing middleware.IdempotencyStore, got %T", rt.Store())
		}
		allMws = append(allMws, mw.Idempotency(is, eng.idempotencyTTL, logger))
		eng.extensions.Register(mw.NewIdempotencyRelease(is))
	}

	eng.runner = workflow.NewRunner(eng.extensions, logger,
		workflow.WithMiddleware(allMws...),
		workflow.WithMaxParallelism(cfg.MaxParallelism),
		workflow.WithStepTimeout(cfg.StepTimeout),
		workflow.WithCompensation(cfg.Compensation),
	)

	// Checkpointing wraps innermost, so a checkpoint is written only after
	// the step and every other middleware succeeded.
	if cs != nil {
		eng.resumer = checkpoint.NewResumer(eng.runner, cs, logger,
			checkpoint.WithClearOnSuccess(cfg.ClearCheckpointOnSuccess),
		)
	}

	return eng, nil
}

// RegisterDefinition validates def and adds it to the engine's registry.
func (eng *Engine) RegisterDefinition(def *workflow.Definition) error {
	return eng.registry.Register(def)
}

// LoadDefinitions compiles every YAML file in dir against actions and
// registers the results. Sub-workflow references resolve against the
// engine's registry, so files load in name order and a file may only
// reference workflows registered before it.
func (eng *Engine) LoadDefinitions(dir string, actions *definition.Registry) error {
	if actions == nil {
		actions = definition.NewRegistry()
	}
	actions.SetWorkflows(eng.registry)

	defs, err := definition.LoadDir(dir, actions)
	if err != nil {
		return err
	}
	for _, def := range defs {
		if err := eng.registry.Register(def); err != nil {
			return fmt.Errorf("register %q: %w", def.Name, err)
		}
		eng.logger.Info("workflow definition loaded",
			slog.String("workflow", def.Name),
			slog.Int("version", def.Version),
			slog.Int("steps", len(def.Steps)),
		)
	}
	return nil
}

// Run executes def on a fresh context. With a store configured the run is
// checkpointed and its workflow id can be passed to Resume.
func (eng *Engine) Run(ctx context.Context, def *workflow.Definition, opts ...workflow.RunOption) *workflow.Result {
	if eng.resumer != nil {
		return eng.resumer.Run(ctx, def, opts...)
	}
	return eng.runner.Run(ctx, def, opts...)
}

// RunNamed runs the latest registered version of the named workflow.
func (eng *Engine) RunNamed(ctx context.Context, name string, opts ...workflow.RunOption) (*workflow.Result, error) {
	def, err := eng.registry.Lookup(name, 0)
	if err != nil {
		return nil, err
	}
	return eng.Run(ctx, def, opts...), nil
}

// Resume continues the run identified by workflowID after its last
// checkpointed step. It returns stepflow.ErrNoStore when the engine has
// no checkpoint store.
func (eng *Engine) Resume(ctx context.Context, def *workflow.Definition, workflowID id.ID, opts ...workflow.RunOption) (*workflow.Result, error) {
	if eng.resumer == nil {
		return nil, stepflow.ErrNoStore
	}
	return eng.resumer.Resume(ctx, def, workflowID, opts...)
}

// ResumeNamed resumes a run of the latest registered version of the
// named workflow.
func (eng *Engine) ResumeNamed(ctx context.Context, name string, workflowID id.ID, opts ...workflow.RunOption) (*workflow.Result, error) {
	def, err := eng.registry.Lookup(name, 0)
	if err != nil {
		return nil, err
	}
	return eng.Resume(ctx, def, workflowID, opts...)
}

// Pending lists runs that have a checkpoint, oldest first.
func (eng *Engine) Pending(ctx context.Context, opts checkpoint.ListOpts) ([]*checkpoint.Checkpoint, error) {
	if eng.resumer == nil {
		return nil, stepflow.ErrNoStore
	}
	return eng.resumer.Pending(ctx, opts)
}

// Start migrates and pings the runtime's store.
func (eng *Engine) Start(ctx context.Context) error {
	return eng.rt.Start(ctx)
}

// Stop notifies extensions of shutdown and closes the runtime's store.
func (eng *Engine) Stop(ctx context.Context) error {
	eng.extensions.EmitShutdown(ctx)
	return eng.rt.Stop(ctx)
}

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Definitions returns the workflow definition registry.
func (eng *Engine) Definitions() *workflow.Registry { return eng.registry }

// Runner returns the workflow runner, without checkpointing.
func (eng *Engine) Runner() *workflow.Runner { return eng.runner }

// Resumer returns the checkpoint resumer, or nil without a store.
func (eng *Engine) Resumer() *checkpoint.Resumer { return eng.resumer }

// Runtime returns the underlying Runtime.
func (eng *Engine) Runtime() *stepflow.Runtime { return eng.rt }

// Metrics returns the Prometheus lifecycle extension, or nil unless
// WithMetricsRegisterer was given.
func (eng *Engine) Metrics() *observability.MetricsExtension { return eng.metrics }
