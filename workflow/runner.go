package workflow

import (
	"context"
	"log/slog"
	"maps"
	"runtime/debug"
	"time"

	"github.com/xraph/stepflow/id"
)

// Runner executes definitions. It passes every top-level step through its
// middleware chain, emits lifecycle notifications, and classifies the run
// as Completed, Faulted, Aborted or Compensated. A Runner is safe for
// concurrent use by multiple runs.
type Runner struct {
	emitter        Emitter
	logger         *slog.Logger
	middleware     []Middleware
	chain          Middleware
	maxParallelism int
	stepTimeout    time.Duration
	compensation   bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMiddleware appends middleware. Middleware added first wraps outermost.
func WithMiddleware(mws ...Middleware) RunnerOption {
	return func(r *Runner) {
		r.middleware = append(r.middleware, mws...)
	}
}

// WithMaxParallelism bounds concurrent children of Parallel steps that do
// not set their own limit. n <= 0 means unbounded.
func WithMaxParallelism(n int) RunnerOption {
	return func(r *Runner) { r.maxParallelism = n }
}

// WithStepTimeout bounds every top-level step. d <= 0 disables the bound.
func WithStepTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.stepTimeout = d }
}

// WithCompensation turns on compensation for every definition run, in
// addition to definitions that enable it themselves.
func WithCompensation(enabled bool) RunnerOption {
	return func(r *Runner) { r.compensation = enabled }
}

// NewRunner creates a runner. A nil emitter is replaced with NopEmitter.
func NewRunner(emitter Emitter, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{emitter: emitter, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	r.chain = Chain(r.middleware...)
	return r
}

// With returns a copy of the runner with opts applied on top of its
// current configuration.
func (r *Runner) With(opts ...RunnerOption) *Runner {
	c := *r
	c.middleware = append([]Middleware(nil), r.middleware...)
	for _, opt := range opts {
		opt(&c)
	}
	c.chain = Chain(c.middleware...)
	return &c
}

// Emitter returns the runner's lifecycle emitter.
func (r *Runner) Emitter() Emitter { return r.emitter }

// Logger returns the runner's logger.
func (r *Runner) Logger() *slog.Logger { return r.logger }

// RunOption configures the context of a new run.
type RunOption func(*runConfig)

type runConfig struct {
	workflowID    id.ID
	correlationID string
	props         map[string]any
}

// WithWorkflowID sets the run's workflow id instead of generating one.
func WithWorkflowID(wid id.ID) RunOption {
	return func(c *runConfig) { c.workflowID = wid }
}

// WithCorrelationID sets the run's correlation id.
func WithCorrelationID(cid string) RunOption {
	return func(c *runConfig) { c.correlationID = cid }
}

// WithProperties seeds the property map. The map is copied.
func WithProperties(props map[string]any) RunOption {
	return func(c *runConfig) {
		if c.props == nil {
			c.props = make(map[string]any, len(props))
		}
		maps.Copy(c.props, props)
	}
}

// NewContext creates the context for a run driven by r.
func (r *Runner) NewContext(ctx context.Context, opts ...RunOption) *Context {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	wctx := NewContext(ctx, cfg.workflowID, cfg.correlationID)
	if cfg.props != nil {
		wctx.Restore(cfg.props)
	}
	wctx.st.runner = r
	wctx.st.logger = r.logger
	return wctx
}

// Run executes def from its first step on a fresh context.
func (r *Runner) Run(ctx context.Context, def *Definition, opts ...RunOption) *Result {
	return r.Execute(r.NewContext(ctx, opts...), def, 0)
}

// Execute runs the steps of def whose index is at least from against
// wctx. It never returns nil and never panics because of a step.
func (r *Runner) Execute(wctx *Context, def *Definition, from int) *Result {
	start := time.Now()
	wctx.st.runner = r
	wctx.st.logger = r.logger
	if from < 0 {
		from = 0
	}

	if err := def.Validate(); err != nil {
		wctx.AddError("", err)
		r.logger.Error("invalid workflow definition",
			slog.String("workflow_id", wctx.WorkflowID().String()),
			slog.String("error", err.Error()),
		)
		r.emitter.EmitWorkflowFailed(wctx, def, StatusFaulted, err)
		return &Result{Status: StatusFaulted, Context: wctx, Cause: err, Elapsed: time.Since(start)}
	}

	r.emitter.EmitWorkflowStarted(wctx, def)
	compensation := def.Compensation || r.compensation

	var saga compensationStack
	for i := from; i < len(def.Steps); i++ {
		step := def.Steps[i]
		wctx.SetCurrentStep(step.Name(), i)

		r.emitter.EmitStepStarted(wctx, step)
		stepStart := time.Now()
		if err := r.invoke(wctx, step); err != nil {
			r.emitter.EmitStepFailed(wctx, step, err)
			return r.fail(wctx, def, &saga, compensation, step, err, start)
		}
		r.emitter.EmitStepCompleted(wctx, step, time.Since(stepStart))

		if cs, ok := step.(CompensatingStep); ok && compensation {
			saga.push(cs)
		}

		if wctx.Aborted() {
			r.logger.Info("workflow aborted",
				slog.String("workflow_id", wctx.WorkflowID().String()),
				slog.String("workflow", def.Name),
				slog.String("step", step.Name()),
			)
			r.emitter.EmitWorkflowAborted(wctx, def)
			return &Result{Status: StatusAborted, Context: wctx, Elapsed: time.Since(start)}
		}
	}

	elapsed := time.Since(start)
	r.emitter.EmitWorkflowCompleted(wctx, def, elapsed)
	return &Result{Status: StatusCompleted, Context: wctx, Elapsed: elapsed}
}

// invoke runs one top-level step through the middleware chain. A cancelled
// signal fails the step before any middleware runs.
func (r *Runner) invoke(wctx *Context, step Step) (err error) {
	defer func() {
		if p := recover(); p != nil {
			stack := debug.Stack()
			r.logger.Error("step panicked",
				slog.String("workflow_id", wctx.WorkflowID().String()),
				slog.String("step", step.Name()),
				slog.Any("panic", p),
				slog.String("stack", string(stack)),
			)
			err = &PanicError{Step: step.Name(), Value: p, Stack: stack}
		}
	}()

	if err := wctx.ctx.Err(); err != nil {
		return err
	}
	return r.chain(wctx, step, func(wctx *Context) error {
		if r.stepTimeout > 0 {
			return Timeout(step.Name(), step, r.stepTimeout).Execute(wctx)
		}
		return step.Execute(wctx)
	})
}

func (r *Runner) fail(
	wctx *Context,
	def *Definition,
	saga *compensationStack,
	compensation bool,
	step Step,
	err error,
	start time.Time,
) *Result {
	res := &Result{
		Context:    wctx,
		FailedStep: step.Name(),
		Cause:      &StepError{Step: step.Name(), Err: err},
	}

	if compensation {
		r.logger.Info("running compensations",
			slog.String("workflow_id", wctx.WorkflowID().String()),
			slog.String("workflow", def.Name),
			slog.Int("count", saga.len()),
		)
		res.CompensationErr = saga.unwind(wctx, r.emitter, r.logger)
		res.Status = StatusCompensated
	} else {
		wctx.AddError(step.Name(), err)
		res.Status = StatusFaulted
	}

	r.logger.Error("workflow failed",
		slog.String("workflow_id", wctx.WorkflowID().String()),
		slog.String("workflow", def.Name),
		slog.String("step", step.Name()),
		slog.String("status", res.Status.String()),
		slog.String("error", err.Error()),
	)
	res.Elapsed = time.Since(start)
	r.emitter.EmitWorkflowFailed(wctx, def, res.Status, res.Cause)
	return res
}
