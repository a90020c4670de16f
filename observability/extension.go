package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xraph/stepflow/ext"
	"github.com/xraph/stepflow/workflow"
)

// Compile-time interface checks.
var (
	_ ext.Extension          = (*MetricsExtension)(nil)
	_ ext.WorkflowStarted    = (*MetricsExtension)(nil)
	_ ext.WorkflowCompleted  = (*MetricsExtension)(nil)
	_ ext.WorkflowFailed     = (*MetricsExtension)(nil)
	_ ext.WorkflowAborted    = (*MetricsExtension)(nil)
	_ ext.StepCompleted      = (*MetricsExtension)(nil)
	_ ext.StepFailed         = (*MetricsExtension)(nil)
	_ ext.StepCompensated    = (*MetricsExtension)(nil)
	_ ext.CompensationFailed = (*MetricsExtension)(nil)
)

const namespace = "stepflow"

// MetricsExtension records lifecycle metrics with Prometheus collectors.
// Register it as an extension to track run outcomes, step outcomes,
// compensation results and run latency.
type MetricsExtension struct {
	WorkflowStarted  *prometheus.CounterVec   // labels: workflow
	WorkflowFinished *prometheus.CounterVec   // labels: workflow, status
	WorkflowDuration *prometheus.HistogramVec // labels: workflow
	WorkflowInFlight prometheus.Gauge
	StepCompleted    *prometheus.CounterVec // labels: step
	StepFailed       *prometheus.CounterVec // labels: step
	Compensations    *prometheus.CounterVec // labels: step, outcome
}

// NewMetricsExtension creates a MetricsExtension registered with the
// default Prometheus registerer.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsExtensionWithRegisterer creates a MetricsExtension whose
// collectors are registered with reg. A nil reg leaves them unregistered.
func NewMetricsExtensionWithRegisterer(reg prometheus.Registerer) *MetricsExtension {
	f := promauto.With(reg)
	return &MetricsExtension{
		WorkflowStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_started_total",
			Help:      "Workflow runs started.",
		}, []string{"workflow"}),
		WorkflowFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_finished_total",
			Help:      "Workflow runs finished, by final status.",
		}, []string{"workflow", "status"}),
		WorkflowDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Duration of successful workflow runs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"workflow"}),
		WorkflowInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workflow_in_flight",
			Help:      "Workflow runs currently executing.",
		}),
		StepCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_completed_total",
			Help:      "Top-level steps that completed.",
		}, []string{"step"}),
		StepFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_failed_total",
			Help:      "Top-level steps that failed.",
		}, []string{"step"}),
		Compensations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Compensation attempts, by outcome.",
		}, []string{"step", "outcome"}),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Workflow lifecycle hooks ────────────────────────

// OnWorkflowStarted implements ext.WorkflowStarted.
func (m *MetricsExtension) OnWorkflowStarted(_ *workflow.Context, def *workflow.Definition) error {
	m.WorkflowStarted.WithLabelValues(def.Name).Inc()
	m.WorkflowInFlight.Inc()
	return nil
}

// OnWorkflowCompleted implements ext.WorkflowCompleted.
func (m *MetricsExtension) OnWorkflowCompleted(_ *workflow.Context, def *workflow.Definition, elapsed time.Duration) error {
	m.finish(def, workflow.StatusCompleted)
	m.WorkflowDuration.WithLabelValues(def.Name).Observe(elapsed.Seconds())
	return nil
}

// OnWorkflowFailed implements ext.WorkflowFailed. Definitions rejected by
// validation never started, so they do not touch the in-flight gauge.
func (m *MetricsExtension) OnWorkflowFailed(wctx *workflow.Context, def *workflow.Definition, status workflow.Status, _ error) error {
	name := ""
	if def != nil {
		name = def.Name
	}
	if wctx.CurrentStepIndex() < 0 {
		m.WorkflowFinished.WithLabelValues(name, status.String()).Inc()
		return nil
	}
	m.finish(def, status)
	return nil
}

// OnWorkflowAborted implements ext.WorkflowAborted.
func (m *MetricsExtension) OnWorkflowAborted(_ *workflow.Context, def *workflow.Definition) error {
	m.finish(def, workflow.StatusAborted)
	return nil
}

func (m *MetricsExtension) finish(def *workflow.Definition, status workflow.Status) {
	m.WorkflowFinished.WithLabelValues(def.Name, status.String()).Inc()
	m.WorkflowInFlight.Dec()
}

// ── Step lifecycle hooks ────────────────────────────

// OnStepCompleted implements ext.StepCompleted.
func (m *MetricsExtension) OnStepCompleted(_ *workflow.Context, step workflow.Step, _ time.Duration) error {
	m.StepCompleted.WithLabelValues(step.Name()).Inc()
	return nil
}

// OnStepFailed implements ext.StepFailed.
func (m *MetricsExtension) OnStepFailed(_ *workflow.Context, step workflow.Step, _ error) error {
	m.StepFailed.WithLabelValues(step.Name()).Inc()
	return nil
}

// OnStepCompensated implements ext.StepCompensated.
func (m *MetricsExtension) OnStepCompensated(_ *workflow.Context, step workflow.Step) error {
	m.Compensations.WithLabelValues(step.Name(), "ok").Inc()
	return nil
}

// OnCompensationFailed implements ext.CompensationFailed.
func (m *MetricsExtension) OnCompensationFailed(_ *workflow.Context, step workflow.Step, _ error) error {
	m.Compensations.WithLabelValues(step.Name(), "error").Inc()
	return nil
}
