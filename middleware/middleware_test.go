package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/xraph/stepflow"
	"github.com/xraph/stepflow/id"
	"github.com/xraph/stepflow/middleware"
	"github.com/xraph/stepflow/store/memory"
	"github.com/xraph/stepflow/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestContext() *workflow.Context {
	wctx := workflow.NewContext(context.Background(), id.Nil, "corr-123")
	wctx.SetCurrentStep("send-email", 2)
	return wctx
}

func newTestStep() workflow.Step {
	return workflow.Action("send-email", nil)
}

func ok(*workflow.Context) error { return nil }

func TestChain_ExecutionOrder(t *testing.T) {
	var order []string

	mw1 := func(wctx *workflow.Context, _ workflow.Step, next middleware.Handler) error {
		order = append(order, "mw1-before")
		err := next(wctx)
		order = append(order, "mw1-after")
		return err
	}

	mw2 := func(wctx *workflow.Context, _ workflow.Step, next middleware.Handler) error {
		order = append(order, "mw2-before")
		err := next(wctx)
		order = append(order, "mw2-after")
		return err
	}

	chain := middleware.Chain(mw1, mw2)
	handler := func(*workflow.Context) error {
		order = append(order, "handler")
		return nil
	}

	if err := chain(newTestContext(), newTestStep(), handler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(order), order)
	}
	for i, want := range expected {
		if order[i] != want {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want)
		}
	}
}

func TestChain_Empty(t *testing.T) {
	chain := middleware.Chain()
	called := false
	err := chain(newTestContext(), newTestStep(), func(*workflow.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler not called with empty chain")
	}
}

func TestChain_PropagatesError(t *testing.T) {
	pass := func(wctx *workflow.Context, _ workflow.Step, next middleware.Handler) error {
		return next(wctx)
	}
	want := errors.New("handler error")

	err := middleware.Chain(pass)(newTestContext(), newTestStep(), func(*workflow.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestRecover_CatchesPanic(t *testing.T) {
	mw := middleware.Recover(testLogger())

	err := mw(newTestContext(), workflow.Action("panicky", nil), func(*workflow.Context) error {
		panic("test panic")
	})
	var pe *workflow.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *workflow.PanicError, got %v", err)
	}
	if pe.Step != "panicky" || pe.Value != "test panic" || len(pe.Stack) == 0 {
		t.Errorf("unexpected panic error: %+v", pe)
	}
	if !errors.Is(err, stepflow.ErrStepPanicked) {
		t.Error("panic error does not match ErrStepPanicked")
	}
}

func TestRecover_PassesThrough(t *testing.T) {
	mw := middleware.Recover(testLogger())
	called := false
	err := mw(newTestContext(), newTestStep(), func(*workflow.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("err = %v, called = %v", err, called)
	}
}

func TestLogging_PassesResult(t *testing.T) {
	mw := middleware.Logging(testLogger())
	want := errors.New("fail")

	if err := mw(newTestContext(), newTestStep(), ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mw(newTestContext(), newTestStep(), func(*workflow.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestTimeout_ConvertsDeadline(t *testing.T) {
	mw := middleware.Timeout(5*time.Millisecond, testLogger())

	err := mw(newTestContext(), newTestStep(), func(wctx *workflow.Context) error {
		<-wctx.Context().Done()
		return wctx.Context().Err()
	})
	var te *workflow.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *workflow.TimeoutError, got %v", err)
	}
	if te.After != 5*time.Millisecond || !errors.Is(err, stepflow.ErrStepTimeout) {
		t.Errorf("unexpected timeout error: %v", err)
	}
}

func TestTimeout_ParentCancellationUnchanged(t *testing.T) {
	mw := middleware.Timeout(time.Hour, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	wctx := workflow.NewContext(ctx, id.Nil, "")
	cancel()

	err := mw(wctx, newTestStep(), func(w *workflow.Context) error { return w.Context().Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	var te *workflow.TimeoutError
	if errors.As(err, &te) {
		t.Error("parent cancellation reported as timeout")
	}
}

func TestTimeout_Disabled(t *testing.T) {
	mw := middleware.Timeout(0, testLogger())
	err := mw(newTestContext(), newTestStep(), func(wctx *workflow.Context) error {
		if _, ok := wctx.Context().Deadline(); ok {
			t.Error("deadline set with zero timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRateLimit_WaitsForToken(t *testing.T) {
	limiter := rate.NewLimiter(rate.Inf, 1)
	mw := middleware.RateLimit(limiter)
	if err := mw(newTestContext(), newTestStep(), ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRateLimit_CancelledWhileWaiting(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	limiter.Allow()
	mw := middleware.RateLimit(limiter)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	called := false
	err := mw(workflow.NewContext(ctx, id.Nil, ""), newTestStep(), func(*workflow.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, stepflow.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if called {
		t.Error("step ran without a token")
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := middleware.NewCircuitBreaker("payments", 2, gobreaker.Settings{Timeout: time.Hour})
	mw := middleware.CircuitBreaker(cb, testLogger())
	boom := errors.New("boom")

	for range 2 {
		if err := mw(newTestContext(), newTestStep(), func(*workflow.Context) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("err = %v, want step error", err)
		}
	}

	called := false
	err := mw(newTestContext(), newTestStep(), func(*workflow.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, stepflow.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("step ran while breaker open")
	}
}

func TestCircuitBreaker_PassesSuccess(t *testing.T) {
	cb := middleware.NewCircuitBreaker("ok", 1)
	mw := middleware.CircuitBreaker(cb, testLogger())
	if err := mw(newTestContext(), newTestStep(), ok); err != nil {
		t.Fatal(err)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestAudit_RecordsOutcome(t *testing.T) {
	sink := middleware.NewMemoryAuditSink()
	mw := middleware.Audit(sink, testLogger())
	wctx := newTestContext()
	boom := errors.New("boom")

	_ = mw(wctx, newTestStep(), ok)
	_ = mw(wctx, newTestStep(), func(*workflow.Context) error { return boom })

	events := sink.ForWorkflow(wctx.WorkflowID())
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	first, second := events[0], events[1]
	if first.Outcome != middleware.OutcomeSuccess || first.Step != "send-email" ||
		first.StepIndex != 2 || first.CorrelationID != "corr-123" || first.Kind != "action" {
		t.Errorf("unexpected first event: %+v", first)
	}
	if first.ID.Prefix() != id.PrefixAudit {
		t.Errorf("audit id prefix = %q", first.ID.Prefix())
	}
	if second.Outcome != middleware.OutcomeFailure || second.Error != "boom" {
		t.Errorf("unexpected second event: %+v", second)
	}
}

func TestAudit_SinkErrorDoesNotFailStep(t *testing.T) {
	sink := middleware.AuditSinkFunc(func(context.Context, *middleware.AuditEvent) error {
		return errors.New("sink down")
	})
	if err := middleware.Audit(sink, testLogger())(newTestContext(), newTestStep(), ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIdempotency_SkipsCompletedSteps(t *testing.T) {
	store := memory.New()
	mw := middleware.Idempotency(store, 0, testLogger())
	wctx := newTestContext()

	calls := 0
	count := func(*workflow.Context) error { calls++; return nil }

	_ = mw(wctx, newTestStep(), count)
	_ = mw(wctx, newTestStep(), count)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	// Same step name in a different run is not skipped.
	_ = mw(newTestContext(), newTestStep(), count)
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestIdempotency_FailureNotMarked(t *testing.T) {
	store := memory.New()
	mw := middleware.Idempotency(store, 0, testLogger())
	wctx := newTestContext()

	_ = mw(wctx, newTestStep(), func(*workflow.Context) error { return errors.New("boom") })
	seen, _ := store.Seen(context.Background(), middleware.IdempotencyKey(wctx, newTestStep()))
	if seen {
		t.Error("failed step was marked")
	}
}

type brokenIdem struct{}

func (brokenIdem) Seen(context.Context, string) (bool, error) { return false, errors.New("down") }
func (brokenIdem) Mark(context.Context, string, time.Duration) error {
	return nil
}
func (brokenIdem) Forget(context.Context, string) error { return nil }

func TestIdempotency_LookupErrorFailsStep(t *testing.T) {
	mw := middleware.Idempotency(brokenIdem{}, 0, testLogger())
	called := false
	err := mw(newTestContext(), newTestStep(), func(*workflow.Context) error { called = true; return nil })
	if err == nil || called {
		t.Errorf("err = %v, called = %v", err, called)
	}
}

func TestMiddleware_OnRunner(t *testing.T) {
	sink := middleware.NewMemoryAuditSink()
	runner := workflow.NewRunner(workflow.NopEmitter{}, testLogger(),
		workflow.WithMiddleware(
			middleware.Recover(testLogger()),
			middleware.Logging(testLogger()),
			middleware.Audit(sink, testLogger()),
		))
	def := workflow.NewBuilder("audited").
		Then("a", ok).
		Then("b", func(*workflow.Context) error { panic("nope") }).
		Build()

	res := runner.Run(context.Background(), def)
	if res.Status != workflow.StatusFaulted || res.FailedStep != "b" {
		t.Fatalf("status %s failed step %q", res.Status, res.FailedStep)
	}
	var pe *workflow.PanicError
	if !errors.As(res.Err(), &pe) {
		t.Errorf("err = %v, want panic error", res.Err())
	}
	events := sink.Events()
	if len(events) != 1 || events[0].Step != "a" {
		t.Errorf("audit events = %+v, want only a", events)
	}
}
