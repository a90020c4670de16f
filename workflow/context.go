package workflow

import (
	"context"
	"log/slog"
	"maps"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/stepflow/id"
)

// ErrorRecord is one entry in a run's append-only error list.
type ErrorRecord struct {
	StepName  string
	Err       error
	Timestamp time.Time
}

// runState is the mutable state of one workflow run. It is shared by every
// view of the run, including nested and parallel steps.
type runState struct {
	workflowID    id.ID
	correlationID string
	child         bool
	runner        *Runner
	logger        *slog.Logger

	mu        sync.RWMutex
	props     map[string]any
	stepName  string
	stepIndex int

	aborted atomic.Bool

	errMu sync.Mutex
	errs  []ErrorRecord
}

// Context is the execution context threaded through every step of a run.
//
// A Context is a view: it pairs a cancellation signal with the run's shared
// state. WithContext returns a second view over the same state with a
// different signal, which is how Timeout and tracing middleware narrow the
// signal without copying properties. Properties are safe for concurrent
// use; concurrent writes to the same key from Parallel siblings are
// last-writer-wins.
type Context struct {
	ctx context.Context
	st  *runState
}

// NewContext creates the context for a new run. A nil workflowID is
// replaced with a fresh one; an empty correlationID with a random UUID.
func NewContext(ctx context.Context, workflowID id.ID, correlationID string) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if workflowID.IsNil() {
		workflowID = id.NewWorkflowRunID()
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return &Context{
		ctx: ctx,
		st: &runState{
			workflowID:    workflowID,
			correlationID: correlationID,
			props:         make(map[string]any),
			stepIndex:     -1,
		},
	}
}

// Context returns the cancellation signal steps must honor.
func (c *Context) Context() context.Context { return c.ctx }

// WithContext returns a view over the same run that uses ctx as its
// cancellation signal.
func (c *Context) WithContext(ctx context.Context) *Context {
	return &Context{ctx: ctx, st: c.st}
}

// WorkflowID returns the identifier of the run.
func (c *Context) WorkflowID() id.ID { return c.st.workflowID }

// CorrelationID returns the correlation identifier shared with sub-workflows.
func (c *Context) CorrelationID() string { return c.st.correlationID }

// IsChild reports whether this context belongs to a sub-workflow.
func (c *Context) IsChild() bool { return c.st.child }

// Logger returns the logger of the runner driving this run.
func (c *Context) Logger() *slog.Logger {
	if c.st.logger == nil {
		return slog.Default()
	}
	return c.st.logger
}

// Get returns the property stored under key.
func (c *Context) Get(key string) (any, bool) {
	c.st.mu.RLock()
	defer c.st.mu.RUnlock()
	v, ok := c.st.props[key]
	return v, ok
}

// Set stores value under key.
func (c *Context) Set(key string, value any) {
	c.st.mu.Lock()
	c.st.props[key] = value
	c.st.mu.Unlock()
}

// Delete removes key.
func (c *Context) Delete(key string) {
	c.st.mu.Lock()
	delete(c.st.props, key)
	c.st.mu.Unlock()
}

// Has reports whether key is set.
func (c *Context) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Properties returns a shallow copy of the property map.
func (c *Context) Properties() map[string]any {
	c.st.mu.RLock()
	defer c.st.mu.RUnlock()
	return maps.Clone(c.st.props)
}

// Snapshot returns a deep copy of the property map. Nested maps and slices
// are cloned so later mutations of the run do not leak into the snapshot.
// See CloneValue for how shared and cyclic references are copied.
func (c *Context) Snapshot() map[string]any {
	c.st.mu.RLock()
	defer c.st.mu.RUnlock()
	return CloneProperties(c.st.props)
}

// Restore replaces the property map with a deep copy of props.
func (c *Context) Restore(props map[string]any) {
	next := CloneProperties(props)
	c.st.mu.Lock()
	c.st.props = next
	c.st.mu.Unlock()
}

// CurrentStepName returns the name of the top-level step being executed.
func (c *Context) CurrentStepName() string {
	c.st.mu.RLock()
	defer c.st.mu.RUnlock()
	return c.st.stepName
}

// CurrentStepIndex returns the index of the top-level step being executed,
// or -1 before the first step.
func (c *Context) CurrentStepIndex() int {
	c.st.mu.RLock()
	defer c.st.mu.RUnlock()
	return c.st.stepIndex
}

// SetCurrentStep records the top-level step about to execute.
func (c *Context) SetCurrentStep(name string, index int) {
	c.st.mu.Lock()
	c.st.stepName = name
	c.st.stepIndex = index
	c.st.mu.Unlock()
}

// Aborted reports whether the run has been asked to halt.
func (c *Context) Aborted() bool { return c.st.aborted.Load() }

// Abort asks the run to halt after the current top-level step.
func (c *Context) Abort() { c.st.aborted.Store(true) }

// SetAborted sets or clears the abort flag.
func (c *Context) SetAborted(v bool) { c.st.aborted.Store(v) }

// Errors returns a copy of the run's error records.
func (c *Context) Errors() []ErrorRecord {
	c.st.errMu.Lock()
	defer c.st.errMu.Unlock()
	out := make([]ErrorRecord, len(c.st.errs))
	copy(out, c.st.errs)
	return out
}

// AddError appends an error record.
func (c *Context) AddError(stepName string, err error) {
	c.st.errMu.Lock()
	c.st.errs = append(c.st.errs, ErrorRecord{
		StepName:  stepName,
		Err:       err,
		Timestamp: time.Now().UTC(),
	})
	c.st.errMu.Unlock()
}

// newChild creates the context of a sub-workflow: same signal, same
// correlation id, a fresh workflow id and a deep copy of the parent's
// properties.
func (c *Context) newChild() *Context {
	child := NewContext(c.ctx, id.Nil, c.st.correlationID)
	child.st.child = true
	child.st.runner = c.st.runner
	child.st.logger = c.st.logger
	child.st.props = c.Snapshot()
	return child
}

// Value returns the property under key asserted to T.
func Value[T any](c *Context, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// CloneValue returns a deep copy of v. Maps, slices, arrays, pointers and
// the exported fields of structs are copied recursively; other values are
// returned as is. A pointer, map or slice reached more than once is copied
// once, so shared references stay shared and cyclic graphs terminate.
func CloneValue(v any) any { return newCloner().value(v) }

// CloneProperties deep-copies a property map. References shared between
// properties stay shared in the copy.
func CloneProperties(props map[string]any) map[string]any {
	c := newCloner()
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = c.value(v)
	}
	return out
}

// visit identifies a reference already copied. Slices include their length
// since two slices may share a backing array.
type visit struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

type cloner struct {
	seen map[visit]reflect.Value
}

func newCloner() *cloner { return &cloner{seen: make(map[visit]reflect.Value)} }

func (c *cloner) value(v any) any {
	switch v.(type) {
	case nil:
		return nil
	case string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64, time.Time, time.Duration:
		return v
	}
	return c.clone(reflect.ValueOf(v)).Interface()
}

func (c *cloner) clone(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		key := visit{ptr: v.Pointer(), typ: v.Type()}
		if out, ok := c.seen[key]; ok {
			return out
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		c.seen[key] = out
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), c.elem(iter.Value(), v.Type().Elem()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		key := visit{ptr: v.Pointer(), typ: v.Type(), n: v.Len()}
		if out, ok := c.seen[key]; ok {
			return out
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		c.seen[key] = out
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.elem(v.Index(i), v.Type().Elem()))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.elem(v.Index(i), v.Type().Elem()))
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if f := out.Field(i); f.CanSet() {
				f.Set(c.elem(v.Field(i), f.Type()))
			}
		}
		return out
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		key := visit{ptr: v.Pointer(), typ: v.Type()}
		if out, ok := c.seen[key]; ok {
			return out
		}
		out := reflect.New(v.Type().Elem())
		c.seen[key] = out
		out.Elem().Set(c.elem(v.Elem(), v.Type().Elem()))
		return out
	default:
		return v
	}
}

// elem clones an element and converts it back to the container's element
// type, which matters for interface-typed containers.
func (c *cloner) elem(v reflect.Value, typ reflect.Type) reflect.Value {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Zero(typ)
		}
		return reflect.ValueOf(c.value(v.Elem().Interface()))
	}
	out := c.clone(v)
	if out.Type() != typ {
		return out.Convert(typ)
	}
	return out
}
