// Package memory provides an in-memory checkpoint and idempotency store.
// It is safe for concurrent use and intended for tests and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/stepflow/checkpoint"
	"github.com/xraph/stepflow/id"
	"github.com/xraph/stepflow/middleware"
	"github.com/xraph/stepflow/workflow"
)

var (
	_ checkpoint.Store            = (*Store)(nil)
	_ checkpoint.Lister           = (*Store)(nil)
	_ middleware.IdempotencyStore = (*Store)(nil)
)

// Store keeps checkpoints and idempotency marks in maps. Saved properties
// are deep-copied on the way in and on the way out, so callers never share
// state with the store.
type Store struct {
	mu sync.RWMutex

	checkpoints map[string]*checkpoint.Checkpoint // key: workflow id
	marks       map[string]time.Time              // key -> expiry, zero = never

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		checkpoints: make(map[string]*checkpoint.Checkpoint),
		marks:       make(map[string]time.Time),
		now:         time.Now,
	}
}

// ──────────────────────────────────────────────────
// Lifecycle: Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Checkpoint store
// ──────────────────────────────────────────────────

// Save records the checkpoint for workflowID, replacing any previous one.
func (m *Store) Save(_ context.Context, workflowID id.ID, stepIndex int, props map[string]any) error {
	cp := &checkpoint.Checkpoint{
		WorkflowID: workflowID,
		StepIndex:  stepIndex,
		Properties: cloneProps(props),
		SavedAt:    m.now().UTC(),
	}
	m.mu.Lock()
	m.checkpoints[workflowID.String()] = cp
	m.mu.Unlock()
	return nil
}

// Load returns a copy of the checkpoint for workflowID, or nil if none.
func (m *Store) Load(_ context.Context, workflowID id.ID) (*checkpoint.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.checkpoints[workflowID.String()]
	if !ok {
		return nil, nil
	}
	return copyCheckpoint(cp), nil
}

// Clear removes the checkpoint for workflowID.
func (m *Store) Clear(_ context.Context, workflowID id.ID) error {
	m.mu.Lock()
	delete(m.checkpoints, workflowID.String())
	m.mu.Unlock()
	return nil
}

// List returns checkpoints ordered by SavedAt ascending.
func (m *Store) List(_ context.Context, opts checkpoint.ListOpts) ([]*checkpoint.Checkpoint, error) {
	m.mu.RLock()
	out := make([]*checkpoint.Checkpoint, 0, len(m.checkpoints))
	for _, cp := range m.checkpoints {
		out = append(out, copyCheckpoint(cp))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].WorkflowID.String() < out[j].WorkflowID.String()
		}
		return out[i].SavedAt.Before(out[j].SavedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Idempotency store
// ──────────────────────────────────────────────────

// Seen reports whether key was marked and has not expired.
func (m *Store) Seen(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	exp, ok := m.marks[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !exp.IsZero() && !m.now().Before(exp) {
		m.mu.Lock()
		// A concurrent Mark may have renewed the key since the read.
		if cur, still := m.marks[key]; still && !cur.IsZero() && !m.now().Before(cur) {
			delete(m.marks, key)
		}
		m.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// Forget removes the mark for key.
func (m *Store) Forget(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.marks, key)
	m.mu.Unlock()
	return nil
}

// Mark records key. A non-positive ttl keeps the mark forever.
func (m *Store) Mark(_ context.Context, key string, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.marks[key] = exp
	m.mu.Unlock()
	return nil
}

func copyCheckpoint(cp *checkpoint.Checkpoint) *checkpoint.Checkpoint {
	c := *cp
	c.Properties = cloneProps(cp.Properties)
	return &c
}

func cloneProps(props map[string]any) map[string]any {
	return workflow.CloneProperties(props)
}
