package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/stepflow/checkpoint"
	"github.com/xraph/stepflow/id"
)

// Save persists the checkpoint of a run, replacing any earlier one.
func (s *Store) Save(ctx context.Context, workflowID id.ID, stepIndex int, props map[string]any) error {
	m, err := toCheckpointModel(s.codec, workflowID, stepIndex, props)
	if err != nil {
		return fmt.Errorf("stepflow/bun: save checkpoint: %w", err)
	}

	_, err = s.db.NewInsert().
		Model(m).
		On("CONFLICT (workflow_id) DO UPDATE").
		Set("step_index = EXCLUDED.step_index").
		Set("properties = EXCLUDED.properties").
		Set("codec = EXCLUDED.codec").
		Set("saved_at = EXCLUDED.saved_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("stepflow/bun: save checkpoint: %w", err)
	}
	return nil
}

// Load returns the checkpoint of a run, or nil when none exists.
func (s *Store) Load(ctx context.Context, workflowID id.ID) (*checkpoint.Checkpoint, error) {
	m := new(checkpointModel)
	err := s.db.NewSelect().
		Model(m).
		Where("workflow_id = ?", workflowID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stepflow/bun: load checkpoint: %w", err)
	}

	cp, err := fromCheckpointModel(m)
	if err != nil {
		return nil, fmt.Errorf("stepflow/bun: load checkpoint: %w", err)
	}
	return cp, nil
}

// Clear removes the checkpoint of a run.
func (s *Store) Clear(ctx context.Context, workflowID id.ID) error {
	_, err := s.db.NewDelete().
		Model((*checkpointModel)(nil)).
		Where("workflow_id = ?", workflowID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("stepflow/bun: clear checkpoint: %w", err)
	}
	return nil
}

// List returns stored checkpoints, oldest first.
func (s *Store) List(ctx context.Context, opts checkpoint.ListOpts) ([]*checkpoint.Checkpoint, error) {
	var models []checkpointModel
	q := s.db.NewSelect().
		Model(&models).
		OrderExpr("saved_at ASC, workflow_id ASC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("stepflow/bun: list checkpoints: %w", err)
	}

	out := make([]*checkpoint.Checkpoint, 0, len(models))
	for i := range models {
		cp, err := fromCheckpointModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("stepflow/bun: list checkpoints: %w", err)
		}
		out = append(out, cp)
	}
	return out, nil
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
