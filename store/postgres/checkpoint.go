package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/stepflow/checkpoint"
	"github.com/xraph/stepflow/id"
	"github.com/xraph/stepflow/store/codec"
)

const checkpointColumns = `workflow_id, step_index, properties, codec, saved_at`

// Save persists the checkpoint of a run, replacing any earlier one.
func (s *Store) Save(ctx context.Context, workflowID id.ID, stepIndex int, props map[string]any) error {
	data, err := s.codec.Marshal(props)
	if err != nil {
		return fmt.Errorf("stepflow/postgres: save checkpoint: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO stepflow_checkpoints (`+checkpointColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workflow_id) DO UPDATE SET
			step_index = EXCLUDED.step_index,
			properties = EXCLUDED.properties,
			codec      = EXCLUDED.codec,
			saved_at   = EXCLUDED.saved_at`,
		workflowID.String(), stepIndex, data, s.codec.Name(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("stepflow/postgres: save checkpoint: %w", err)
	}
	return nil
}

// Load returns the checkpoint of a run, or nil when none exists.
func (s *Store) Load(ctx context.Context, workflowID id.ID) (*checkpoint.Checkpoint, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+checkpointColumns+` FROM stepflow_checkpoints WHERE workflow_id = $1`,
		workflowID.String(),
	)
	cp, err := scanCheckpoint(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stepflow/postgres: load checkpoint: %w", err)
	}
	return cp, nil
}

// Clear removes the checkpoint of a run.
func (s *Store) Clear(ctx context.Context, workflowID id.ID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM stepflow_checkpoints WHERE workflow_id = $1`,
		workflowID.String(),
	)
	if err != nil {
		return fmt.Errorf("stepflow/postgres: clear checkpoint: %w", err)
	}
	return nil
}

// List returns stored checkpoints, oldest first.
func (s *Store) List(ctx context.Context, opts checkpoint.ListOpts) ([]*checkpoint.Checkpoint, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + checkpointColumns + ` FROM stepflow_checkpoints ORDER BY saved_at ASC, workflow_id ASC`)

	var args []any
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		b.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		b.WriteString(` OFFSET $` + strconv.Itoa(len(args)))
	}

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("stepflow/postgres: list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []*checkpoint.Checkpoint
	for rows.Next() {
		cp, scanErr := scanCheckpoint(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("stepflow/postgres: list checkpoints: %w", scanErr)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stepflow/postgres: list checkpoints: %w", err)
	}
	return out, nil
}

// ── helpers ──

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*checkpoint.Checkpoint, error) {
	var (
		rawID     string
		stepIndex int
		data      []byte
		codecName string
		savedAt   time.Time
	)
	if err := row.Scan(&rawID, &stepIndex, &data, &codecName, &savedAt); err != nil {
		return nil, err
	}

	wid, err := id.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse workflow id: %w", err)
	}
	c, err := codec.ByName(codecName)
	if err != nil {
		return nil, err
	}
	props, err := c.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}

	return &checkpoint.Checkpoint{
		WorkflowID: wid,
		StepIndex:  stepIndex,
		Properties: props,
		SavedAt:    savedAt.UTC(),
	}, nil
}

// isNoRows matches both pgx and database/sql misses.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}
