package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/stepflow/checkpoint"
	"github.com/xraph/stepflow/id"
	"github.com/xraph/stepflow/store/codec"
)

// ── Checkpoint model ──────────────────────────────────────────────

type checkpointModel struct {
	bun.BaseModel `bun:"table:stepflow_checkpoints,alias:c"`

	WorkflowID string    `bun:"workflow_id,pk"`
	StepIndex  int       `bun:"step_index,notnull"`
	Properties []byte    `bun:"properties,notnull,type:bytea"`
	Codec      string    `bun:"codec,notnull,default:'json'"`
	SavedAt    time.Time `bun:"saved_at,notnull,default:current_timestamp"`
}

func toCheckpointModel(c codec.Codec, workflowID id.ID, stepIndex int, props map[string]any) (*checkpointModel, error) {
	data, err := c.Marshal(props)
	if err != nil {
		return nil, err
	}
	return &checkpointModel{
		WorkflowID: workflowID.String(),
		StepIndex:  stepIndex,
		Properties: data,
		Codec:      c.Name(),
		SavedAt:    time.Now().UTC(),
	}, nil
}

func fromCheckpointModel(m *checkpointModel) (*checkpoint.Checkpoint, error) {
	wid, err := id.Parse(m.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("parse workflow id: %w", err)
	}
	c, err := codec.ByName(m.Codec)
	if err != nil {
		return nil, err
	}
	props, err := c.Unmarshal(m.Properties)
	if err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	return &checkpoint.Checkpoint{
		WorkflowID: wid,
		StepIndex:  m.StepIndex,
		Properties: props,
		SavedAt:    m.SavedAt.UTC(),
	}, nil
}

// ── Idempotency model ─────────────────────────────────────────────

type idempotencyModel struct {
	bun.BaseModel `bun:"table:stepflow_idempotency,alias:i"`

	Key       string     `bun:"key,pk"`
	MarkedAt  time.Time  `bun:"marked_at,notnull,default:current_timestamp"`
	ExpiresAt *time.Time `bun:"expires_at"`
}
