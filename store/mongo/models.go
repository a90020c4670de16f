package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/stepflow/checkpoint"
	"github.com/xraph/stepflow/id"
	"github.com/xraph/stepflow/store/codec"
)

// ── Checkpoint model ──────────────────────────────────────────────

type checkpointModel struct {
	WorkflowID string    `bson:"_id"`
	StepIndex  int       `bson:"step_index"`
	Properties []byte    `bson:"properties"`
	Codec      string    `bson:"codec"`
	SavedAt    time.Time `bson:"saved_at"`
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
		SavedAt:    now(),
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
	Key       string     `bson:"_id"`
	MarkedAt  time.Time  `bson:"marked_at"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}
