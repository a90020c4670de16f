package checkpoint

import (
	"context"
	"time"

	"github.com/xraph/stepflow/id"
)

// NoStep is the StepIndex of a checkpoint written before any step completed.
const NoStep = -1

// Checkpoint is the persisted progress of one workflow run.
type Checkpoint struct {
	WorkflowID id.ID          `json:"workflow_id" msgpack:"workflow_id"`
	StepIndex  int            `json:"step_index" msgpack:"step_index"`
	Properties map[string]any `json:"properties" msgpack:"properties"`
	SavedAt    time.Time      `json:"saved_at" msgpack:"saved_at"`
}

// Store persists checkpoints. There is at most one checkpoint per workflow
// id; Save overwrites it.
type Store interface {
	// Save records that the step at stepIndex completed with props.
	Save(ctx context.Context, workflowID id.ID, stepIndex int, props map[string]any) error

	// Load returns the checkpoint for workflowID, or nil and no error if
	// none exists.
	Load(ctx context.Context, workflowID id.ID) (*Checkpoint, error)

	// Clear removes the checkpoint for workflowID. Clearing a missing
	// checkpoint is not an error.
	Clear(ctx context.Context, workflowID id.ID) error
}

// ListOpts controls pagination for Lister.
type ListOpts struct {
	// Limit is the maximum number of checkpoints to return. Zero means no limit.
	Limit int
	// Offset is the number of checkpoints to skip.
	Offset int
}

// Lister is implemented by stores that can enumerate their checkpoints,
// oldest SavedAt first. Every backend under store/ implements it.
type Lister interface {
	List(ctx context.Context, opts ListOpts) ([]*Checkpoint, error)
}
