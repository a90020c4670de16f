package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/stepflow/checkpoint"
	"github.com/xraph/stepflow/id"
)

// Save persists the checkpoint of a run, replacing any earlier one.
func (s *Store) Save(ctx context.Context, workflowID id.ID, stepIndex int, props map[string]any) error {
	m, err := toCheckpointModel(s.codec, workflowID, stepIndex, props)
	if err != nil {
		return fmt.Errorf("stepflow/mongo: save checkpoint: %w", err)
	}

	_, err = s.checkpoints().ReplaceOne(ctx,
		bson.M{"_id": m.WorkflowID}, m,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("stepflow/mongo: save checkpoint: %w", err)
	}
	return nil
}

// Load returns the checkpoint of a run, or nil when none exists.
func (s *Store) Load(ctx context.Context, workflowID id.ID) (*checkpoint.Checkpoint, error) {
	var m checkpointModel
	err := s.checkpoints().FindOne(ctx, bson.M{"_id": workflowID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stepflow/mongo: load checkpoint: %w", err)
	}

	cp, err := fromCheckpointModel(&m)
	if err != nil {
		return nil, fmt.Errorf("stepflow/mongo: load checkpoint: %w", err)
	}
	return cp, nil
}

// Clear removes the checkpoint of a run.
func (s *Store) Clear(ctx context.Context, workflowID id.ID) error {
	if _, err := s.checkpoints().DeleteOne(ctx, bson.M{"_id": workflowID.String()}); err != nil {
		return fmt.Errorf("stepflow/mongo: clear checkpoint: %w", err)
	}
	return nil
}

// List returns stored checkpoints, oldest first.
func (s *Store) List(ctx context.Context, opts checkpoint.ListOpts) ([]*checkpoint.Checkpoint, error) {
	findOpts := options.Find().SetSort(bson.D{
		{Key: "saved_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.checkpoints().Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("stepflow/mongo: list checkpoints: %w", err)
	}

	var models []checkpointModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("stepflow/mongo: list checkpoints decode: %w", err)
	}

	out := make([]*checkpoint.Checkpoint, 0, len(models))
	for i := range models {
		cp, convErr := fromCheckpointModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("stepflow/mongo: list checkpoints: %w", convErr)
		}
		out = append(out, cp)
	}
	return out, nil
}
