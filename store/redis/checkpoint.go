package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/stepflow/checkpoint"
	"github.com/xraph/stepflow/id"
	"github.com/xraph/stepflow/store/codec"
)

// Hash fields of a checkpoint record.
const (
	fieldWorkflowID = "workflow_id"
	fieldStepIndex  = "step_index"
	fieldProps      = "props"
	fieldCodec      = "codec"
	fieldSavedAt    = "saved_at"
)

// Save persists the checkpoint of a run, replacing any earlier one.
func (s *Store) Save(ctx context.Context, workflowID id.ID, stepIndex int, props map[string]any) error {
	data, err := s.codec.Marshal(props)
	if err != nil {
		return fmt.Errorf("stepflow/redis: save checkpoint: %w", err)
	}

	wid := workflowID.String()
	key := s.keys.checkpoint(wid)
	now := time.Now().UTC()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		fieldWorkflowID, wid,
		fieldStepIndex, stepIndex,
		fieldProps, data,
		fieldCodec, s.codec.Name(),
		fieldSavedAt, now.Format(time.RFC3339Nano),
	)
	pipe.ZAdd(ctx, s.keys.checkpointIndex(), goredis.Z{Score: float64(now.UnixMicro()), Member: wid})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stepflow/redis: save checkpoint: %w", err)
	}
	return nil
}

// Load returns the checkpoint of a run, or nil when none exists.
func (s *Store) Load(ctx context.Context, workflowID id.ID) (*checkpoint.Checkpoint, error) {
	vals, err := s.client.HGetAll(ctx, s.keys.checkpoint(workflowID.String())).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil // no checkpoint is not an error
		}
		return nil, fmt.Errorf("stepflow/redis: load checkpoint: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return mapToCheckpoint(vals)
}

// Clear removes the checkpoint of a run.
func (s *Store) Clear(ctx context.Context, workflowID id.ID) error {
	wid := workflowID.String()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keys.checkpoint(wid))
	pipe.ZRem(ctx, s.keys.checkpointIndex(), wid)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stepflow/redis: clear checkpoint: %w", err)
	}
	return nil
}

// List returns stored checkpoints, oldest first. Index entries whose hash
// has expired are pruned and skipped, so a page may come back short.
func (s *Store) List(ctx context.Context, opts checkpoint.ListOpts) ([]*checkpoint.Checkpoint, error) {
	start := int64(max(opts.Offset, 0))
	stop := int64(-1)
	if opts.Limit > 0 {
		stop = start + int64(opts.Limit) - 1
	}

	ids, err := s.client.ZRange(ctx, s.keys.checkpointIndex(), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("stepflow/redis: list checkpoints: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	pipe := s.client.Pipeline()
	for i, wid := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.keys.checkpoint(wid))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("stepflow/redis: list checkpoints: %w", err)
	}

	var (
		out   []*checkpoint.Checkpoint
		stale []any
	)
	for i, cmd := range cmds {
		vals := cmd.Val()
		if len(vals) == 0 {
			stale = append(stale, ids[i])
			continue
		}
		cp, convErr := mapToCheckpoint(vals)
		if convErr != nil {
			s.logger.Warn("stepflow/redis: skipping unreadable checkpoint",
				slog.String("workflow_id", ids[i]),
				slog.String("error", convErr.Error()),
			)
			continue
		}
		out = append(out, cp)
	}

	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, s.keys.checkpointIndex(), stale...).Err(); err != nil {
			s.logger.Warn("stepflow/redis: prune checkpoint index",
				slog.String("error", err.Error()),
			)
		}
	}
	return out, nil
}

// ── helpers ──

func mapToCheckpoint(m map[string]string) (*checkpoint.Checkpoint, error) {
	wid, err := id.Parse(m[fieldWorkflowID])
	if err != nil {
		return nil, fmt.Errorf("stepflow/redis: parse workflow id: %w", err)
	}
	idx, err := strconv.Atoi(m[fieldStepIndex])
	if err != nil {
		return nil, fmt.Errorf("stepflow/redis: parse step index: %w", err)
	}
	c, err := codec.ByName(m[fieldCodec])
	if err != nil {
		return nil, fmt.Errorf("stepflow/redis: %w", err)
	}
	props, err := c.Unmarshal([]byte(m[fieldProps]))
	if err != nil {
		return nil, fmt.Errorf("stepflow/redis: decode properties: %w", err)
	}
	savedAt, _ := time.Parse(time.RFC3339Nano, m[fieldSavedAt])

	return &checkpoint.Checkpoint{
		WorkflowID: wid,
		StepIndex:  idx,
		Properties: props,
		SavedAt:    savedAt,
	}, nil
}
