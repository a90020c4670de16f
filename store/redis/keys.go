package redis

// Redis key naming conventions for stepflow data.
// All keys share a prefix, "stepflow:" unless WithKeyPrefix says otherwise.

const defaultKeyPrefix = "stepflow:"

type keys struct {
	prefix string
}

// checkpoint returns the hash key of a run's checkpoint: stepflow:checkpoint:{id}
func (k keys) checkpoint(workflowID string) string {
	return k.prefix + "checkpoint:" + workflowID
}

// checkpointIndex is the sorted set of workflow ids scored by save time.
func (k keys) checkpointIndex() string { return k.prefix + "checkpoints" }

// idempotency returns the key of an idempotency mark: stepflow:idem:{key}
func (k keys) idempotency(key string) string { return k.prefix + "idem:" + key }
