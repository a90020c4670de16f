// Package checkpoint persists workflow progress so an interrupted run can
// continue from the step after the last one that completed.
//
// A checkpoint is written by [Middleware] after every successful top-level
// step. It records the index of that step and a deep snapshot of the run's
// properties. [Resumer] reads it back: a run with no checkpoint starts from
// the beginning, a run whose last completed step is the final one is
// reported as complete without executing anything, and any other run
// restores the snapshot and continues at the next index.
//
// Sub-workflows are checkpointed as a unit by their parent. Their own
// steps never write a checkpoint.
//
// Backends live under store/: memory, redis, postgres, bun and mongo.
package checkpoint
