// Package postgres implements store.Store using pgx/v5 with raw SQL.
// Checkpoints are upserted one row per run, idempotency marks carry an
// optional expiry, and the schema ships as embedded SQL migrations.
package postgres
