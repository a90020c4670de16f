// Package store defines the aggregate persistence interface. The checkpoint
// and idempotency contracts live with the code that consumes them; Store
// composes them so one backend can serve a whole engine. Backends: Memory,
// Postgres, Bun, Redis and MongoDB.
package store

import (
	"context"

	"github.com/xraph/stepflow/checkpoint"
	"github.com/xraph/stepflow/middleware"
)

// Store is the aggregate persistence interface.
// A single backend (memory, postgres, bun, redis, mongo) implements all of it.
type Store interface {
	checkpoint.Store
	checkpoint.Lister
	middleware.IdempotencyStore

	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases resources owned by the store.
	Close() error
}
