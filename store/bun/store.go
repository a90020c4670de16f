package bunstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/xraph/stepflow"
	"github.com/xraph/stepflow/store"
	"github.com/xraph/stepflow/store/codec"
)

// Ensure Store implements the aggregate interface at compile time.
var _ store.Store = (*Store)(nil)

// Store is a Bun ORM implementation of store.Store using PostgreSQL dialect.
// The caller owns the *bun.DB lifecycle; Store never closes it.
type Store struct {
	db     *bun.DB
	logger *slog.Logger
	codec  codec.Codec
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithCodec sets the codec used to encode checkpoint properties.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) {
		s.codec = c
	}
}

// New creates a new Bun store. The caller owns the db lifecycle — the Store
// will not close it on Close().
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
		codec:  codec.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *bun.DB for advanced usage.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Migrate creates the tables and indexes from the models. It is safe to
// run repeatedly. Failures wrap stepflow.ErrMigrationFailed.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", stepflow.ErrMigrationFailed, err)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	models := []any{
		(*checkpointModel)(nil),
		(*idempotencyModel)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("stepflow/bun: create table %T: %w", m, err)
		}
	}

	_, err := s.db.NewCreateIndex().
		Model((*checkpointModel)(nil)).
		Index("idx_stepflow_checkpoints_saved_at").
		IfNotExists().
		Column("saved_at", "workflow_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("stepflow/bun: create checkpoint index: %w", err)
	}

	_, err = s.db.NewCreateIndex().
		Model((*idempotencyModel)(nil)).
		Index("idx_stepflow_idempotency_expires_at").
		IfNotExists().
		Column("expires_at").
		Where("expires_at IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("stepflow/bun: create idempotency index: %w", err)
	}

	s.logger.Debug("stepflow/bun: schema up to date")
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("stepflow/bun: ping: %w", err)
	}
	return nil
}

// Close is a no-op because the caller owns the *bun.DB lifecycle.
func (s *Store) Close() error {
	return nil
}
