package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/stepflow"
	"github.com/xraph/stepflow/store"
	"github.com/xraph/stepflow/store/codec"
)

// Collection name suffixes; the full name is prefix + suffix.
const (
	colCheckpoints = "checkpoints"
	colIdempotency = "idempotency"

	defaultCollectionPrefix = "stepflow_"
)

// Ensure Store implements the aggregate interface at compile time.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of store.Store.
// The caller owns the client lifecycle; Store never closes it.
type Store struct {
	db     *mongod.Database
	logger *slog.Logger
	codec  codec.Codec
	prefix string
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

// WithCollectionPrefix changes the "stepflow_" prefix of collection names.
func WithCollectionPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new MongoDB store. The caller owns the client lifecycle --
// the Store will not disconnect it on Close().
func New(db *mongod.Database, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
		codec:  codec.Default,
		prefix: defaultCollectionPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database for advanced usage.
func (s *Store) DB() *mongod.Database {
	return s.db
}

func (s *Store) checkpoints() *mongod.Collection { return s.db.Collection(s.prefix + colCheckpoints) }
func (s *Store) idempotency() *mongod.Collection { return s.db.Collection(s.prefix + colIdempotency) }

// Migrate creates indexes for the stepflow collections. Failures wrap
// stepflow.ErrMigrationFailed.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[*mongod.Collection][]mongod.IndexModel{
		s.checkpoints(): {
			// List order.
			{Keys: bson.D{
				{Key: "saved_at", Value: 1},
				{Key: "_id", Value: 1},
			}},
		},
		s.idempotency(): {
			// Expired marks are removed by the TTL monitor.
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0),
			},
		},
	}

	for col, models := range indexes {
		if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%w: stepflow/mongo: migrate %s indexes: %w",
				stepflow.ErrMigrationFailed, col.Name(), err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("stepflow/mongo: ping: %w", err)
	}
	return nil
}

// Close is a no-op because the caller owns the client lifecycle.
func (s *Store) Close() error {
	return nil
}

// ── helpers ──────────────────────────────────────────────────────

// now returns the current UTC time truncated to MongoDB's millisecond
// precision.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}
