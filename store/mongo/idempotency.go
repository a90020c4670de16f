package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Seen reports whether key has been marked and has not expired.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	filter := bson.M{
		"_id": key,
		"$or": bson.A{
			bson.M{"expires_at": bson.M{"$exists": false}},
			bson.M{"expires_at": bson.M{"$gt": now()}},
		},
	}
	n, err := s.idempotency().CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("stepflow/mongo: idempotency lookup: %w", err)
	}
	return n > 0, nil
}

// Mark records key for ttl. A ttl of zero or less never expires.
func (s *Store) Mark(ctx context.Context, key string, ttl time.Duration) error {
	m := idempotencyModel{Key: key, MarkedAt: now()}
	if ttl > 0 {
		t := m.MarkedAt.Add(ttl)
		m.ExpiresAt = &t
	}

	_, err := s.idempotency().ReplaceOne(ctx,
		bson.M{"_id": key}, m,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("stepflow/mongo: idempotency mark: %w", err)
	}
	return nil
}

// Forget removes the mark for key.
func (s *Store) Forget(ctx context.Context, key string) error {
	if _, err := s.idempotency().DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("stepflow/mongo: idempotency forget: %w", err)
	}
	return nil
}
