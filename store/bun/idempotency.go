package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Seen reports whether key has been marked and has not expired.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	now := time.Now().UTC()
	seen, err := s.db.NewSelect().
		Model((*idempotencyModel)(nil)).
		Where("key = ?", key).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("expires_at IS NULL").WhereOr("expires_at > ?", now)
		}).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("stepflow/bun: idempotency lookup: %w", err)
	}
	return seen, nil
}

// Mark records key for ttl. A ttl of zero or less never expires.
func (s *Store) Mark(ctx context.Context, key string, ttl time.Duration) error {
	m := &idempotencyModel{Key: key, MarkedAt: time.Now().UTC()}
	if ttl > 0 {
		t := m.MarkedAt.Add(ttl)
		m.ExpiresAt = &t
	}

	_, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (key) DO UPDATE").
		Set("marked_at = EXCLUDED.marked_at").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("stepflow/bun: idempotency mark: %w", err)
	}
	return nil
}

// Forget removes the mark for key.
func (s *Store) Forget(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*idempotencyModel)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("stepflow/bun: idempotency forget: %w", err)
	}
	return nil
}
