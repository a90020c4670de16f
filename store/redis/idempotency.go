package redis

import (
	"context"
	"fmt"
	"time"
)

// Seen reports whether key has been marked and has not expired.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keys.idempotency(key)).Result()
	if err != nil {
		return false, fmt.Errorf("stepflow/redis: idempotency lookup: %w", err)
	}
	return n > 0, nil
}

// Mark records key for ttl. A ttl of zero or less never expires.
func (s *Store) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.keys.idempotency(key), time.Now().UTC().Format(time.RFC3339Nano), ttl).Err(); err != nil {
		return fmt.Errorf("stepflow/redis: idempotency mark: %w", err)
	}
	return nil
}

// Forget removes the mark for key.
func (s *Store) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keys.idempotency(key)).Err(); err != nil {
		return fmt.Errorf("stepflow/redis: idempotency forget: %w", err)
	}
	return nil
}
