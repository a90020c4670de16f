package postgres

import (
	"context"
	"fmt"
	"time"
)

// Seen reports whether key has been marked and has not expired.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	var seen bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM stepflow_idempotency
			WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)
		)`,
		key, time.Now().UTC(),
	).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("stepflow/postgres: idempotency lookup: %w", err)
	}
	return seen, nil
}

// Mark records key for ttl. A ttl of zero or less never expires.
func (s *Store) Mark(ctx context.Context, key string, ttl time.Duration) error {
	now := time.Now().UTC()
	var expiresAt *time.Time
	if ttl > 0 {
		t := now.Add(ttl)
		expiresAt = &t
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO stepflow_idempotency (key, marked_at, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			marked_at  = EXCLUDED.marked_at,
			expires_at = EXCLUDED.expires_at`,
		key, now, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("stepflow/postgres: idempotency mark: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired idempotency marks and returns how many
// were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM stepflow_idempotency WHERE expires_at IS NOT NULL AND expires_at <= $1`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("stepflow/postgres: purge idempotency: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Forget removes the mark for key.
func (s *Store) Forget(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM stepflow_idempotency WHERE key = $1`, key); err != nil {
		return fmt.Errorf("stepflow/postgres: idempotency forget: %w", err)
	}
	return nil
}
