package store

import (
	"context"
	"fmt"
	"time"
)

// TryAcquire attempts to take the named TTL lock for holder. The acquisition
// is a single conditional upsert evaluated atomically by Postgres: it wins
// only when the lock row is absent, expired, or already held by the same
// holder.
func (s *Store) TryAcquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_sync_locks (lock_key, holder_id, locked_until)
		VALUES ($1, $2, $3)
		ON CONFLICT (lock_key) DO UPDATE
		SET holder_id = EXCLUDED.holder_id, locked_until = EXCLUDED.locked_until
		WHERE catalog_sync_locks.locked_until < now()
		   OR catalog_sync_locks.holder_id = EXCLUDED.holder_id`,
		key, holder, time.Now().Add(ttl).UTC())
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read lock result for %s: %w", key, err)
	}
	return affected == 1, nil
}

// Release drops the lock if the holder still owns it. Releasing a lock taken
// over by someone else is a no-op.
func (s *Store) Release(ctx context.Context, key, holder string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM catalog_sync_locks WHERE lock_key = $1 AND holder_id = $2`,
		key, holder)
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}
