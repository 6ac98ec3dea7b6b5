package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store on Postgres. The conditional increment is a single
// INSERT ... ON CONFLICT ... DO UPDATE ... WHERE count < limit statement, so
// two concurrent callers at the quota boundary serialize on the row and only
// one is granted.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Increment(ctx context.Context, key Key, limit int) (int, bool, error) {
	if limit <= 0 {
		count, err := s.Count(ctx, key)
		return count, false, err
	}

	const query = `
		INSERT INTO usage_counters (user_id, feature_key, period_start, count, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (user_id, feature_key, period_start)
		DO UPDATE SET count = usage_counters.count + 1, updated_at = now()
		WHERE usage_counters.count < $4
		RETURNING count`

	var count int
	err := s.pool.QueryRow(ctx, query, key.UserID, key.FeatureKey, key.PeriodStart, limit).Scan(&count)
	if err == nil {
		return count, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, errors.Join(ErrStoreFailure, err)
	}

	// No row returned: the guard rejected the update, quota is exhausted.
	count, cerr := s.Count(ctx, key)
	if cerr != nil {
		return 0, false, cerr
	}
	return count, false, nil
}

func (s *PGStore) Count(ctx context.Context, key Key) (int, error) {
	const query = `
		SELECT count FROM usage_counters
		WHERE user_id = $1 AND feature_key = $2 AND period_start = $3`

	var count int
	err := s.pool.QueryRow(ctx, query, key.UserID, key.FeatureKey, key.PeriodStart).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Join(ErrStoreFailure, err)
	}
	return count, nil
}

func (s *PGStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM usage_counters WHERE period_start < $1`, cutoff)
	if err != nil {
		return 0, errors.Join(ErrStoreFailure, err)
	}
	return int(tag.RowsAffected()), nil
}
