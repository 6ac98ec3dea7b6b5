package plan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists user entitlements in Postgres. Schema lives in the
// user_entitlements migration.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates an entitlement store on the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Get(ctx context.Context, userID uuid.UUID) (*Entitlement, error) {
	const query = `
		SELECT user_id, plan_id, expires_at, updated_at
		FROM user_entitlements
		WHERE user_id = $1`

	var e Entitlement
	err := s.pool.QueryRow(ctx, query, userID).Scan(&e.UserID, &e.PlanID, &e.ExpiresAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntitlementNotFound
		}
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return &e, nil
}

func (s *PGStore) Set(ctx context.Context, userID uuid.UUID, planID string, expiresAt *time.Time) error {
	const query = `
		INSERT INTO user_entitlements (user_id, plan_id, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id)
		DO UPDATE SET plan_id = EXCLUDED.plan_id,
		              expires_at = EXCLUDED.expires_at,
		              updated_at = now()`

	if _, err := s.pool.Exec(ctx, query, userID, planID, expiresAt); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}
