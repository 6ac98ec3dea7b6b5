package plan_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentive/entitlements/pkg/plan"
)

func TestEffectiveRankAt(t *testing.T) {
	t.Parallel()

	h, err := plan.NewHierarchy(testTiers())
	require.NoError(t, err)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		ent  *plan.Entitlement
		want int
	}{
		{name: "nil entitlement is free", ent: nil, want: plan.FreeRank},
		{
			name: "active plan without expiry",
			ent:  &plan.Entitlement{PlanID: "premium"},
			want: 2,
		},
		{
			name: "active plan with future expiry",
			ent:  &plan.Entitlement{PlanID: "plus", ExpiresAt: &future},
			want: 1,
		},
		{
			name: "expired one second ago drops to free",
			ent:  &plan.Entitlement{PlanID: "premium", ExpiresAt: &past},
			want: plan.FreeRank,
		},
		{
			name: "expiring exactly now still counts",
			ent:  &plan.Entitlement{PlanID: "premium", ExpiresAt: &now},
			want: 2,
		},
		{
			name: "unknown plan ID degrades to free",
			ent:  &plan.Entitlement{PlanID: "legacy_gold"},
			want: plan.FreeRank,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ent.EffectiveRankAt(h, now))
		})
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := plan.NewMemoryStore()
	userID := uuid.New()

	_, err := store.Get(ctx, userID)
	require.ErrorIs(t, err, plan.ErrEntitlementNotFound)

	expiry := time.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, store.Set(ctx, userID, "premium", &expiry))

	ent, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "premium", ent.PlanID)
	require.NotNil(t, ent.ExpiresAt)
	assert.True(t, ent.ExpiresAt.Equal(expiry))

	// Set replaces, never accumulates.
	require.NoError(t, store.Set(ctx, userID, "free", nil))
	ent, err = store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "free", ent.PlanID)
	assert.Nil(t, ent.ExpiresAt)
}

func TestApplyChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, err := plan.NewHierarchy(testTiers())
	require.NoError(t, err)

	t.Run("upgrade stores the new plan", func(t *testing.T) {
		t.Parallel()

		store := plan.NewMemoryStore()
		userID := uuid.New()
		expiry := time.Now().Add(30 * 24 * time.Hour)

		err := plan.ApplyChange(ctx, store, h, plan.Change{
			UserID:    userID,
			Kind:      plan.ChangeUpgrade,
			PlanID:    "premium",
			ExpiresAt: &expiry,
		})
		require.NoError(t, err)

		ent, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "premium", ent.PlanID)
	})

	t.Run("cancellation drops to free regardless of payload", func(t *testing.T) {
		t.Parallel()

		store := plan.NewMemoryStore()
		userID := uuid.New()
		require.NoError(t, store.Set(ctx, userID, "premium", nil))

		err := plan.ApplyChange(ctx, store, h, plan.Change{
			UserID: userID,
			Kind:   plan.ChangeCancellation,
			PlanID: "premium",
		})
		require.NoError(t, err)

		ent, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "free", ent.PlanID)
		assert.Nil(t, ent.ExpiresAt)
	})

	t.Run("upgrade to unknown plan rejected", func(t *testing.T) {
		t.Parallel()

		store := plan.NewMemoryStore()
		err := plan.ApplyChange(ctx, store, h, plan.Change{
			UserID: uuid.New(),
			Kind:   plan.ChangeUpgrade,
			PlanID: "enterprise",
		})
		require.ErrorIs(t, err, plan.ErrInvalidChange)
		require.ErrorIs(t, err, plan.ErrPlanNotFound)
	})

	t.Run("missing user ID rejected", func(t *testing.T) {
		t.Parallel()

		err := plan.ApplyChange(ctx, plan.NewMemoryStore(), h, plan.Change{
			Kind:   plan.ChangeRenewal,
			PlanID: "plus",
		})
		require.ErrorIs(t, err, plan.ErrInvalidChange)
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		t.Parallel()

		err := plan.ApplyChange(ctx, plan.NewMemoryStore(), h, plan.Change{
			UserID: uuid.New(),
			Kind:   plan.ChangeKind("chargeback"),
		})
		require.ErrorIs(t, err, plan.ErrInvalidChange)
	})
}
