package coupon_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/svc/coupon"
)

func TestMemoryStoreRedeem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	maxUses := 1
	id := uuid.New()
	store := coupon.NewMemoryStore(coupon.Coupon{ID: id, Code: " once ", Active: true, MaxUses: &maxUses})
	agencyID := uuid.New()

	got, err := store.FindActiveByCode(ctx, "ONCE")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	outcome, err := store.Redeem(ctx, id, "cs_1", agencyID)
	require.NoError(t, err)
	assert.Equal(t, coupon.Redeemed, outcome)

	outcome, err = store.Redeem(ctx, id, "cs_1", agencyID)
	require.NoError(t, err)
	assert.Equal(t, coupon.Replayed, outcome)

	outcome, err = store.Redeem(ctx, id, "cs_2", agencyID)
	require.NoError(t, err)
	assert.Equal(t, coupon.Exhausted, outcome)

	c, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, 1, c.CurrentUses)

	_, err = store.Redeem(ctx, uuid.New(), "cs_3", agencyID)
	assert.ErrorIs(t, err, coupon.ErrCouponNotFound)

	_, err = store.FindActiveByCode(ctx, "missing")
	assert.ErrorIs(t, err, coupon.ErrCouponNotFound)
}
