package coupon_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/svc/coupon"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindActiveByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Coupon), args.Error(1)
}

func (m *mockStore) Redeem(ctx context.Context, couponID uuid.UUID, sessionID string, agencyID uuid.UUID) (coupon.RedeemOutcome, error) {
	args := m.Called(ctx, couponID, sessionID, agencyID)
	return args.Get(0).(coupon.RedeemOutcome), args.Error(1)
}

func ptr[T any](v T) *T { return &v }

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SUMMER25", coupon.NormalizeCode("  summer25 "))
	assert.Equal(t, "STRASSE", coupon.NormalizeCode("straße"))
	assert.Empty(t, coupon.NormalizeCode("   "))
}

// Every condition is flipped on its own against an otherwise valid coupon.
func TestCheck(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	planA := uuid.New()
	planB := uuid.New()

	valid := func() coupon.Coupon {
		return coupon.Coupon{
			ID:              uuid.New(),
			Code:            "SUMMER",
			DiscountType:    coupon.DiscountPercentage,
			DiscountValue:   decimal.NewFromInt(20),
			ValidFrom:       ptr(now.Add(-24 * time.Hour)),
			ValidUntil:      ptr(now.Add(24 * time.Hour)),
			MaxUses:         ptr(10),
			CurrentUses:     3,
			ApplicablePlans: []uuid.UUID{planA},
			Active:          true,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *coupon.Coupon)
		plan   *uuid.UUID
		want   bool
	}{
		{name: "valid", mutate: func(*coupon.Coupon) {}, plan: &planA, want: true},
		{name: "inactive", mutate: func(c *coupon.Coupon) { c.Active = false }, plan: &planA},
		{name: "not yet valid", mutate: func(c *coupon.Coupon) { c.ValidFrom = ptr(now.Add(time.Minute)) }, plan: &planA},
		{name: "expired", mutate: func(c *coupon.Coupon) { c.ValidUntil = ptr(now.Add(-time.Minute)) }, plan: &planA},
		{name: "used up", mutate: func(c *coupon.Coupon) { c.CurrentUses = 10 }, plan: &planA},
		{name: "other plan", mutate: func(*coupon.Coupon) {}, plan: &planB},
		{name: "no plan supplied skips restriction", mutate: func(*coupon.Coupon) {}, plan: nil, want: true},
		{name: "unrestricted plans", mutate: func(c *coupon.Coupon) { c.ApplicablePlans = nil }, plan: &planB, want: true},
		{
			name: "open ended",
			mutate: func(c *coupon.Coupon) {
				c.ValidFrom, c.ValidUntil, c.MaxUses = nil, nil, nil
				c.CurrentUses = 1000
			},
			plan: &planA,
			want: true,
		},
		{name: "boundary valid_from", mutate: func(c *coupon.Coupon) { c.ValidFrom = ptr(now) }, plan: &planA, want: true},
		{name: "boundary valid_until", mutate: func(c *coupon.Coupon) { c.ValidUntil = ptr(now) }, plan: &planA, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := valid()
			tt.mutate(&c)
			assert.Equal(t, tt.want, coupon.Check(c, now, tt.plan))
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now()

	t.Run("returns usable coupon by normalized code", func(t *testing.T) {
		t.Parallel()
		store := new(mockStore)
		c := &coupon.Coupon{ID: uuid.New(), Code: "SPRING", DiscountType: coupon.DiscountFixed, DiscountValue: decimal.NewFromInt(50), Active: true}
		store.On("FindActiveByCode", ctx, "SPRING").Return(c, nil)

		got, err := coupon.NewValidator(store).Validate(ctx, " spring ", now, nil)
		require.NoError(t, err)
		assert.Equal(t, c, got)
		_, isPercent := got.Percentage()
		assert.False(t, isPercent)
		store.AssertExpectations(t)
	})

	t.Run("unknown code is not an error", func(t *testing.T) {
		t.Parallel()
		store := new(mockStore)
		store.On("FindActiveByCode", ctx, "NOPE").Return(nil, coupon.ErrCouponNotFound)

		got, err := coupon.NewValidator(store).Validate(ctx, "nope", now, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("used up coupon is invalid", func(t *testing.T) {
		t.Parallel()
		store := new(mockStore)
		store.On("FindActiveByCode", ctx, "ONCE").Return(&coupon.Coupon{
			Code: "ONCE", Active: true, MaxUses: ptr(1), CurrentUses: 1,
		}, nil)

		got, err := coupon.NewValidator(store).Validate(ctx, "ONCE", now, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("empty code skips lookup", func(t *testing.T) {
		t.Parallel()
		store := new(mockStore)
		got, err := coupon.NewValidator(store).Validate(ctx, "  ", now, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
		store.AssertNotCalled(t, "FindActiveByCode", mock.Anything, mock.Anything)
	})

	t.Run("datastore failure surfaces", func(t *testing.T) {
		t.Parallel()
		store := new(mockStore)
		boom := errors.New("connection reset")
		store.On("FindActiveByCode", ctx, "X").Return(nil, boom)

		_, err := coupon.NewValidator(store).Validate(ctx, "x", now, nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nil store panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { coupon.NewValidator(nil) })
	})
}
