package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/migrations"
	"github.com/dmitrymomot/agencyhub/pkg/logger"
	"github.com/dmitrymomot/agencyhub/pkg/pg"
	"github.com/dmitrymomot/agencyhub/store/postgres"
	"github.com/dmitrymomot/agencyhub/svc/agency"
	"github.com/dmitrymomot/agencyhub/svc/coupon"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

// newTestStore connects to PG_TEST_URL and applies the migrations. The test
// is skipped when the variable is not set.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	url := os.Getenv("PG_TEST_URL")
	if url == "" {
		t.Skip("PG_TEST_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, pg.Migrate(ctx, pool, migrations.FS, pg.Config{MigrationsTable: "schema_migrations"}, logger.Discard()))

	return postgres.New(pool)
}

func createAgency(t *testing.T, s *postgres.Store) uuid.UUID {
	t.Helper()

	a := &agency.Agency{Name: "Test Agency " + uuid.NewString()[:8], Active: true}
	require.NoError(t, s.Agencies.CreateAgency(context.Background(), a))
	return a.ID
}

func TestSubscriptionStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	agencyID := createAgency(t, s)

	start := time.Now().UTC().Truncate(time.Second)
	end := start.AddDate(0, 0, 7)
	maxUsers := 3
	sub := &subscription.Subscription{
		AgencyID:           agencyID,
		BillingCycle:       subscription.CycleMonthly,
		Status:             subscription.StatusTrialing,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
		Limits:             subscription.Limits{MaxUsers: &maxUsers},
	}
	require.NoError(t, s.Subscriptions.Create(ctx, sub))
	trialRow, err := s.Subscriptions.GetByAgency(ctx, agencyID)
	require.NoError(t, err)
	require.NotNil(t, trialRow.Limits.MaxUsers)
	assert.Equal(t, 3, *trialRow.Limits.MaxUsers)
	assert.Nil(t, trialRow.Limits.MaxClients)
	assert.ErrorIs(t, s.Subscriptions.Create(ctx, &subscription.Subscription{
		AgencyID: agencyID, BillingCycle: subscription.CycleMonthly, Status: subscription.StatusTrialing,
	}), subscription.ErrSubscriptionAlreadyExists)

	pct := decimal.NewFromInt(20)
	sub.Status = subscription.StatusActive
	sub.StripeSubscriptionID = "sub_" + uuid.NewString()
	sub.DiscountPercentage = &pct
	sub.Limits = subscription.Limits{}
	require.NoError(t, s.Subscriptions.Upsert(ctx, sub))

	got, err := s.Subscriptions.GetByStripeSubscription(ctx, sub.StripeSubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, agencyID, got.AgencyID)
	assert.Equal(t, subscription.StatusActive, got.Status)
	assert.True(t, pct.Equal(*got.DiscountPercentage))
	assert.True(t, end.Equal(*got.CurrentPeriodEnd))
	assert.Nil(t, got.Limits.MaxUsers)

	err = s.Subscriptions.Upsert(ctx, &subscription.Subscription{
		AgencyID: uuid.New(), BillingCycle: subscription.CycleMonthly, Status: subscription.StatusActive,
	})
	assert.ErrorIs(t, err, subscription.ErrUnknownAgency)
}

func TestSubscriptionUpsertDanglingReferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	agencyID := createAgency(t, s)

	missing := uuid.New()
	err := s.Subscriptions.Upsert(ctx, &subscription.Subscription{
		AgencyID: agencyID, PlanID: &missing, BillingCycle: subscription.CycleMonthly, Status: subscription.StatusActive,
	})
	assert.ErrorIs(t, err, subscription.ErrUnknownPlan)

	err = s.Subscriptions.Upsert(ctx, &subscription.Subscription{
		AgencyID: agencyID, CouponID: &missing, BillingCycle: subscription.CycleMonthly, Status: subscription.StatusActive,
	})
	assert.ErrorIs(t, err, subscription.ErrUnknownCoupon)
}

func TestCouponRedeem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	agencyID := createAgency(t, s)

	var couponID uuid.UUID
	code := "PG" + uuid.NewString()[:6]
	require.NoError(t, s.Pool().QueryRow(ctx,
		`INSERT INTO discount_coupons (code, discount_type, discount_value, max_uses)
		 VALUES ($1, 'percentage', 15, 1) RETURNING id`, code,
	).Scan(&couponID))

	c, err := s.Coupons.FindActiveByCode(ctx, " "+code+" ")
	require.NoError(t, err)
	assert.Equal(t, couponID, c.ID)

	outcome, err := s.Coupons.Redeem(ctx, couponID, "cs_"+uuid.NewString(), agencyID)
	require.NoError(t, err)
	assert.Equal(t, coupon.Redeemed, outcome)

	session := "cs_" + uuid.NewString()
	outcome, err = s.Coupons.Redeem(ctx, couponID, session, agencyID)
	require.NoError(t, err)
	assert.Equal(t, coupon.Exhausted, outcome)

	c, err = s.Coupons.FindActiveByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 1, c.CurrentUses)

	var rows int
	require.NoError(t, s.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM coupon_redemptions WHERE checkout_session_id = $1`, session).Scan(&rows))
	assert.Zero(t, rows, "exhausted redemption is rolled back")
}

func TestEventLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := "evt_" + uuid.NewString()

	seen, err := s.Events.Seen(ctx, id)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.Events.Record(ctx, id, "invoice.payment_failed"))
	require.NoError(t, s.Events.Record(ctx, id, "invoice.payment_failed"))

	seen, err = s.Events.Seen(ctx, id)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestAgencyStoreAndSteps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	agencyID := createAgency(t, s)

	require.NoError(t, s.Agencies.SeedPipelineStages(ctx, agencyID))
	require.NoError(t, s.Agencies.SeedPipelineStages(ctx, agencyID))
	var stages int
	require.NoError(t, s.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM pipeline_stages WHERE agency_id = $1`, agencyID).Scan(&stages))
	assert.Equal(t, len(agency.DefaultPipelineStages), stages)

	userID := uuid.New()
	_, err := s.Agencies.GetRole(ctx, userID)
	assert.ErrorIs(t, err, agency.ErrRoleNotFound)
	require.NoError(t, s.Agencies.SetRole(ctx, userID, agency.RoleAdmin))
	role, err := s.Agencies.GetRole(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, agency.RoleAdmin, role)

	assert.ErrorIs(t, s.Agencies.LinkAgency(ctx, userID, agencyID, "x"), agency.ErrProfileNotFound)

	require.NoError(t, s.Steps.MarkStep(ctx, agencyID, "create_agency"))
	require.NoError(t, s.Steps.MarkStep(ctx, agencyID, "create_agency"))
	steps, err := s.Steps.CompletedSteps(ctx, agencyID)
	require.NoError(t, err)
	assert.Equal(t, []string{"create_agency"}, steps)
}
