package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/agencyhub/pkg/pg"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

// SubscriptionStore persists agency subscriptions and the plan catalog.
type SubscriptionStore struct {
	pool *pgxpool.Pool
}

var (
	_ subscription.Store     = (*SubscriptionStore)(nil)
	_ subscription.PlanStore = (*SubscriptionStore)(nil)
)

const subscriptionColumns = `id, agency_id, plan_id, billing_cycle, status,
	stripe_customer_id, stripe_subscription_id, current_period_start, current_period_end,
	coupon_id, discount_percentage, max_users, max_clients, max_proposals,
	last_event_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var (
		sub      subscription.Subscription
		cycle    string
		status   string
		discount decimal.NullDecimal
	)
	err := row.Scan(
		&sub.ID, &sub.AgencyID, &sub.PlanID, &cycle, &status,
		&sub.StripeCustomerID, &sub.StripeSubscriptionID, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&sub.CouponID, &discount, &sub.Limits.MaxUsers, &sub.Limits.MaxClients, &sub.Limits.MaxProposals,
		&sub.LastEventAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.BillingCycle = subscription.BillingCycle(cycle)
	sub.Status = subscription.Status(status)
	if discount.Valid {
		sub.DiscountPercentage = &discount.Decimal
	}
	return &sub, nil
}

func (s *SubscriptionStore) GetByAgency(ctx context.Context, agencyID uuid.UUID) (*subscription.Subscription, error) {
	sub, err := scanSubscription(s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM agency_subscriptions WHERE agency_id = $1`, agencyID))
	if pg.IsNotFoundError(err) {
		return nil, subscription.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query subscription: %w", err)
	}
	return sub, nil
}

func (s *SubscriptionStore) GetByStripeSubscription(ctx context.Context, stripeSubscriptionID string) (*subscription.Subscription, error) {
	if stripeSubscriptionID == "" {
		return nil, subscription.ErrSubscriptionNotFound
	}
	sub, err := scanSubscription(s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM agency_subscriptions WHERE stripe_subscription_id = $1
		 ORDER BY updated_at DESC LIMIT 1`, stripeSubscriptionID))
	if pg.IsNotFoundError(err) {
		return nil, subscription.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query subscription: %w", err)
	}
	return sub, nil
}

func (s *SubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO agency_subscriptions (
			id, agency_id, plan_id, billing_cycle, status,
			stripe_customer_id, stripe_subscription_id, current_period_start, current_period_end,
			coupon_id, discount_percentage, max_users, max_clients, max_proposals, last_event_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`,
		subscriptionArgs(sub)...,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	switch {
	case pg.IsDuplicateKeyError(err):
		return subscription.ErrSubscriptionAlreadyExists
	case pg.IsForeignKeyViolationError(err):
		return referenceError(err)
	case err != nil:
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// Upsert writes the row keyed by agency_id; the unique constraint on
// agency_id keeps one row per agency.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO agency_subscriptions (
			id, agency_id, plan_id, billing_cycle, status,
			stripe_customer_id, stripe_subscription_id, current_period_start, current_period_end,
			coupon_id, discount_percentage, max_users, max_clients, max_proposals, last_event_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (agency_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			billing_cycle = EXCLUDED.billing_cycle,
			status = EXCLUDED.status,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			coupon_id = EXCLUDED.coupon_id,
			discount_percentage = EXCLUDED.discount_percentage,
			max_users = EXCLUDED.max_users,
			max_clients = EXCLUDED.max_clients,
			max_proposals = EXCLUDED.max_proposals,
			last_event_at = EXCLUDED.last_event_at,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		subscriptionArgs(sub)...,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if pg.IsForeignKeyViolationError(err) {
		return referenceError(err)
	}
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// Default constraint names of the agency_subscriptions foreign keys.
const (
	fkSubscriptionAgency = "agency_subscriptions_agency_id_fkey"
	fkSubscriptionPlan   = "agency_subscriptions_plan_id_fkey"
	fkSubscriptionCoupon = "agency_subscriptions_coupon_id_fkey"
)

func referenceError(err error) error {
	switch pg.ConstraintName(err) {
	case fkSubscriptionAgency:
		return subscription.ErrUnknownAgency
	case fkSubscriptionPlan:
		return subscription.ErrUnknownPlan
	case fkSubscriptionCoupon:
		return subscription.ErrUnknownCoupon
	}
	return fmt.Errorf("write subscription: %w", err)
}

func subscriptionArgs(sub *subscription.Subscription) []any {
	var discount decimal.NullDecimal
	if sub.DiscountPercentage != nil {
		discount = decimal.NewNullDecimal(*sub.DiscountPercentage)
	}
	return []any{
		sub.ID, sub.AgencyID, sub.PlanID, string(sub.BillingCycle), string(sub.Status),
		sub.StripeCustomerID, sub.StripeSubscriptionID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.CouponID, discount, sub.Limits.MaxUsers, sub.Limits.MaxClients, sub.Limits.MaxProposals,
		sub.LastEventAt,
	}
}

const planColumns = `id, name, monthly_price, yearly_price, currency,
	stripe_price_id_monthly, stripe_price_id_yearly, max_users, max_clients, max_proposals,
	trial_days, modules, active, created_at`

func scanPlan(row pgx.Row) (*subscription.Plan, error) {
	var (
		p               subscription.Plan
		monthly, yearly *string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.MonthlyPrice, &p.YearlyPrice, &p.Currency,
		&monthly, &yearly, &p.MaxUsers, &p.MaxClients, &p.MaxProposals,
		&p.TrialDays, &p.Modules, &p.Active, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if monthly != nil {
		p.StripePriceIDMonthly = *monthly
	}
	if yearly != nil {
		p.StripePriceIDYearly = *yearly
	}
	return &p, nil
}

func (s *SubscriptionStore) GetPlan(ctx context.Context, id uuid.UUID) (*subscription.Plan, error) {
	p, err := scanPlan(s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1`, id))
	if pg.IsNotFoundError(err) {
		return nil, subscription.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query plan: %w", err)
	}
	return p, nil
}

func (s *SubscriptionStore) ListActivePlans(ctx context.Context) ([]subscription.Plan, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+planColumns+` FROM subscription_plans WHERE active ORDER BY monthly_price, name`)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []subscription.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	return plans, nil
}

// UpsertPlan inserts or updates a plan, matching on id.
func (s *SubscriptionStore) UpsertPlan(ctx context.Context, p *subscription.Plan) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	modules := p.Modules
	if modules == nil {
		modules = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscription_plans (
			id, name, monthly_price, yearly_price, currency,
			stripe_price_id_monthly, stripe_price_id_yearly, max_users, max_clients, max_proposals,
			trial_days, modules, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			monthly_price = EXCLUDED.monthly_price,
			yearly_price = EXCLUDED.yearly_price,
			currency = EXCLUDED.currency,
			stripe_price_id_monthly = EXCLUDED.stripe_price_id_monthly,
			stripe_price_id_yearly = EXCLUDED.stripe_price_id_yearly,
			max_users = EXCLUDED.max_users,
			max_clients = EXCLUDED.max_clients,
			max_proposals = EXCLUDED.max_proposals,
			trial_days = EXCLUDED.trial_days,
			modules = EXCLUDED.modules,
			active = EXCLUDED.active`,
		p.ID, p.Name, p.MonthlyPrice, p.YearlyPrice, p.Currency,
		nullString(p.StripePriceIDMonthly), nullString(p.StripePriceIDYearly), p.MaxUsers, p.MaxClients, p.MaxProposals,
		p.TrialDays, modules, p.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert plan: %w", err)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
