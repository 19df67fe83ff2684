// Package checkout builds processor-hosted checkout sessions for agency plan
// purchases. It never writes local rows; the subscription is recorded when
// the processor reports the completed checkout.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/currency"

	"github.com/dmitrymomot/agencyhub/pkg/logger"
	"github.com/dmitrymomot/agencyhub/pkg/metrics"
	"github.com/dmitrymomot/agencyhub/pkg/validator"
	"github.com/dmitrymomot/agencyhub/svc/coupon"
	"github.com/dmitrymomot/agencyhub/svc/payments"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

// CouponValidator resolves a coupon code to a usable coupon or nil.
type CouponValidator interface {
	Validate(ctx context.Context, code string, asOf time.Time, planID *uuid.UUID) (*coupon.Coupon, error)
}

// Credentials supplies the processor secret key.
type Credentials interface {
	StripeSecretKey(ctx context.Context) (string, error)
}

type Request struct {
	PlanID       uuid.UUID
	BillingCycle subscription.BillingCycle
	AgencyID     uuid.UUID
	AgencyName   string
	AgencyEmail  string
	CouponCode   string
	SuccessURL   string
	CancelURL    string
}

func (r Request) validate() error {
	return validator.Apply(
		validator.Rule{Check: func() bool { return r.PlanID != uuid.Nil }, Error: validator.ValidationError{Field: "plan_id", Message: "field is required", Key: "validation.required"}},
		validator.Rule{Check: func() bool { return r.AgencyID != uuid.Nil }, Error: validator.ValidationError{Field: "agency_id", Message: "field is required", Key: "validation.required"}},
		validator.InList("billing_cycle", r.BillingCycle, []subscription.BillingCycle{subscription.CycleMonthly, subscription.CycleYearly}),
		validator.RequiredString("agency_name", r.AgencyName),
		validator.ValidEmail("agency_email", r.AgencyEmail),
		validator.ValidURL("success_url", r.SuccessURL),
		validator.ValidURL("cancel_url", r.CancelURL),
	)
}

type Result struct {
	RedirectURL string
	SessionID   string
}

// Builder creates checkout sessions.
type Builder struct {
	plans    subscription.PlanStore
	subs     subscription.Store
	coupons  CouponValidator
	creds    Credentials
	payments payments.Factory
	currency string
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Builder)

func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithDefaultCurrency is used for fixed-amount coupons on plans without a
// currency.
func WithDefaultCurrency(code string) Option {
	return func(b *Builder) {
		if code = strings.TrimSpace(code); code != "" {
			b.currency = strings.ToLower(code)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBuilder(plans subscription.PlanStore, subs subscription.Store, coupons CouponValidator, creds Credentials, factory payments.Factory, opts ...Option) *Builder {
	if plans == nil || subs == nil || coupons == nil || creds == nil || factory == nil {
		panic("checkout: builder dependencies are required")
	}
	b := &Builder{
		plans:    plans,
		subs:     subs,
		coupons:  coupons,
		creds:    creds,
		payments: factory,
		currency: "usd",
		now:      time.Now,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CreateCheckout creates a subscription-mode checkout session for the plan.
func (b *Builder) CreateCheckout(ctx context.Context, req Request) (*Result, error) {
	res, err := b.createCheckout(ctx, req)
	switch {
	case err == nil:
		metrics.CheckoutSessionsTotal.WithLabelValues("created").Inc()
	case errors.Is(err, payments.ErrProcessor):
		metrics.CheckoutSessionsTotal.WithLabelValues("processor_error").Inc()
	default:
		metrics.CheckoutSessionsTotal.WithLabelValues("rejected").Inc()
	}
	return res, err
}

func (b *Builder) createCheckout(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	log := b.log.With(logger.Component("checkout"), logger.AgencyID(req.AgencyID), logger.PlanID(req.PlanID))

	plan, err := b.plans.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	priceID := plan.PriceID(req.BillingCycle)
	if !plan.Active || priceID == "" {
		return nil, ErrPlanNotPurchasable
	}

	key, err := b.creds.StripeSecretKey(ctx)
	if err != nil {
		return nil, err
	}
	client := b.payments(key)

	existing, err := b.subs.GetByAgency(ctx, req.AgencyID)
	if err != nil && !errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("load subscription: %w", err)
	}

	customerID := ""
	if existing != nil {
		customerID = existing.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = client.CreateCustomer(ctx, payments.CustomerParams{
			Email:    req.AgencyEmail,
			Name:     req.AgencyName,
			Metadata: map[string]string{subscription.MetaAgencyID: req.AgencyID.String()},
		})
		if err != nil {
			return nil, err
		}
	}

	metadata := map[string]string{
		subscription.MetaAgencyID:     req.AgencyID.String(),
		subscription.MetaPlanID:       plan.ID.String(),
		subscription.MetaBillingCycle: string(req.BillingCycle),
	}

	params := payments.SessionParams{
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Metadata:   metadata,
	}
	if existing == nil && plan.TrialDays > 0 {
		params.TrialPeriodDays = int64(plan.TrialDays)
	}

	if strings.TrimSpace(req.CouponCode) != "" {
		c, err := b.coupons.Validate(ctx, req.CouponCode, b.now(), &plan.ID)
		if err != nil {
			return nil, fmt.Errorf("validate coupon: %w", err)
		}
		if c == nil {
			log.WarnContext(ctx, "ignoring invalid coupon at checkout", slog.String("code", coupon.NormalizeCode(req.CouponCode)))
		} else {
			couponID, err := client.CreateCoupon(ctx, b.couponParams(*c, *plan))
			if err != nil {
				return nil, err
			}
			params.CouponID = couponID
			metadata[subscription.MetaCouponID] = c.ID.String()
			if pct, ok := c.Percentage(); ok {
				metadata[subscription.MetaDiscountPercentage] = pct.String()
			}
		}
	}

	sess, err := client.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "checkout session created", slog.String("session_id", sess.ID))
	return &Result{RedirectURL: sess.URL, SessionID: sess.ID}, nil
}

func (b *Builder) couponParams(c coupon.Coupon, plan subscription.Plan) payments.CouponParams {
	if pct, ok := c.Percentage(); ok {
		off := pct.InexactFloat64()
		return payments.CouponParams{
			Name:       fmt.Sprintf("%s (%s%% off)", c.Code, pct.String()),
			PercentOff: &off,
		}
	}

	code := strings.ToLower(strings.TrimSpace(plan.Currency))
	if code == "" {
		code = b.currency
	}
	digits := minorUnits(code)
	amount := c.DiscountValue.Shift(int32(digits)).Round(0).IntPart()
	return payments.CouponParams{
		Name:      fmt.Sprintf("%s (%s %s off)", c.Code, c.DiscountValue.StringFixed(int32(digits)), strings.ToUpper(code)),
		AmountOff: &amount,
		Currency:  code,
	}
}

// minorUnits returns the decimal digits of the ISO 4217 currency code, 2 for
// codes the table does not know.
func minorUnits(code string) int {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}
