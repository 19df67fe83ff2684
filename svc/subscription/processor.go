package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/agencyhub/pkg/logger"
	"github.com/dmitrymomot/agencyhub/pkg/metrics"
	"github.com/dmitrymomot/agencyhub/svc/coupon"
	"github.com/dmitrymomot/agencyhub/svc/payments"
)

// Checkout metadata keys shared with the checkout builder.
const (
	MetaAgencyID           = "agency_id"
	MetaPlanID             = "plan_id"
	MetaBillingCycle       = "billing_cycle"
	MetaCouponID           = "coupon_id"
	MetaDiscountPercentage = "discount_percentage"
)

// EventLedger remembers processed processor event ids.
type EventLedger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, eventID, eventType string) error
}

// CouponRedeemer counts a coupon use for a checkout session.
type CouponRedeemer interface {
	Redeem(ctx context.Context, couponID uuid.UUID, sessionID string, agencyID uuid.UUID) (coupon.RedeemOutcome, error)
}

// Credentials supplies the processor secret key.
type Credentials interface {
	StripeSecretKey(ctx context.Context) (string, error)
}

// Outcome classifies how an event was handled.
type Outcome string

const (
	Applied   Outcome = "applied"
	Ignored   Outcome = "ignored"
	Duplicate Outcome = "duplicate"
)

// Reasons attached to Ignored results.
const (
	ReasonUnhandledType       = "unhandled_event_type"
	ReasonMissingMetadata     = "missing_metadata"
	ReasonUnknownAgency       = "unknown_agency"
	ReasonUnknownSubscription = "unknown_subscription"
	ReasonSuperseded          = "superseded_subscription"
	ReasonStale               = "stale_event"
)

// Result describes what Process did with an event.
type Result struct {
	Outcome  Outcome
	Reason   string
	AgencyID uuid.UUID
	Status   Status
}

func ignored(reason string) Result { return Result{Outcome: Ignored, Reason: reason} }

// Processor applies processor webhook events to subscription rows.
type Processor struct {
	store    Store
	ledger   EventLedger
	coupons  CouponRedeemer
	creds    Credentials
	payments payments.Factory
	log      *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

func WithLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

func NewProcessor(store Store, ledger EventLedger, coupons CouponRedeemer, creds Credentials, factory payments.Factory, opts ...ProcessorOption) *Processor {
	if store == nil || ledger == nil || coupons == nil || creds == nil || factory == nil {
		panic("subscription: processor dependencies are required")
	}
	p := &Processor{
		store:    store,
		ledger:   ledger,
		coupons:  coupons,
		creds:    creds,
		payments: factory,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process applies evt. An event whose object does not decode fails with
// payments.ErrMalformedEvent. Other errors are transient and the event is
// left unrecorded so the processor redelivers it; everything else that
// cannot succeed on retry is reported as Ignored.
func (p *Processor) Process(ctx context.Context, evt payments.Event) (Result, error) {
	log := p.log.With(logger.Component("webhook"), logger.EventID(evt.ID), logger.EventType(evt.Type))

	seen, err := p.ledger.Seen(ctx, evt.ID)
	if err != nil {
		return Result{}, fmt.Errorf("check event ledger: %w", err)
	}
	if seen {
		log.InfoContext(ctx, "duplicate webhook event")
		return Result{Outcome: Duplicate}, nil
	}

	var res Result
	switch EventType(evt.Type) {
	case EventCheckoutCompleted:
		res, err = p.checkoutCompleted(ctx, log, evt)
	case EventSubscriptionUpdated:
		res, err = p.subscriptionUpdated(ctx, evt)
	case EventSubscriptionDeleted:
		res, err = p.subscriptionDeleted(ctx, evt)
	case EventPaymentFailed:
		res, err = p.paymentFailed(ctx, evt)
	default:
		res = ignored(ReasonUnhandledType)
	}
	if errors.Is(err, payments.ErrMalformedEvent) {
		log.WarnContext(ctx, "webhook event object is malformed", logger.Error(err))
		return Result{}, err
	}
	if err != nil {
		log.ErrorContext(ctx, "webhook event failed", logger.Error(err))
		return Result{}, err
	}

	if res.Outcome == Ignored {
		log.WarnContext(ctx, "webhook event ignored", logger.Reason(res.Reason), logger.AgencyID(nonNil(res.AgencyID)))
	} else {
		log.InfoContext(ctx, "webhook event applied", logger.AgencyID(res.AgencyID), logger.Status(res.Status))
	}

	if err := p.ledger.Record(ctx, evt.ID, evt.Type); err != nil {
		log.ErrorContext(ctx, "failed to record webhook event", logger.Error(err))
	}
	return res, nil
}

func (p *Processor) checkoutCompleted(ctx context.Context, log *slog.Logger, evt payments.Event) (Result, error) {
	sess, err := evt.CheckoutSession()
	if err != nil {
		return Result{}, err
	}
	agencyID, okAgency := metaUUID(sess.Metadata, MetaAgencyID)
	planID, okPlan := metaUUID(sess.Metadata, MetaPlanID)
	if !okAgency || !okPlan || sess.SubscriptionID == "" {
		return Result{Outcome: Ignored, Reason: ReasonMissingMetadata, AgencyID: agencyID}, nil
	}
	subscriptionID := string(sess.SubscriptionID)
	couponID, hasCoupon := metaUUID(sess.Metadata, MetaCouponID)

	existing, err := p.store.GetByAgency(ctx, agencyID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return Result{}, fmt.Errorf("load subscription: %w", err)
	}

	// A late checkout of an older subscription must not take the row away
	// from the one the newer events belong to. The discount was still spent.
	if isStale(existing, evt.Created) && existing.StripeSubscriptionID != "" && existing.StripeSubscriptionID != subscriptionID {
		log.WarnContext(ctx, "late checkout for a superseded subscription",
			logger.AgencyID(agencyID), slog.String("stripe_subscription_id", subscriptionID))
		if hasCoupon {
			if err := p.redeem(ctx, log, couponID, sess.ID, agencyID); err != nil {
				return Result{}, err
			}
		}
		return Result{Outcome: Ignored, Reason: ReasonSuperseded, AgencyID: agencyID}, nil
	}

	key, err := p.creds.StripeSecretKey(ctx)
	if err != nil {
		return Result{}, err
	}
	remote, err := p.payments(key).GetSubscription(ctx, subscriptionID)
	if err != nil {
		return Result{}, err
	}

	row := &Subscription{AgencyID: agencyID, BillingCycle: CycleMonthly}
	var current Status
	if existing != nil {
		row = existing
		current = existing.Status
	}

	row.PlanID = &planID
	if cycle := BillingCycle(sess.Metadata[MetaBillingCycle]); cycle.Valid() {
		row.BillingCycle = cycle
	}
	row.StripeSubscriptionID = subscriptionID
	if c := string(sess.CustomerID); c != "" {
		row.StripeCustomerID = c
	} else if remote.CustomerID != "" {
		row.StripeCustomerID = remote.CustomerID
	}
	if hasCoupon {
		row.CouponID = &couponID
		row.DiscountPercentage = metaDecimal(sess.Metadata, MetaDiscountPercentage)
	} else {
		row.CouponID = nil
		row.DiscountPercentage = nil
	}
	// The purchased plan's caps replace the trial caps.
	row.Limits = Limits{}

	// A late checkout still records what was bought but never rolls the
	// status back past a newer event.
	if !isStale(existing, evt.Created) {
		next, err := NextStatus(ctx, current, EventCheckoutCompleted, remote.Status)
		if err != nil {
			return Result{}, err
		}
		row.Status = next
		setPeriod(row, remote.CurrentPeriodStart, remote.CurrentPeriodEnd)
		created := evt.Created
		row.LastEventAt = &created
	}

	if err := p.upsertPurchase(ctx, log, row); err != nil {
		if errors.Is(err, ErrUnknownAgency) {
			return Result{Outcome: Ignored, Reason: ReasonUnknownAgency, AgencyID: agencyID}, nil
		}
		return Result{}, fmt.Errorf("save subscription: %w", err)
	}

	if hasCoupon {
		if err := p.redeem(ctx, log, couponID, sess.ID, agencyID); err != nil {
			return Result{}, err
		}
	}

	return Result{Outcome: Applied, AgencyID: agencyID, Status: row.Status}, nil
}

// upsertPurchase saves row. A plan or coupon deleted since the checkout
// started is dropped from the row so the paid subscription is still kept.
func (p *Processor) upsertPurchase(ctx context.Context, log *slog.Logger, row *Subscription) error {
	for {
		err := p.store.Upsert(ctx, row)
		switch {
		case errors.Is(err, ErrUnknownPlan) && row.PlanID != nil:
			log.WarnContext(ctx, "purchased plan no longer exists, saving subscription without it",
				logger.AgencyID(row.AgencyID), logger.PlanID(*row.PlanID))
			row.PlanID = nil
		case errors.Is(err, ErrUnknownCoupon) && row.CouponID != nil:
			log.WarnContext(ctx, "applied coupon no longer exists, saving subscription without it",
				logger.AgencyID(row.AgencyID), slog.String("coupon_id", row.CouponID.String()))
			row.CouponID = nil
		default:
			return err
		}
	}
}

func (p *Processor) redeem(ctx context.Context, log *slog.Logger, couponID uuid.UUID, sessionID string, agencyID uuid.UUID) error {
	outcome, err := p.coupons.Redeem(ctx, couponID, sessionID, agencyID)
	if errors.Is(err, coupon.ErrCouponNotFound) {
		log.WarnContext(ctx, "coupon removed before its use was counted",
			logger.AgencyID(agencyID), slog.String("coupon_id", couponID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("redeem coupon: %w", err)
	}
	metrics.CouponRedemptionsTotal.WithLabelValues(string(outcome)).Inc()
	if outcome == coupon.Exhausted {
		log.WarnContext(ctx, "coupon used up before checkout completed",
			logger.AgencyID(agencyID), slog.String("coupon_id", couponID.String()))
	}
	return nil
}

func (p *Processor) subscriptionUpdated(ctx context.Context, evt payments.Event) (Result, error) {
	remote, err := evt.Subscription()
	if err != nil {
		return Result{}, err
	}
	row, res, ok, err := p.loadForRemote(ctx, remote, evt.Created)
	if !ok || err != nil {
		return res, err
	}

	next, err := NextStatus(ctx, row.Status, EventSubscriptionUpdated, remote.Status)
	if err != nil {
		return Result{}, err
	}
	row.Status = next
	setPeriod(row, remote.CurrentPeriodStart, remote.CurrentPeriodEnd)
	return p.save(ctx, row, evt.Created)
}

func (p *Processor) subscriptionDeleted(ctx context.Context, evt payments.Event) (Result, error) {
	remote, err := evt.Subscription()
	if err != nil {
		return Result{}, err
	}
	row, res, ok, err := p.loadForRemote(ctx, remote, evt.Created)
	if !ok || err != nil {
		return res, err
	}

	next, err := NextStatus(ctx, row.Status, EventSubscriptionDeleted, remote.Status)
	if err != nil {
		return Result{}, err
	}
	row.Status = next
	return p.save(ctx, row, evt.Created)
}

func (p *Processor) paymentFailed(ctx context.Context, evt payments.Event) (Result, error) {
	inv, err := evt.Invoice()
	if err != nil {
		return Result{}, err
	}
	if inv.SubscriptionID == "" {
		return ignored(ReasonMissingMetadata), nil
	}

	row, err := p.store.GetByStripeSubscription(ctx, inv.SubscriptionID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return ignored(ReasonUnknownSubscription), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("load subscription: %w", err)
	}
	if isStale(row, evt.Created) {
		return Result{Outcome: Ignored, Reason: ReasonStale, AgencyID: row.AgencyID}, nil
	}

	next, err := NextStatus(ctx, row.Status, EventPaymentFailed, "")
	if err != nil {
		return Result{}, err
	}
	row.Status = next
	return p.save(ctx, row, evt.Created)
}

// loadForRemote finds the row a subscription event refers to. ok is false
// when res already holds the Ignored result.
func (p *Processor) loadForRemote(ctx context.Context, remote *payments.Subscription, created time.Time) (*Subscription, Result, bool, error) {
	agencyID, ok := metaUUID(remote.Metadata, MetaAgencyID)
	if !ok {
		return nil, ignored(ReasonMissingMetadata), false, nil
	}

	row, err := p.store.GetByAgency(ctx, agencyID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil, Result{Outcome: Ignored, Reason: ReasonUnknownAgency, AgencyID: agencyID}, false, nil
	}
	if err != nil {
		return nil, Result{}, false, fmt.Errorf("load subscription: %w", err)
	}

	if row.StripeSubscriptionID != "" && remote.ID != "" && row.StripeSubscriptionID != remote.ID {
		return nil, Result{Outcome: Ignored, Reason: ReasonSuperseded, AgencyID: agencyID}, false, nil
	}
	if isStale(row, created) {
		return nil, Result{Outcome: Ignored, Reason: ReasonStale, AgencyID: agencyID}, false, nil
	}
	if row.StripeSubscriptionID == "" {
		row.StripeSubscriptionID = remote.ID
	}
	if row.StripeCustomerID == "" {
		row.StripeCustomerID = remote.CustomerID
	}
	return row, Result{}, true, nil
}

func (p *Processor) save(ctx context.Context, row *Subscription, created time.Time) (Result, error) {
	row.LastEventAt = &created
	if err := p.store.Upsert(ctx, row); err != nil {
		return Result{}, fmt.Errorf("save subscription: %w", err)
	}
	return Result{Outcome: Applied, AgencyID: row.AgencyID, Status: row.Status}, nil
}

func isStale(row *Subscription, created time.Time) bool {
	return row != nil && row.LastEventAt != nil && created.Before(*row.LastEventAt)
}

func setPeriod(row *Subscription, start, end time.Time) {
	if !start.IsZero() {
		row.CurrentPeriodStart = &start
	}
	if !end.IsZero() {
		row.CurrentPeriodEnd = &end
	}
}

func metaUUID(meta map[string]string, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(meta[key])
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func metaDecimal(meta map[string]string, key string) *decimal.Decimal {
	raw := meta[key]
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}

func nonNil(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
