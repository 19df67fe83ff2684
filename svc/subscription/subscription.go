// Package subscription owns the agency subscription record and keeps it in
// sync with the payment processor through webhook events.
package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an agency subscription.
type Status string

const (
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// Name makes Status usable as a statemachine.State.
func (s Status) Name() string { return string(s) }

func (s Status) Valid() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCanceled:
		return true
	}
	return false
}

// Grants reports whether the status allows using the application.
func (s Status) Grants() bool {
	return s == StatusTrialing || s == StatusActive
}

// BillingCycle selects the plan price.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

func (c BillingCycle) Valid() bool {
	return c == CycleMonthly || c == CycleYearly
}

// Subscription is the single billing record of an agency.
type Subscription struct {
	ID                   uuid.UUID
	AgencyID             uuid.UUID
	PlanID               *uuid.UUID
	BillingCycle         BillingCycle
	Status               Status
	StripeCustomerID     string
	StripeSubscriptionID string
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CouponID             *uuid.UUID
	DiscountPercentage   *decimal.Decimal
	// Limits holds the caps granted with a trial; paid rows leave it empty
	// and follow their plan.
	Limits Limits
	// LastEventAt is the creation time of the newest processor event applied.
	LastEventAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Limits caps what an agency may create. A nil field is unlimited.
type Limits struct {
	MaxUsers     *int
	MaxClients   *int
	MaxProposals *int
}

// Store persists subscriptions. There is at most one row per agency.
type Store interface {
	// GetByAgency returns ErrSubscriptionNotFound when the agency has no row.
	GetByAgency(ctx context.Context, agencyID uuid.UUID) (*Subscription, error)
	// GetByStripeSubscription returns ErrSubscriptionNotFound for unknown ids.
	GetByStripeSubscription(ctx context.Context, stripeSubscriptionID string) (*Subscription, error)
	// Create inserts a new row and fails with ErrSubscriptionAlreadyExists
	// when the agency already has one.
	Create(ctx context.Context, sub *Subscription) error
	// Upsert inserts or replaces the row of sub.AgencyID.
	Upsert(ctx context.Context, sub *Subscription) error
}
