// Package payments talks to the payment processor (Stripe): customers,
// single-use coupons, hosted checkout sessions, subscription lookups and
// webhook event verification.
//
// The secret key is read from platform settings on every call, so callers
// build a Client per operation through a Factory.
package payments

import (
	"context"
	"time"
)

// Client is the subset of the processor API the billing core needs.
type Client interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreateCoupon(ctx context.Context, params CouponParams) (string, error)
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
}

// Factory builds a Client bound to secretKey.
type Factory func(secretKey string) Client

type CustomerParams struct {
	Email    string
	Name     string
	Metadata map[string]string
}

// CouponParams describes a single-use, apply-once processor coupon. Exactly
// one of PercentOff and AmountOff is set; AmountOff is in minor units of
// Currency.
type CouponParams struct {
	Name       string
	PercentOff *float64
	AmountOff  *int64
	Currency   string
}

type SessionParams struct {
	CustomerID      string
	PriceID         string
	SuccessURL      string
	CancelURL       string
	CouponID        string
	TrialPeriodDays int64
	// Metadata is attached to both the session and the subscription it creates.
	Metadata map[string]string
}

type Session struct {
	ID  string
	URL string
}

// Processor subscription statuses.
const (
	StatusTrialing          = "trialing"
	StatusActive            = "active"
	StatusPastDue           = "past_due"
	StatusCanceled          = "canceled"
	StatusUnpaid            = "unpaid"
	StatusIncomplete        = "incomplete"
	StatusIncompleteExpired = "incomplete_expired"
	StatusPaused            = "paused"
)

// Subscription is the processor view of a subscription.
type Subscription struct {
	ID                 string
	CustomerID         string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	Metadata           map[string]string
}
