// Package coupon evaluates and redeems agency discount coupons.
package coupon

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DiscountType tells how DiscountValue is applied.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Coupon is a platform-wide discount code.
type Coupon struct {
	ID              uuid.UUID
	Code            string
	DiscountType    DiscountType
	DiscountValue   decimal.Decimal
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	MaxUses         *int
	CurrentUses     int
	ApplicablePlans []uuid.UUID
	Active          bool
	CreatedAt       time.Time
}

// Percentage returns the discount percentage for percentage coupons.
func (c Coupon) Percentage() (decimal.Decimal, bool) {
	if c.DiscountType != DiscountPercentage {
		return decimal.Zero, false
	}
	return c.DiscountValue, true
}

// RedeemOutcome reports what Redeem did.
type RedeemOutcome string

const (
	Redeemed RedeemOutcome = "redeemed"
	// Replayed means the checkout session was already counted.
	Replayed RedeemOutcome = "replayed"
	// Exhausted means max_uses was reached before this redemption.
	Exhausted RedeemOutcome = "exhausted"
)

// Store reads and redeems coupons.
type Store interface {
	// FindActiveByCode returns ErrCouponNotFound when no active coupon has
	// the normalized code.
	FindActiveByCode(ctx context.Context, code string) (*Coupon, error)
	// Redeem increments current_uses once per checkout session, never past
	// max_uses.
	Redeem(ctx context.Context, couponID uuid.UUID, sessionID string, agencyID uuid.UUID) (RedeemOutcome, error)
}

var upper = cases.Upper(language.Und)

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return upper.String(strings.TrimSpace(code))
}

// Check evaluates the validity window, usage cap and plan restriction of c
// at asOf. A nil planID skips the plan restriction.
func Check(c Coupon, asOf time.Time, planID *uuid.UUID) bool {
	if !c.Active {
		return false
	}
	if c.ValidFrom != nil && asOf.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && asOf.After(*c.ValidUntil) {
		return false
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return false
	}
	if len(c.ApplicablePlans) > 0 && planID != nil && !slices.Contains(c.ApplicablePlans, *planID) {
		return false
	}
	return true
}
