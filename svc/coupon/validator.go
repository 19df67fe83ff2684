package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Validator resolves a code to a coupon usable right now.
type Validator struct {
	store Store
}

func NewValidator(store Store) *Validator {
	if store == nil {
		panic("coupon: store is required")
	}
	return &Validator{store: store}
}

// Validate returns the coupon for code when it is usable at asOf for planID,
// and nil when it is unknown, inactive, outside its window, used up or not
// applicable to the plan. Only datastore failures produce an error.
func (v *Validator) Validate(ctx context.Context, code string, asOf time.Time, planID *uuid.UUID) (*Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, nil
	}

	c, err := v.store.FindActiveByCode(ctx, normalized)
	if errors.Is(err, ErrCouponNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !Check(*c, asOf, planID) {
		return nil, nil
	}
	return c, nil
}
