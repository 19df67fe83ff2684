package checkout

import "errors"

// ErrPlanNotPurchasable means the plan has no processor price for the
// requested billing cycle.
var ErrPlanNotPurchasable = errors.New("plan is not purchasable on this billing cycle")
