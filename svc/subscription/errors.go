package subscription

import "errors"

var (
	ErrPlanNotFound              = errors.New("subscription plan not found")
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
	// ErrUnknownAgency is returned by Store.Upsert when the agency row does not exist.
	ErrUnknownAgency = errors.New("agency does not exist")
	// ErrUnknownPlan and ErrUnknownCoupon report a plan_id or coupon_id that
	// no longer matches a row.
	ErrUnknownPlan   = errors.New("referenced plan does not exist")
	ErrUnknownCoupon = errors.New("referenced coupon does not exist")
)
