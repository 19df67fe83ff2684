package payments

import (
	"context"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// NewStripeFactory returns a Factory for the live Stripe API. A non-empty
// apiURL points the client elsewhere, e.g. at stripe-mock.
func NewStripeFactory(apiURL string) Factory {
	var backends *stripe.Backends
	if apiURL != "" {
		backends = &stripe.Backends{
			API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
				URL: stripe.String(apiURL),
			}),
		}
	}
	return func(secretKey string) Client {
		api := &client.API{}
		api.Init(secretKey, backends)
		return &stripeClient{api: api}
	}
}

type stripeClient struct {
	api *client.API
}

func (c *stripeClient) CreateCustomer(ctx context.Context, p CustomerParams) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(p.Email),
		Name:  stripe.String(p.Name),
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create customer: %w", ErrProcessor, err)
	}
	return cus.ID, nil
}

func (c *stripeClient) CreateCoupon(ctx context.Context, p CouponParams) (string, error) {
	params := &stripe.CouponParams{
		Duration:       stripe.String(string(stripe.CouponDurationOnce)),
		MaxRedemptions: stripe.Int64(1),
	}
	params.Context = ctx
	if p.Name != "" {
		params.Name = stripe.String(p.Name)
	}
	switch {
	case p.PercentOff != nil:
		params.PercentOff = stripe.Float64(*p.PercentOff)
	case p.AmountOff != nil:
		params.AmountOff = stripe.Int64(*p.AmountOff)
		params.Currency = stripe.String(strings.ToLower(p.Currency))
	default:
		return "", fmt.Errorf("%w: create coupon: no discount given", ErrProcessor)
	}

	cp, err := c.api.Coupons.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create coupon: %w", ErrProcessor, err)
	}
	return cp.ID, nil
}

func (c *stripeClient) CreateCheckoutSession(ctx context.Context, p SessionParams) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(p.CustomerID),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: p.Metadata,
		},
		Metadata: p.Metadata,
	}
	params.Context = ctx
	if p.CouponID != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{{Coupon: stripe.String(p.CouponID)}}
	}
	if p.TrialPeriodDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(p.TrialPeriodDays)
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %w", ErrProcessor, err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func (c *stripeClient) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("%w: get subscription %s: %w", ErrProcessor, id, err)
	}

	// Decode the raw body so the period bounds are found regardless of the
	// account's API version.
	if sub.LastResponse != nil && len(sub.LastResponse.RawJSON) > 0 {
		out, err := DecodeSubscription(sub.LastResponse.RawJSON)
		if err != nil {
			return nil, fmt.Errorf("%w: decode subscription %s: %w", ErrProcessor, id, err)
		}
		return out, nil
	}
	return &Subscription{ID: sub.ID, Status: string(sub.Status), Metadata: sub.Metadata}, nil
}
