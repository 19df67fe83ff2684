package payments_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/svc/payments"
)

// stripeStub records the last form posted to each path and answers with a
// canned object.
func stripeStub(t *testing.T, responses map[string]any) (*httptest.Server, map[string]map[string]string) {
	t.Helper()
	forms := map[string]map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test_key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		forms[r.Method+" "+r.URL.Path] = form

		body, ok := responses[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"no such route"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, forms
}

func TestStripeClient(t *testing.T) {
	ctx := context.Background()

	srv, forms := stripeStub(t, map[string]any{
		"POST /v1/customers":         map[string]any{"id": "cus_123", "object": "customer"},
		"POST /v1/coupons":           map[string]any{"id": "co_123", "object": "coupon"},
		"POST /v1/checkout/sessions": map[string]any{"id": "cs_123", "object": "checkout.session", "url": "https://checkout.test/cs_123"},
		"GET /v1/subscriptions/sub_123": map[string]any{
			"id": "sub_123", "object": "subscription", "status": "trialing", "customer": "cus_123",
			"items": map[string]any{"object": "list", "data": []any{
				map[string]any{"id": "si_1", "object": "subscription_item", "current_period_start": 1700000000, "current_period_end": 1700604800},
			}},
		},
	})
	client := payments.NewStripeFactory(srv.URL)("sk_test_key")

	cusID, err := client.CreateCustomer(ctx, payments.CustomerParams{
		Email: "owner@sunny.travel", Name: "Sunny Tours", Metadata: map[string]string{"agency_id": "a1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_123", cusID)
	assert.Equal(t, "owner@sunny.travel", forms["POST /v1/customers"]["email"])
	assert.Equal(t, "a1", forms["POST /v1/customers"]["metadata[agency_id]"])

	pct := 25.0
	couponID, err := client.CreateCoupon(ctx, payments.CouponParams{PercentOff: &pct})
	require.NoError(t, err)
	assert.Equal(t, "co_123", couponID)
	assert.Equal(t, "once", forms["POST /v1/coupons"]["duration"])
	assert.Equal(t, "1", forms["POST /v1/coupons"]["max_redemptions"])
	percentOff, err := strconv.ParseFloat(forms["POST /v1/coupons"]["percent_off"], 64)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, percentOff, 0.0001)

	sess, err := client.CreateCheckoutSession(ctx, payments.SessionParams{
		CustomerID: "cus_123",
		PriceID:    "price_monthly",
		SuccessURL: "https://app.test/ok",
		CancelURL:  "https://app.test/cancel",
		CouponID:   "co_123",
		Metadata:   map[string]string{"agency_id": "a1", "plan_id": "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/cs_123", sess.URL)
	form := forms["POST /v1/checkout/sessions"]
	assert.Equal(t, "subscription", form["mode"])
	assert.Equal(t, "price_monthly", form["line_items[0][price]"])
	assert.Equal(t, "co_123", form["discounts[0][coupon]"])
	assert.Equal(t, "a1", form["metadata[agency_id]"])
	assert.Equal(t, "p1", form["subscription_data[metadata][plan_id]"])

	sub, err := client.GetSubscription(ctx, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, "trialing", sub.Status)
	assert.Equal(t, int64(1700604800), sub.CurrentPeriodEnd.Unix())
}

func TestStripeClientErrors(t *testing.T) {
	srv, _ := stripeStub(t, map[string]any{})
	client := payments.NewStripeFactory(srv.URL)("sk_test_key")

	_, err := client.GetSubscription(context.Background(), "sub_missing")
	assert.ErrorIs(t, err, payments.ErrProcessor)

	_, err = client.CreateCoupon(context.Background(), payments.CouponParams{})
	assert.ErrorIs(t, err, payments.ErrProcessor)
}
