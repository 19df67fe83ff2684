package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/pkg/binder"
)

type payload struct {
	PlanID string  `json:"plan_id"`
	Coupon *string `json:"coupon_code"`
}

func request(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("decodes payload", func(t *testing.T) {
		t.Parallel()
		var p payload
		err := binder.JSON(request(`{"plan_id":"p1","coupon_code":"SUMMER"}`, "application/json; charset=utf-8"), &p)
		require.NoError(t, err)
		assert.Equal(t, "p1", p.PlanID)
		require.NotNil(t, p.Coupon)
		assert.Equal(t, "SUMMER", *p.Coupon)
	})

	tests := []struct {
		name        string
		body        string
		contentType string
		want        error
	}{
		{name: "missing content type", body: `{}`, want: binder.ErrMissingContentType},
		{name: "wrong content type", body: `{}`, contentType: "text/plain", want: binder.ErrUnsupportedMediaType},
		{name: "unknown field", body: `{"plan":"p1"}`, contentType: "application/json", want: binder.ErrFailedToParseJSON},
		{name: "empty body", body: ``, contentType: "application/json", want: binder.ErrFailedToParseJSON},
		{name: "trailing data", body: `{"plan_id":"p1"} {}`, contentType: "application/json", want: binder.ErrFailedToParseJSON},
		{name: "malformed", body: `{"plan_id":`, contentType: "application/json", want: binder.ErrFailedToParseJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var p payload
			assert.ErrorIs(t, binder.JSON(request(tt.body, tt.contentType), &p), tt.want)
		})
	}
}
