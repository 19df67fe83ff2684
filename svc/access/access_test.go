package access_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/handler"
	"github.com/dmitrymomot/agencyhub/pkg/tenant"
	"github.com/dmitrymomot/agencyhub/svc/access"
	"github.com/dmitrymomot/agencyhub/svc/agency"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

var now = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestDecide(t *testing.T) {
	t.Parallel()

	agencyID := uuid.New()
	member := access.Identity{UserID: uuid.New(), Role: agency.RoleAgent, AgencyID: &agencyID}

	tests := []struct {
		name string
		id   access.Identity
		snap *access.Snapshot
		want access.Decision
	}{
		{
			name: "super admin without agency",
			id:   access.Identity{UserID: uuid.New(), Role: agency.RoleSuperAdmin},
			want: access.Decision{Result: access.Allow},
		},
		{
			name: "no agency",
			id:   access.Identity{UserID: uuid.New(), Role: agency.RoleAdmin},
			want: access.Decision{Result: access.Block, Reason: access.ReasonNoAgency},
		},
		{
			name: "past due",
			id:   member,
			snap: &access.Snapshot{Status: subscription.StatusPastDue, CurrentPeriodEnd: at(20 * 24 * time.Hour)},
			want: access.Decision{Result: access.Block, Reason: access.ReasonInactiveSubscription, Status: subscription.StatusPastDue, AgencyID: &agencyID},
		},
		{
			name: "canceled",
			id:   member,
			snap: &access.Snapshot{Status: subscription.StatusCanceled},
			want: access.Decision{Result: access.Block, Reason: access.ReasonInactiveSubscription, Status: subscription.StatusCanceled, AgencyID: &agencyID},
		},
		{
			name: "no subscription row",
			id:   member,
			want: access.Decision{Result: access.Block, Reason: access.ReasonInactiveSubscription, AgencyID: &agencyID},
		},
		{
			name: "trial ending in three days",
			id:   member,
			snap: &access.Snapshot{Status: subscription.StatusTrialing, CurrentPeriodEnd: at(3 * 24 * time.Hour)},
			want: access.Decision{Result: access.Allow, Status: subscription.StatusTrialing, AgencyID: &agencyID, Warn: true, DaysLeft: 3},
		},
		{
			name: "partial day rounds up",
			id:   member,
			snap: &access.Snapshot{Status: subscription.StatusActive, CurrentPeriodEnd: at(6*24*time.Hour + time.Hour)},
			want: access.Decision{Result: access.Allow, Status: subscription.StatusActive, AgencyID: &agencyID, Warn: true, DaysLeft: 7},
		},
		{
			name: "period already over",
			id:   member,
			snap: &access.Snapshot{Status: subscription.StatusActive, CurrentPeriodEnd: at(-time.Hour)},
			want: access.Decision{Result: access.Allow, Status: subscription.StatusActive, AgencyID: &agencyID, Warn: true, DaysLeft: 0},
		},
		{
			name: "active far from renewal",
			id:   member,
			snap: &access.Snapshot{Status: subscription.StatusActive, CurrentPeriodEnd: at(20 * 24 * time.Hour)},
			want: access.Decision{Result: access.Allow, Status: subscription.StatusActive, AgencyID: &agencyID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, access.Decide(tt.id, tt.snap, now))
		})
	}
}

type fixture struct {
	agencies *agency.MemoryStore
	subs     *subscription.MemoryStore
	gate     *access.Gate
}

func newFixture() *fixture {
	f := &fixture{agencies: agency.NewMemoryStore(), subs: subscription.NewMemoryStore()}
	f.gate = access.NewGate(f.agencies, f.agencies, f.subs, access.WithClock(func() time.Time { return now }))
	return f
}

func (f *fixture) member(t *testing.T, status subscription.Status, end *time.Time) uuid.UUID {
	t.Helper()

	userID, agencyID := uuid.New(), uuid.New()
	f.agencies.PutProfile(agency.Profile{UserID: userID, AgencyID: &agencyID})
	require.NoError(t, f.agencies.SetRole(context.Background(), userID, agency.RoleAgent))
	if status != "" {
		require.NoError(t, f.subs.Upsert(context.Background(), &subscription.Subscription{
			AgencyID:         agencyID,
			Status:           status,
			BillingCycle:     subscription.CycleMonthly,
			CurrentPeriodEnd: end,
		}))
	}
	return userID
}

func TestGateCheck(t *testing.T) {
	t.Parallel()

	f := newFixture()

	t.Run("active member", func(t *testing.T) {
		d, err := f.gate.Check(context.Background(), f.member(t, subscription.StatusActive, at(30*24*time.Hour)))
		require.NoError(t, err)
		assert.True(t, d.Allowed())
		assert.False(t, d.Warn)
	})

	t.Run("member without subscription", func(t *testing.T) {
		d, err := f.gate.Check(context.Background(), f.member(t, "", nil))
		require.NoError(t, err)
		assert.Equal(t, access.ReasonInactiveSubscription, d.Reason)
	})

	t.Run("unknown user", func(t *testing.T) {
		d, err := f.gate.Check(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, access.ReasonNoAgency, d.Reason)
	})

	t.Run("super admin", func(t *testing.T) {
		userID := uuid.New()
		require.NoError(t, f.agencies.SetRole(context.Background(), userID, agency.RoleSuperAdmin))
		d, err := f.gate.Check(context.Background(), userID)
		require.NoError(t, err)
		assert.True(t, d.Allowed())
	})
}

type brokenRoles struct{ *agency.MemoryStore }

func (brokenRoles) GetRole(context.Context, uuid.UUID) (agency.Role, error) {
	return "", errors.New("connection refused")
}

func TestGateCheckDatastoreFailure(t *testing.T) {
	t.Parallel()

	f := newFixture()
	gate := access.NewGate(f.agencies, brokenRoles{f.agencies}, f.subs)
	_, err := gate.Check(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	f := newFixture()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, ok := access.DecisionFromContext(r.Context())
		require.True(t, ok)
		agencyID, ok := tenant.AgencyIDFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, *d.AgencyID, agencyID)
		w.WriteHeader(http.StatusNoContent)
	})
	h := tenant.Middleware(tenant.DefaultUserHeader)(access.Middleware(f.gate, access.WithBillingURL("/app/billing"))(next))

	serve := func(userID string, accept string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/app/proposals", nil)
		if userID != "" {
			r.Header.Set(tenant.DefaultUserHeader, userID)
		}
		if accept != "" {
			r.Header.Set("Accept", accept)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	t.Run("unauthenticated", func(t *testing.T) {
		w := serve("", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("allowed with warning", func(t *testing.T) {
		w := serve(f.member(t, subscription.StatusTrialing, at(2*24*time.Hour)).String(), "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "2", w.Header().Get(access.DaysLeftHeader))
	})

	t.Run("blocked json", func(t *testing.T) {
		w := serve(f.member(t, subscription.StatusPastDue, nil).String(), "application/json")
		assert.Equal(t, http.StatusPaymentRequired, w.Code)

		var body handler.JSONResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.NotNil(t, body.Error)
		assert.Equal(t, "payment_required", body.Error.Code)
		decision := body.Meta["access"].(map[string]any)
		assert.Equal(t, "inactive_subscription", decision["reason"])
		assert.Equal(t, "past_due", decision["status"])
	})

	t.Run("blocked browser", func(t *testing.T) {
		w := serve(f.member(t, subscription.StatusCanceled, nil).String(), "text/html,application/xhtml+xml")
		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), `data-reason="inactive_subscription"`)
		assert.Contains(t, w.Body.String(), `href="/app/billing"`)
		assert.Contains(t, w.Body.String(), "canceled")
	})
}
