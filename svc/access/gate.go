package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/agencyhub/pkg/logger"
	"github.com/dmitrymomot/agencyhub/pkg/metrics"
	"github.com/dmitrymomot/agencyhub/svc/agency"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

// Gate loads the caller's identity and subscription and applies Decide.
type Gate struct {
	profiles agency.ProfileStore
	roles    agency.RoleStore
	subs     subscription.Store
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Gate)

func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}

func NewGate(profiles agency.ProfileStore, roles agency.RoleStore, subs subscription.Store, opts ...Option) *Gate {
	if profiles == nil || roles == nil || subs == nil {
		panic("access: gate dependencies are required")
	}
	g := &Gate{profiles: profiles, roles: roles, subs: subs, now: time.Now, log: logger.Discard()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check returns the decision for userID. Errors are datastore failures.
func (g *Gate) Check(ctx context.Context, userID uuid.UUID) (Decision, error) {
	id, err := g.identity(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	var snap *Snapshot
	if id.Role != agency.RoleSuperAdmin && id.AgencyID != nil {
		sub, err := g.subs.GetByAgency(ctx, *id.AgencyID)
		switch {
		case errors.Is(err, subscription.ErrSubscriptionNotFound):
		case err != nil:
			return Decision{}, fmt.Errorf("load subscription: %w", err)
		default:
			snap = &Snapshot{Status: sub.Status, CurrentPeriodEnd: sub.CurrentPeriodEnd}
		}
	}

	d := Decide(id, snap, g.now())
	metrics.AccessDecisionsTotal.WithLabelValues(label(d)).Inc()
	if !d.Allowed() {
		g.log.InfoContext(ctx, "access blocked",
			logger.Component("access"),
			logger.UserID(userID),
			logger.Reason(string(d.Reason)),
			logger.Status(d.Status),
		)
	}
	return d, nil
}

func (g *Gate) identity(ctx context.Context, userID uuid.UUID) (Identity, error) {
	id := Identity{UserID: userID}

	role, err := g.roles.GetRole(ctx, userID)
	if err != nil && !errors.Is(err, agency.ErrRoleNotFound) {
		return Identity{}, fmt.Errorf("load role: %w", err)
	}
	id.Role = role

	profile, err := g.profiles.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, agency.ErrProfileNotFound):
	case err != nil:
		return Identity{}, fmt.Errorf("load profile: %w", err)
	case profile.HasAgency():
		id.AgencyID = profile.AgencyID
	}
	return id, nil
}

func label(d Decision) string {
	switch {
	case !d.Allowed():
		return "block_" + string(d.Reason)
	case d.Warn:
		return "warn"
	}
	return "allow"
}
