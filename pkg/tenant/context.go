// Package tenant carries the authenticated caller and the agency being acted
// on through the request context.
//
// Authentication happens upstream; Middleware trusts the identity header set
// by the auth proxy and only checks that it is a UUID.
package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type (
	userKey   struct{}
	agencyKey struct{}
)

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// UserIDFromContext returns the caller id and whether one was set.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func WithAgencyID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, agencyKey{}, id)
}

func AgencyIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(agencyKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// UserLoggerExtractor adds user_id to log records.
func UserLoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := UserIDFromContext(ctx); ok {
			return slog.String("user_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}

// AgencyLoggerExtractor adds agency_id to log records.
func AgencyLoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := AgencyIDFromContext(ctx); ok {
			return slog.String("agency_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
