// Package agency holds the tenant, profile and role records the billing
// core reads and writes during provisioning and access checks.
package agency

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Agency is a tenant of the application.
type Agency struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Phone     string
	Active    bool
	CreatedAt time.Time
}

// Profile links an authenticated user to at most one agency.
type Profile struct {
	UserID   uuid.UUID
	AgencyID *uuid.UUID
	FullName string
	Email    string
}

// HasAgency reports whether the profile is already linked.
func (p Profile) HasAgency() bool {
	return p.AgencyID != nil && *p.AgencyID != uuid.Nil
}

// Role is the user's permission level inside the application.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleAgent      Role = "agent"
	RoleViewer     Role = "viewer"
)

type Store interface {
	CreateAgency(ctx context.Context, a *Agency) error
	GetAgency(ctx context.Context, id uuid.UUID) (*Agency, error)
}

type ProfileStore interface {
	// GetProfile returns ErrProfileNotFound for unknown users.
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	LinkAgency(ctx context.Context, userID, agencyID uuid.UUID, fullName string) error
}

type RoleStore interface {
	// GetRole returns ErrRoleNotFound when the user has no role row.
	GetRole(ctx context.Context, userID uuid.UUID) (Role, error)
	SetRole(ctx context.Context, userID uuid.UUID, role Role) error
}

// WorkflowSeeder creates the default boards of a new agency.
type WorkflowSeeder interface {
	SeedPipelineStages(ctx context.Context, agencyID uuid.UUID) error
	SeedTaskColumns(ctx context.Context, agencyID uuid.UUID) error
}
