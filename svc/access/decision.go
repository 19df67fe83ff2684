// Package access decides whether a caller may use the application based on
// the subscription of their agency.
package access

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/agencyhub/svc/agency"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

// WarnWindow is how long before the period end an expiry warning is shown.
const WarnWindow = 7 * 24 * time.Hour

// Identity is who is asking.
type Identity struct {
	UserID   uuid.UUID
	Role     agency.Role
	AgencyID *uuid.UUID
}

// Snapshot is the part of the subscription the gate reads.
type Snapshot struct {
	Status           subscription.Status
	CurrentPeriodEnd *time.Time
}

type Result string

const (
	Allow Result = "allow"
	Block Result = "block"
)

type BlockReason string

const (
	ReasonNoAgency             BlockReason = "no_agency"
	ReasonInactiveSubscription BlockReason = "inactive_subscription"
)

// Decision is the outcome of an access check. Warn is only set on allowed
// decisions.
type Decision struct {
	Result   Result              `json:"result"`
	Reason   BlockReason         `json:"reason,omitempty"`
	Status   subscription.Status `json:"status,omitempty"`
	AgencyID *uuid.UUID          `json:"agency_id,omitempty"`
	Warn     bool                `json:"warn"`
	DaysLeft int                 `json:"days_left,omitempty"`
}

func (d Decision) Allowed() bool { return d.Result == Allow }

// Decide applies the access rules. snap is nil when the agency has no
// subscription row.
func Decide(id Identity, snap *Snapshot, now time.Time) Decision {
	if id.Role == agency.RoleSuperAdmin {
		return Decision{Result: Allow, AgencyID: id.AgencyID}
	}
	if id.AgencyID == nil || *id.AgencyID == uuid.Nil {
		return Decision{Result: Block, Reason: ReasonNoAgency}
	}

	d := Decision{AgencyID: id.AgencyID}
	if snap == nil || !snap.Status.Grants() {
		d.Result = Block
		d.Reason = ReasonInactiveSubscription
		if snap != nil {
			d.Status = snap.Status
		}
		return d
	}

	d.Result = Allow
	d.Status = snap.Status
	if snap.CurrentPeriodEnd != nil {
		left := snap.CurrentPeriodEnd.Sub(now)
		if left <= WarnWindow {
			d.Warn = true
			d.DaysLeft = max(0, int(math.Ceil(left.Hours()/24)))
		}
	}
	return d
}
