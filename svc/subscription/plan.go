package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plan is a purchasable tier of the catalog.
type Plan struct {
	ID                   uuid.UUID
	Name                 string
	MonthlyPrice         decimal.Decimal
	YearlyPrice          decimal.Decimal
	Currency             string
	StripePriceIDMonthly string
	StripePriceIDYearly  string
	MaxUsers             *int
	MaxClients           *int
	MaxProposals         *int
	TrialDays            int
	Modules              []string
	Active               bool
	CreatedAt            time.Time
}

// PriceID returns the processor price for cycle, or "" when the plan cannot
// be bought on that cycle.
func (p Plan) PriceID(cycle BillingCycle) string {
	switch cycle {
	case CycleMonthly:
		return p.StripePriceIDMonthly
	case CycleYearly:
		return p.StripePriceIDYearly
	}
	return ""
}

// Price returns the list price for cycle.
func (p Plan) Price(cycle BillingCycle) decimal.Decimal {
	if cycle == CycleYearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// PlanStore reads and maintains the plan catalog.
type PlanStore interface {
	// GetPlan returns ErrPlanNotFound for unknown ids.
	GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error)
	ListActivePlans(ctx context.Context) ([]Plan, error)
	UpsertPlan(ctx context.Context, plan *Plan) error
}
