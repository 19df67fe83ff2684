// Package postgres implements the billing core stores on PostgreSQL through
// a pgx connection pool.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store groups the per-domain stores sharing one pool.
type Store struct {
	pool *pgxpool.Pool

	Agencies      *AgencyStore
	Subscriptions *SubscriptionStore
	Coupons       *CouponStore
	Settings      *SettingsStore
	Events        *EventLedger
	Steps         *StepStore
}

func New(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("postgres: pool is required")
	}
	return &Store{
		pool:          pool,
		Agencies:      &AgencyStore{pool: pool},
		Subscriptions: &SubscriptionStore{pool: pool},
		Coupons:       &CouponStore{pool: pool},
		Settings:      &SettingsStore{pool: pool},
		Events:        &EventLedger{pool: pool},
		Steps:         &StepStore{pool: pool},
	}
}

// Pool returns the underlying pool.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }
