package subscription

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps subscriptions and plans in memory. It backs local
// development without a database and the package tests of the services.
type MemoryStore struct {
	mu    sync.RWMutex
	subs  map[uuid.UUID]Subscription
	plans map[uuid.UUID]Plan
	now   func() time.Time
}

var (
	_ Store     = (*MemoryStore)(nil)
	_ PlanStore = (*MemoryStore)(nil)
)

// NewMemoryStore seeds the catalog with plans.
func NewMemoryStore(plans ...Plan) *MemoryStore {
	s := &MemoryStore{
		subs:  make(map[uuid.UUID]Subscription),
		plans: make(map[uuid.UUID]Plan, len(plans)),
		now:   time.Now,
	}
	for _, p := range plans {
		s.plans[p.ID] = clonePlan(p)
	}
	return s
}

func (s *MemoryStore) GetByAgency(_ context.Context, agencyID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[agencyID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *MemoryStore) GetByStripeSubscription(_ context.Context, id string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if id != "" && sub.StripeSubscriptionID == id {
			return &sub, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *MemoryStore) Create(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub.AgencyID]; ok {
		return ErrSubscriptionAlreadyExists
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.CreatedAt = s.now()
	sub.UpdatedAt = sub.CreatedAt
	s.subs[sub.AgencyID] = *sub
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.subs[sub.AgencyID]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		if sub.ID == uuid.Nil {
			sub.ID = uuid.New()
		}
		sub.CreatedAt = s.now()
	}
	sub.UpdatedAt = s.now()
	s.subs[sub.AgencyID] = *sub
	return nil
}

func (s *MemoryStore) GetPlan(_ context.Context, id uuid.UUID) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	p = clonePlan(p)
	return &p, nil
}

func (s *MemoryStore) ListActivePlans(_ context.Context) ([]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Plan, 0, len(s.plans))
	for _, p := range s.plans {
		if p.Active {
			out = append(out, clonePlan(p))
		}
	}
	slices.SortFunc(out, func(a, b Plan) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *MemoryStore) UpsertPlan(_ context.Context, p *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.plans[p.ID] = clonePlan(*p)
	return nil
}

func clonePlan(p Plan) Plan {
	p.Modules = slices.Clone(p.Modules)
	return p
}
