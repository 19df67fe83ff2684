package coupon

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a Store kept in process memory. Redeem follows the same
// rules as the SQL implementation: one count per session, never past
// max_uses.
type MemoryStore struct {
	mu          sync.Mutex
	coupons     map[uuid.UUID]Coupon
	redemptions map[string]uuid.UUID
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(coupons ...Coupon) *MemoryStore {
	s := &MemoryStore{
		coupons:     make(map[uuid.UUID]Coupon, len(coupons)),
		redemptions: make(map[string]uuid.UUID),
	}
	for _, c := range coupons {
		s.Put(c)
	}
	return s
}

// Put adds or replaces a coupon.
func (s *MemoryStore) Put(c Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Code = NormalizeCode(c.Code)
	c.ApplicablePlans = slices.Clone(c.ApplicablePlans)
	s.coupons[c.ID] = c
}

// Get returns a copy of the coupon with id.
func (s *MemoryStore) Get(id uuid.UUID) (Coupon, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[id]
	return c, ok
}

func (s *MemoryStore) FindActiveByCode(_ context.Context, code string) (*Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code = NormalizeCode(code)
	for _, c := range s.coupons {
		if c.Active && c.Code == code {
			c.ApplicablePlans = slices.Clone(c.ApplicablePlans)
			return &c, nil
		}
	}
	return nil, ErrCouponNotFound
}

func (s *MemoryStore) Redeem(_ context.Context, couponID uuid.UUID, sessionID string, _ uuid.UUID) (RedeemOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[couponID]
	if !ok {
		return "", ErrCouponNotFound
	}
	if _, done := s.redemptions[sessionID]; done {
		return Replayed, nil
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return Exhausted, nil
	}
	c.CurrentUses++
	s.coupons[couponID] = c
	s.redemptions[sessionID] = couponID
	return Redeemed, nil
}
