package agency

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements the agency collaborator stores in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	agencies  map[uuid.UUID]Agency
	profiles  map[uuid.UUID]Profile
	roles     map[uuid.UUID]Role
	pipelines map[uuid.UUID][]Stage
	columns   map[uuid.UUID][]Stage
}

var (
	_ Store          = (*MemoryStore)(nil)
	_ ProfileStore   = (*MemoryStore)(nil)
	_ RoleStore      = (*MemoryStore)(nil)
	_ WorkflowSeeder = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agencies:  make(map[uuid.UUID]Agency),
		profiles:  make(map[uuid.UUID]Profile),
		roles:     make(map[uuid.UUID]Role),
		pipelines: make(map[uuid.UUID][]Stage),
		columns:   make(map[uuid.UUID][]Stage),
	}
}

// PutProfile adds or replaces a profile.
func (s *MemoryStore) PutProfile(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

func (s *MemoryStore) CreateAgency(_ context.Context, a *Agency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.agencies[a.ID] = *a
	return nil
}

func (s *MemoryStore) GetAgency(_ context.Context, id uuid.UUID) (*Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agencies[id]
	if !ok {
		return nil, ErrAgencyNotFound
	}
	return &a, nil
}

func (s *MemoryStore) GetProfile(_ context.Context, userID uuid.UUID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}

func (s *MemoryStore) LinkAgency(_ context.Context, userID, agencyID uuid.UUID, fullName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return ErrProfileNotFound
	}
	p.AgencyID = &agencyID
	if fullName != "" {
		p.FullName = fullName
	}
	s.profiles[userID] = p
	return nil
}

func (s *MemoryStore) GetRole(_ context.Context, userID uuid.UUID) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[userID]
	if !ok {
		return "", ErrRoleNotFound
	}
	return r, nil
}

func (s *MemoryStore) SetRole(_ context.Context, userID uuid.UUID, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = role
	return nil
}

func (s *MemoryStore) SeedPipelineStages(_ context.Context, agencyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelines[agencyID] = slices.Clone(DefaultPipelineStages)
	return nil
}

func (s *MemoryStore) SeedTaskColumns(_ context.Context, agencyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns[agencyID] = slices.Clone(DefaultTaskColumns)
	return nil
}

// Boards returns the seeded pipeline stages and task columns of an agency.
func (s *MemoryStore) Boards(agencyID uuid.UUID) (pipeline, columns []Stage) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.pipelines[agencyID]), slices.Clone(s.columns[agencyID])
}
