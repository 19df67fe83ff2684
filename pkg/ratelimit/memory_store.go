package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps counters in process. Expired windows are dropped on
// the next hit of the same key and by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	count   int64
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]memoryWindow), now: time.Now}
}

func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.expires) {
		w = memoryWindow{expires: now.Add(window)}
	}
	w.count++
	s.windows[key] = w
	return w.count, w.expires.Sub(now), nil
}

// Sweep removes expired windows.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, w := range s.windows {
		if !now.Before(w.expires) {
			delete(s.windows, key)
		}
	}
}
