package subscription

import (
	"context"
	"sync"
)

// MemoryLedger is an EventLedger for a single process.
type MemoryLedger struct {
	mu   sync.RWMutex
	seen map[string]string
}

var _ EventLedger = (*MemoryLedger)(nil)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]string)}
}

func (l *MemoryLedger) Seen(_ context.Context, eventID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[eventID]
	return ok, nil
}

func (l *MemoryLedger) Record(_ context.Context, eventID, eventType string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[eventID] = eventType
	return nil
}
