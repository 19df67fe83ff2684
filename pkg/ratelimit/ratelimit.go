// Package ratelimit caps request rates per key with a fixed window counter.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidLimit  = errors.New("ratelimit: limit must be positive")
	ErrInvalidWindow = errors.New("ratelimit: window must be positive")
)

// Store increments the counter of key, starting a window of the given length
// on the first hit, and returns the new count with the time left in the window.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is zero for allowed requests.
func (r Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Limiter allows Limit requests per Window for each key.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

func New(store Store, limit int, window time.Duration) (*Limiter, error) {
	if store == nil {
		panic("ratelimit: store is required")
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &Limiter{store: store, limit: limit, window: window}, nil
}

func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	count, ttl, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		return Result{}, err
	}
	if ttl <= 0 {
		ttl = l.window
	}
	return Result{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: max(0, l.limit-int(count)),
		ResetAt:   time.Now().Add(ttl),
	}, nil
}
