// Package redisstore keeps the webhook event ledger in Redis with a TTL so
// it needs no pruning.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

const (
	DefaultPrefix    = "agencyhub:webhook:event:"
	DefaultRetention = 30 * 24 * time.Hour
)

// EventLedger implements subscription.EventLedger on Redis.
type EventLedger struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

var _ subscription.EventLedger = (*EventLedger)(nil)

type Option func(*EventLedger)

func WithPrefix(prefix string) Option {
	return func(l *EventLedger) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// WithRetention sets how long an event id is remembered.
func WithRetention(d time.Duration) Option {
	return func(l *EventLedger) {
		if d > 0 {
			l.retention = d
		}
	}
}

func NewEventLedger(client redis.UniversalClient, opts ...Option) *EventLedger {
	if client == nil {
		panic("redisstore: client is required")
	}
	l := &EventLedger{client: client, prefix: DefaultPrefix, retention: DefaultRetention}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *EventLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("check webhook event: %w", err)
	}
	return n > 0, nil
}

// Record keeps the first recorded type of an event id.
func (l *EventLedger) Record(ctx context.Context, eventID, eventType string) error {
	if err := l.client.SetNX(ctx, l.prefix+eventID, eventType, l.retention).Err(); err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	return nil
}
