package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

// EventLedger stores processed webhook event ids in processed_webhook_events.
type EventLedger struct {
	pool *pgxpool.Pool
}

var _ subscription.EventLedger = (*EventLedger)(nil)

func (l *EventLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	var seen bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_webhook_events WHERE event_id = $1)`, eventID,
	).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("query webhook event: %w", err)
	}
	return seen, nil
}

func (l *EventLedger) Record(ctx context.Context, eventID, eventType string) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO processed_webhook_events (event_id, event_type) VALUES ($1, $2)
		 ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType,
	)
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	return nil
}

// Prune deletes ledger entries older than retention. The processor
// redelivers for a few days at most, so old ids are never looked up again.
func (l *EventLedger) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := l.pool.Exec(ctx,
		`DELETE FROM processed_webhook_events WHERE processed_at < $1`, time.Now().Add(-retention),
	)
	if err != nil {
		return 0, fmt.Errorf("prune webhook events: %w", err)
	}
	return tag.RowsAffected(), nil
}
