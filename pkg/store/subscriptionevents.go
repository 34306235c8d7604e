package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionEventStore is the append-only audit log behind alerting and
// downtime computation in pkg/subscription.
type SubscriptionEventStore struct {
	pool *pgxpool.Pool
}

// NewSubscriptionEventStore builds a SubscriptionEventStore over the shared pool.
func NewSubscriptionEventStore(pool *pgxpool.Pool) *SubscriptionEventStore {
	return &SubscriptionEventStore{pool: pool}
}

// Record appends one event and returns its id (used as DownEventID by a
// paired "up" event).
func (s *SubscriptionEventStore) Record(ctx context.Context, e *SubscriptionEvent) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO subscription_events (event_type, source, subscription_id, error_message,
			down_event_id, downtime_seconds)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		e.EventType, e.Source, e.SubscriptionID, e.ErrorMessage, e.DownEventID, e.DowntimeSeconds,
	).Scan(&id)
	return id, err
}

// LastUnpairedDown finds the most recent "down" event that has no matching
// "up" event yet (i.e. no later "up" row references it), used to compute
// downtime_seconds when recovery is confirmed.
func (s *SubscriptionEventStore) LastUnpairedDown(ctx context.Context) (*SubscriptionEvent, error) {
	var e SubscriptionEvent
	err := s.pool.QueryRow(ctx, `
		SELECT d.id, d.event_type, d.source, d.subscription_id, d.error_message, d.down_event_id,
			d.downtime_seconds, d.occurred_at
		FROM subscription_events d
		WHERE d.event_type = 'down'
		AND NOT EXISTS (SELECT 1 FROM subscription_events u WHERE u.down_event_id = d.id)
		ORDER BY d.occurred_at DESC LIMIT 1`).Scan(
		&e.ID, &e.EventType, &e.Source, &e.SubscriptionID, &e.ErrorMessage, &e.DownEventID,
		&e.DowntimeSeconds, &e.OccurredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &e, err
}
