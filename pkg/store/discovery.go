package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DiscoveryStore persists the exclusion rules, pilot-user set and
// processing-run audit log used by pkg/discovery.
type DiscoveryStore struct {
	pool *pgxpool.Pool
}

// NewDiscoveryStore builds a DiscoveryStore over the shared pool.
func NewDiscoveryStore(pool *pgxpool.Pool) *DiscoveryStore {
	return &DiscoveryStore{pool: pool}
}

// ActiveExclusions lists every active exclusion rule.
func (s *DiscoveryStore) ActiveExclusions(ctx context.Context) ([]Exclusion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, value, reason, active, created_at FROM exclusions WHERE active = TRUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Exclusion
	for rows.Next() {
		var e Exclusion
		if err := rows.Scan(&e.ID, &e.Type, &e.Value, &e.Reason, &e.Active, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PilotUserEmails lists every pilot user's email (lowercased for matching).
func (s *DiscoveryStore) PilotUserEmails(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT lower(email) FROM pilot_users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		out[email] = true
	}
	return out, rows.Err()
}

// RecordProcessingRun persists one poller discovery cycle's statistics.
func (s *DiscoveryStore) RecordProcessingRun(ctx context.Context, r *ProcessingRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processing_runs (discovered, new_meetings, queued, skipped, errors)
		VALUES ($1,$2,$3,$4,$5)`, r.Discovered, r.NewMeetings, r.Queued, r.Skipped, r.Errors)
	return err
}
