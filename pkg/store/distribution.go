package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DistributionStore records the per-recipient, per-channel delivery outcome
// used by the distribute processor's partial-success semantics.
type DistributionStore struct {
	pool *pgxpool.Pool
}

// NewDistributionStore builds a DistributionStore over the shared pool.
func NewDistributionStore(pool *pgxpool.Pool) *DistributionStore {
	return &DistributionStore{pool: pool}
}

// RecordAttempt persists one delivery outcome.
func (s *DistributionStore) RecordAttempt(ctx context.Context, a *DistributionAttempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO distribution_attempts (job_id, meeting_id, channel, recipient, success, error_message)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.JobID, a.MeetingID, a.Channel, a.Recipient, a.Success, a.ErrorMessage)
	return err
}
