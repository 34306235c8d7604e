package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BackfillStore persists one audit row per backfill invocation.
type BackfillStore struct {
	pool *pgxpool.Pool
}

// NewBackfillStore builds a BackfillStore over the shared pool.
func NewBackfillStore(pool *pgxpool.Pool) *BackfillStore {
	return &BackfillStore{pool: pool}
}

// RecordRun persists the statistics of a single backfill invocation.
func (s *BackfillStore) RecordRun(ctx context.Context, r *BackfillRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO backfill_runs (lookback_hours, call_records_found, meetings_created,
			skipped_no_optin, jobs_created, errors)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		r.LookbackHours, r.CallRecordsFound, r.MeetingsCreated, r.SkippedNoOptin, r.JobsCreated, r.Errors)
	return err
}
