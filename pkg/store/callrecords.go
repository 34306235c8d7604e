package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CallRecordStore deduplicates ingested call records: a given call record
// ID is recorded as processed at most once.
type CallRecordStore struct {
	pool *pgxpool.Pool
}

// NewCallRecordStore builds a CallRecordStore over the shared pool.
func NewCallRecordStore(pool *pgxpool.Pool) *CallRecordStore {
	return &CallRecordStore{pool: pool}
}

// MarkProcessed records a call record id as seen. It is safe to call
// concurrently for the same id; a call for an id already recorded is a
// no-op and returns nil.
func (s *CallRecordStore) MarkProcessed(ctx context.Context, callRecordID, source string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processed_call_records (call_record_id, source) VALUES ($1, $2)
		ON CONFLICT (call_record_id) DO NOTHING`, callRecordID, source)
	return err
}

// IsProcessed reports whether a call record has already been ingested.
func (s *CallRecordStore) IsProcessed(ctx context.Context, callRecordID string) (bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM processed_call_records WHERE call_record_id = $1`,
		callRecordID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// MostRecentBySource returns the most recently processed record's timestamp
// for a source (used by Backfill's gap-detection cutoff).
func (s *CallRecordStore) MostRecentBySource(ctx context.Context, source string) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT processed_at FROM processed_call_records WHERE source = $1
		ORDER BY processed_at DESC LIMIT 1`, source).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
