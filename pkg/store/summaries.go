package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SummaryStore persists versioned Summary rows.
type SummaryStore struct {
	pool *pgxpool.Pool
}

// NewSummaryStore builds a SummaryStore over the shared pool.
func NewSummaryStore(pool *pgxpool.Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

// CreateNextVersion inserts a new Summary as the current version for a
// meeting, superseding whichever row previously had SupersededBy IS NULL.
// Both writes happen in one transaction so the version chain is linearised
// by the database rather than by application-level locking.
func (s *SummaryStore) CreateNextVersion(ctx context.Context, summary *Summary) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var previousID *int64
	var previousVersion int
	err = tx.QueryRow(ctx, `
		SELECT id, version FROM summaries
		WHERE meeting_id = $1 AND superseded_by IS NULL
		FOR UPDATE`, summary.MeetingID).Scan(&previousID, &previousVersion)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	summary.Version = previousVersion + 1

	var newID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO summaries (
			meeting_id, version, summary_text, summary_html, action_items_json, decisions_json,
			topics_json, highlights_json, mentions_json, key_numbers_json, classification,
			model, prompt_tokens, completion_tokens, cost_usd, custom_instructions
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id`,
		summary.MeetingID, summary.Version, summary.SummaryText, summary.SummaryHTML,
		summary.ActionItemsJSON, summary.DecisionsJSON, summary.TopicsJSON, summary.HighlightsJSON,
		summary.MentionsJSON, summary.KeyNumbersJSON, summary.Classification, summary.Model,
		summary.PromptTokens, summary.CompletionTokens, summary.CostUSD, summary.CustomInstructions,
	).Scan(&newID)
	if err != nil {
		return 0, err
	}

	if previousID != nil {
		if _, err := tx.Exec(ctx, `UPDATE summaries SET superseded_by = $2 WHERE id = $1`,
			*previousID, newID); err != nil {
			return 0, err
		}
	}

	return newID, tx.Commit(ctx)
}

// Current fetches the non-superseded (current) summary for a meeting.
func (s *SummaryStore) Current(ctx context.Context, meetingID int64) (*Summary, error) {
	var sm Summary
	err := s.pool.QueryRow(ctx, `
		SELECT id, meeting_id, version, superseded_by, summary_text, summary_html,
			action_items_json, decisions_json, topics_json, highlights_json, mentions_json,
			key_numbers_json, classification, model, prompt_tokens, completion_tokens, cost_usd,
			custom_instructions, generated_at
		FROM summaries WHERE meeting_id = $1 AND superseded_by IS NULL`, meetingID).Scan(
		&sm.ID, &sm.MeetingID, &sm.Version, &sm.SupersededBy, &sm.SummaryText, &sm.SummaryHTML,
		&sm.ActionItemsJSON, &sm.DecisionsJSON, &sm.TopicsJSON, &sm.HighlightsJSON, &sm.MentionsJSON,
		&sm.KeyNumbersJSON, &sm.Classification, &sm.Model, &sm.PromptTokens, &sm.CompletionTokens,
		&sm.CostUSD, &sm.CustomInstructions, &sm.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &sm, err
}
