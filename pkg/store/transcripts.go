package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TranscriptStore persists the single Transcript row per meeting.
type TranscriptStore struct {
	pool *pgxpool.Pool
}

// NewTranscriptStore builds a TranscriptStore over the shared pool.
func NewTranscriptStore(pool *pgxpool.Pool) *TranscriptStore {
	return &TranscriptStore{pool: pool}
}

// Create inserts the transcript for a meeting. Called exactly once per
// meeting by the transcript processor.
func (s *TranscriptStore) Create(ctx context.Context, t *Transcript) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO transcripts (meeting_id, vtt_content, vtt_url, parsed_content,
			word_count, speaker_count, transcript_sharepoint_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		t.MeetingID, t.VTTContent, t.VTTURL, t.ParsedContent, t.WordCount, t.SpeakerCount,
		t.TranscriptSharePointURL,
	).Scan(&id)
	return id, err
}

// GetByMeetingID fetches the transcript belonging to a meeting.
func (s *TranscriptStore) GetByMeetingID(ctx context.Context, meetingID int64) (*Transcript, error) {
	var t Transcript
	err := s.pool.QueryRow(ctx, `
		SELECT id, meeting_id, vtt_content, vtt_url, parsed_content, word_count, speaker_count,
			transcript_sharepoint_url, created_at
		FROM transcripts WHERE meeting_id = $1`, meetingID).Scan(
		&t.ID, &t.MeetingID, &t.VTTContent, &t.VTTURL, &t.ParsedContent, &t.WordCount,
		&t.SpeakerCount, &t.TranscriptSharePointURL, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}
