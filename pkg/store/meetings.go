package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MeetingStore persists Meeting and MeetingParticipant rows.
type MeetingStore struct {
	pool *pgxpool.Pool
}

// NewMeetingStore builds a MeetingStore over the shared pool.
func NewMeetingStore(pool *pgxpool.Pool) *MeetingStore {
	return &MeetingStore{pool: pool}
}

const meetingColumns = `id, meeting_id, subject, organizer_email, organizer_name, organizer_user_id,
	start_time, end_time, duration_minutes, participant_count, join_url, chat_id, recording_url,
	status, has_transcript, has_summary, has_distribution, distribution_enabled,
	distribution_disabled_by, distribution_disabled_at, call_type, allow_transcription,
	allow_recording, discovery_source, discovered_at, error_message, last_chat_check,
	created_at, updated_at`

func scanMeeting(row pgx.Row) (*Meeting, error) {
	var m Meeting
	err := row.Scan(
		&m.ID, &m.MeetingID, &m.Subject, &m.OrganizerEmail, &m.OrganizerName, &m.OrganizerUserID,
		&m.StartTime, &m.EndTime, &m.DurationMinutes, &m.ParticipantCount, &m.JoinURL, &m.ChatID, &m.RecordingURL,
		&m.Status, &m.HasTranscript, &m.HasSummary, &m.HasDistribution, &m.DistributionEnabled,
		&m.DistributionDisabledBy, &m.DistributionDisabledAt, &m.CallType, &m.AllowTranscription,
		&m.AllowRecording, &m.DiscoverySource, &m.DiscoveredAt, &m.ErrorMessage, &m.LastChatCheck,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID fetches a meeting by its database id.
func (s *MeetingStore) GetByID(ctx context.Context, id int64) (*Meeting, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)
	return scanMeeting(row)
}

// GetByProviderMeetingID fetches a meeting by the provider's opaque meeting_id.
func (s *MeetingStore) GetByProviderMeetingID(ctx context.Context, meetingID string) (*Meeting, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE meeting_id = $1`, meetingID)
	return scanMeeting(row)
}

// Create inserts a new meeting and returns its assigned id.
func (s *MeetingStore) Create(ctx context.Context, m *Meeting) (int64, error) {
	if m.EndTime.Before(m.StartTime) {
		return 0, fmt.Errorf("store: meeting end_time %s precedes start_time %s", m.EndTime, m.StartTime)
	}
	if m.Status == "" {
		m.Status = MeetingDiscovered
	}
	if m.DiscoverySource == "" {
		m.DiscoverySource = SourceWebhook
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO meetings (
			meeting_id, subject, organizer_email, organizer_name, organizer_user_id,
			start_time, end_time, duration_minutes, participant_count, join_url, chat_id,
			status, distribution_enabled, call_type, allow_transcription, allow_recording,
			discovery_source
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,TRUE,$13,$14,$15,$16)
		RETURNING id`,
		m.MeetingID, m.Subject, m.OrganizerEmail, m.OrganizerName, m.OrganizerUserID,
		m.StartTime, m.EndTime, m.DurationMinutes, m.ParticipantCount, m.JoinURL, m.ChatID,
		m.Status, m.CallType, m.AllowTranscription, m.AllowRecording, m.DiscoverySource,
	).Scan(&id)
	return id, err
}

// UpdateOrganizer backfills organizer fields when a notification later supplies them.
func (s *MeetingStore) UpdateOrganizer(ctx context.Context, id int64, email, name, userID *string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE meetings SET
			organizer_email = COALESCE(organizer_email, $2),
			organizer_name = COALESCE(organizer_name, $3),
			organizer_user_id = COALESCE(organizer_user_id, $4),
			updated_at = now()
		WHERE id = $1`, id, email, name, userID)
	return err
}

// SetStatus transitions a meeting's status and optional error message.
func (s *MeetingStore) SetStatus(ctx context.Context, id int64, status string, errMsg *string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE meetings SET status = $2, error_message = $3, updated_at = now() WHERE id = $1`,
		id, status, errMsg)
	return err
}

// MarkHasTranscript flips has_transcript.
func (s *MeetingStore) MarkHasTranscript(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE meetings SET has_transcript = TRUE, updated_at = now() WHERE id = $1`, id)
	return err
}

// MarkHasSummary flips has_summary.
func (s *MeetingStore) MarkHasSummary(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE meetings SET has_summary = TRUE, updated_at = now() WHERE id = $1`, id)
	return err
}

// MarkDistributed flips has_distribution and sets status completed.
func (s *MeetingStore) MarkDistributed(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE meetings SET has_distribution = TRUE, status = $2, updated_at = now() WHERE id = $1`,
		id, MeetingCompleted)
	return err
}

// SetDistributionEnabled implements the organizer "disable for everyone" toggle.
func (s *MeetingStore) SetDistributionEnabled(ctx context.Context, id int64, enabled bool, disabledBy string) error {
	var by *string
	var at *time.Time
	if !enabled {
		by = &disabledBy
		now := time.Now().UTC()
		at = &now
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE meetings SET distribution_enabled = $2, distribution_disabled_by = $3,
			distribution_disabled_at = $4, updated_at = now()
		WHERE id = $1`, id, enabled, by, at)
	return err
}

// AddParticipant inserts a participant row belonging to a meeting.
func (s *MeetingStore) AddParticipant(ctx context.Context, p *MeetingParticipant) (int64, error) {
	if p.Role == "" {
		p.Role = RoleAttendee
	}
	if p.ParticipantType == "" {
		p.ParticipantType = ParticipantInternal
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO meeting_participants (
			meeting_id, email, display_name, role, participant_type, attended, is_pilot_user
		) VALUES ($1, $2, $3, $4, $5, TRUE, $6)
		RETURNING id`,
		p.MeetingID, p.Email, p.DisplayName, p.Role, p.ParticipantType, p.IsPilotUser,
	).Scan(&id)
	return id, err
}

// ParticipantsByMeeting lists all participants of a meeting.
func (s *MeetingStore) ParticipantsByMeeting(ctx context.Context, meetingID int64) ([]MeetingParticipant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, meeting_id, email, display_name, role, participant_type, attended,
			is_pilot_user, job_title, department, office_location, company_name, created_at
		FROM meeting_participants WHERE meeting_id = $1 ORDER BY id`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MeetingParticipant
	for rows.Next() {
		var p MeetingParticipant
		if err := rows.Scan(&p.ID, &p.MeetingID, &p.Email, &p.DisplayName, &p.Role, &p.ParticipantType,
			&p.Attended, &p.IsPilotUser, &p.JobTitle, &p.Department, &p.OfficeLocation, &p.CompanyName,
			&p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
