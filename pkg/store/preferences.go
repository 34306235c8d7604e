package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PreferenceStore persists UserPreference, MeetingPreference and EmailAlias
// rows. The alias-tolerant lookup logic itself lives in pkg/preferences;
// this type is the storage seam it calls.
type PreferenceStore struct {
	pool *pgxpool.Pool
}

// NewPreferenceStore builds a PreferenceStore over the shared pool.
func NewPreferenceStore(pool *pgxpool.Pool) *PreferenceStore {
	return &PreferenceStore{pool: pool}
}

// AllSubscribed returns every UserPreference row with receive_emails = true.
// pkg/preferences normalizes and compares each against a target email, the
// same "load all, normalize in memory" approach the original Python
// implementation uses since alias-folding cannot be expressed as a plain SQL
// equality.
func (s *PreferenceStore) AllSubscribed(ctx context.Context) ([]UserPreference, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, user_email, receive_emails, email_preference, updated_by, updated_at
		FROM user_preferences WHERE receive_emails = TRUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserPreference
	for rows.Next() {
		var p UserPreference
		if err := rows.Scan(&p.ID, &p.UserID, &p.UserEmail, &p.ReceiveEmails, &p.EmailPreference,
			&p.UpdatedBy, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert creates or updates a user's preference by email.
func (s *PreferenceStore) Upsert(ctx context.Context, userID, email string, receiveEmails bool, updatedBy string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_preferences (user_id, user_email, receive_emails, email_preference, updated_by)
		VALUES ($1, $2, $3, CASE WHEN $3 THEN 'all' ELSE 'disabled' END, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			user_email = EXCLUDED.user_email,
			receive_emails = EXCLUDED.receive_emails,
			email_preference = EXCLUDED.email_preference,
			updated_by = EXCLUDED.updated_by,
			updated_at = now()`,
		userID, email, receiveEmails, updatedBy)
	return err
}

// MeetingOverride fetches a per-meeting preference override, if any.
func (s *PreferenceStore) MeetingOverride(ctx context.Context, meetingID int64, email string) (*MeetingPreference, error) {
	var mp MeetingPreference
	err := s.pool.QueryRow(ctx, `
		SELECT id, meeting_id, user_email, receive_emails, updated_by, updated_at
		FROM meeting_preferences WHERE meeting_id = $1 AND lower(user_email) = lower($2)`,
		meetingID, email).Scan(&mp.ID, &mp.MeetingID, &mp.UserEmail, &mp.ReceiveEmails, &mp.UpdatedBy, &mp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &mp, err
}

// BulkDisableForMeeting implements the organizer "opt everyone out of this
// meeting" action referenced in the original PreferenceManager docstring.
func (s *PreferenceStore) BulkDisableForMeeting(ctx context.Context, meetingID int64, emails []string, disabledBy string) error {
	for _, email := range emails {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO meeting_preferences (meeting_id, user_email, receive_emails, updated_by)
			VALUES ($1, $2, FALSE, $3)
			ON CONFLICT (meeting_id, user_email) DO UPDATE SET
				receive_emails = FALSE, updated_by = EXCLUDED.updated_by, updated_at = now()`,
			meetingID, email, disabledBy)
		if err != nil {
			return err
		}
	}
	return nil
}

// ResolveAlias returns a cached alias resolution younger than 7 days.
func (s *PreferenceStore) ResolveAlias(ctx context.Context, aliasEmail string) (*EmailAlias, error) {
	var a EmailAlias
	err := s.pool.QueryRow(ctx, `
		SELECT id, alias_email, primary_email, user_id, job_title, resolved_at
		FROM email_aliases WHERE lower(alias_email) = lower($1)`, aliasEmail).Scan(
		&a.ID, &a.AliasEmail, &a.PrimaryEmail, &a.UserID, &a.JobTitle, &a.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Since(a.ResolvedAt) > 7*24*time.Hour {
		return nil, nil // expired: caller re-resolves and calls CacheAlias again
	}
	return &a, nil
}

// CacheAlias stores or refreshes an alias -> primary resolution.
func (s *PreferenceStore) CacheAlias(ctx context.Context, a *EmailAlias) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO email_aliases (alias_email, primary_email, user_id, job_title)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (alias_email) DO UPDATE SET
			primary_email = EXCLUDED.primary_email, user_id = EXCLUDED.user_id,
			job_title = EXCLUDED.job_title, resolved_at = now()`,
		a.AliasEmail, a.PrimaryEmail, a.UserID, a.JobTitle)
	return err
}
