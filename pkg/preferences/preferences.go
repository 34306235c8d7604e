// Package preferences implements alias-tolerant opt-in checking: whether a
// participant should receive meeting summaries, honoring per-meeting
// overrides and Microsoft's dot-insensitive email alias convention.
package preferences

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/meetingcore/pkg/store"
)

// Normalize folds an email address the way Microsoft's alias convention
// does: lowercase, and dots removed from the local part only, so
// "Scott.Schatz@domain.com" and "scottschatz@domain.com" compare equal.
func Normalize(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	local, domain, found := strings.Cut(email, "@")
	if !found {
		return email
	}
	return strings.ReplaceAll(local, ".", "") + "@" + domain
}

// Checker answers opt-in questions against the preference store. There is
// no SQL equality that expresses alias-folding, so — matching the original
// implementation — it loads every subscribed row and normalizes in memory.
type Checker struct {
	store *store.PreferenceStore
}

// NewChecker builds a Checker over the given preference store.
func NewChecker(s *store.PreferenceStore) *Checker {
	return &Checker{store: s}
}

// IsOptedIn reports whether email (in any alias form) has an active
// organisation-wide subscription. Any lookup error, or the absence of a
// matching row, defaults to false — preferences are opt-in, fail-closed.
func (c *Checker) IsOptedIn(ctx context.Context, email string) bool {
	if email == "" {
		return false
	}
	target := Normalize(email)

	subscribed, err := c.store.AllSubscribed(ctx)
	if err != nil {
		slog.Error("checking opt-in status failed, defaulting to not subscribed", "email", email, "error", err)
		return false
	}

	for _, pref := range subscribed {
		if Normalize(pref.UserEmail) == target {
			return true
		}
	}
	return false
}

// IsOptedInForMeeting checks a per-meeting override before falling back to
// the organisation-wide preference. An override always wins, even when it
// disables a user who is globally subscribed.
func (c *Checker) IsOptedInForMeeting(ctx context.Context, meetingID int64, email string) bool {
	if email == "" {
		return false
	}

	override, err := c.store.MeetingOverride(ctx, meetingID, email)
	if err != nil {
		slog.Error("checking meeting preference override failed", "meeting_id", meetingID, "email", email, "error", err)
	}
	if override != nil {
		return override.ReceiveEmails
	}
	return c.IsOptedIn(ctx, email)
}

// AnyOptedIn reports whether at least one of the given emails is
// subscribed — the call-record classification gate: a call record with no
// opted-in participant is marked processed and never becomes a job.
func (c *Checker) AnyOptedIn(ctx context.Context, emails []string) bool {
	for _, e := range emails {
		if c.IsOptedIn(ctx, e) {
			return true
		}
	}
	return false
}

// FilterOptedIn narrows a recipient list down to subscribed addresses,
// preserving input order.
func (c *Checker) FilterOptedIn(ctx context.Context, emails []string) []string {
	subscribed, err := c.store.AllSubscribed(ctx)
	if err != nil {
		slog.Error("filtering opted-in recipients failed", "error", err)
		return nil
	}

	normalized := make(map[string]struct{}, len(subscribed))
	for _, pref := range subscribed {
		normalized[Normalize(pref.UserEmail)] = struct{}{}
	}

	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if _, ok := normalized[Normalize(e)]; ok {
			out = append(out, e)
		}
	}
	return out
}
