// Package discovery implements the completion/duration/exclusion/pilot
// filters that decide whether a discovered meeting is worth processing, and
// the calendar-based poller that supplements the webhook/callRecords path
// for pilot users whose organizer never triggers a callRecords
// notification (e.g. a meeting that never actually started a call).
package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/codeready-toolchain/meetingcore/pkg/store"
)

// CandidateParticipant is one attendee of a not-yet-persisted meeting.
type CandidateParticipant struct {
	Email       string
	DisplayName string
	Role        string
}

// CandidateMeeting is a meeting discovered but not yet filtered, built from
// either a calendar event (poller) or a call record (ingest's own path
// does its own opt-in gate and doesn't route through this filter).
type CandidateMeeting struct {
	MeetingID       string
	Subject         string
	OrganizerEmail  string
	OrganizerUserID string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	// HasActualEnd reports whether EndTime is the meeting's real end (from
	// a call record) rather than its scheduled end (from a calendar
	// event) — the two use different completion buffers.
	HasActualEnd bool
	Participants []CandidateParticipant
}

// completionBufferActual is added to an actual (call-record) end time
// before a meeting is considered complete enough for its transcript to
// plausibly exist.
const completionBufferActual = 5 * time.Minute

// completionBufferScheduled is the larger buffer applied to a merely
// scheduled end time, covering both meetings that run long and the delay
// before a call record appears at all.
const completionBufferScheduled = 15 * time.Minute

// Config holds the filter's tunable thresholds.
type Config struct {
	MinimumMeetingDurationMinutes int
	PilotModeEnabled              bool
}

// Filter applies the ordered filter chain: completion, duration,
// exclusions, pilot mode.
type Filter struct {
	discovery *store.DiscoveryStore
	cfg       Config
}

// NewFilter builds a Filter.
func NewFilter(discoveryStore *store.DiscoveryStore, cfg Config) *Filter {
	return &Filter{discovery: discoveryStore, cfg: cfg}
}

// ShouldProcess runs the full filter chain and returns whether to process
// the candidate plus a human-readable reason either way.
func (f *Filter) ShouldProcess(ctx context.Context, m CandidateMeeting) (bool, string) {
	if ok, reason := f.isCompleted(m); !ok {
		return false, reason
	}
	if m.DurationMinutes < f.cfg.MinimumMeetingDurationMinutes {
		return false, "duration too short"
	}
	if ok, reason := f.isExcluded(ctx, m); ok {
		return false, reason
	}
	if f.cfg.PilotModeEnabled {
		if ok, reason := f.hasPilotUser(ctx, m); !ok {
			return false, reason
		}
	}
	return true, "passed all filters"
}

func (f *Filter) isCompleted(m CandidateMeeting) (bool, string) {
	if m.EndTime.IsZero() {
		return false, "no end time available"
	}
	now := time.Now().UTC()

	buffer := completionBufferScheduled
	if m.HasActualEnd {
		buffer = completionBufferActual
	}
	completionTime := m.EndTime.Add(buffer)
	if now.Before(completionTime) {
		return false, "meeting not yet past its completion buffer"
	}
	return true, "meeting completed"
}

func (f *Filter) isExcluded(ctx context.Context, m CandidateMeeting) (bool, string) {
	exclusions, err := f.discovery.ActiveExclusions(ctx)
	if err != nil || len(exclusions) == 0 {
		return false, ""
	}

	organizer := strings.ToLower(m.OrganizerEmail)
	organizerDomain := domainOf(organizer)

	for _, e := range exclusions {
		if e.Type != store.ExclusionOrganizer {
			continue
		}
		if organizer == strings.ToLower(e.Value) {
			return true, "organizer excluded: " + e.Reason
		}
	}
	for _, e := range exclusions {
		if e.Type != store.ExclusionUser {
			continue
		}
		for _, p := range m.Participants {
			if strings.ToLower(p.Email) == strings.ToLower(e.Value) {
				return true, "participant excluded: " + e.Reason
			}
		}
	}
	for _, e := range exclusions {
		if e.Type != store.ExclusionDomain {
			continue
		}
		value := strings.ToLower(e.Value)
		if organizerDomain != "" && organizerDomain == value {
			return true, "organizer domain excluded: " + e.Reason
		}
		for _, p := range m.Participants {
			if domainOf(p.Email) == value {
				return true, "participant domain excluded: " + e.Reason
			}
		}
	}
	return false, ""
}

func (f *Filter) hasPilotUser(ctx context.Context, m CandidateMeeting) (bool, string) {
	if len(m.Participants) == 0 {
		return false, "no participants found"
	}
	pilots, err := f.discovery.PilotUserEmails(ctx)
	if err != nil {
		return false, "pilot user lookup failed"
	}
	for _, p := range m.Participants {
		if pilots[strings.ToLower(p.Email)] {
			return true, "has pilot user: " + p.Email
		}
	}
	return false, "no pilot users in meeting"
}

func domainOf(email string) string {
	_, domain, found := strings.Cut(strings.ToLower(email), "@")
	if !found {
		return ""
	}
	return domain
}
