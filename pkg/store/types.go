// Package store holds the Postgres-backed repositories for every entity in
// the meeting intelligence core except Job, which pkg/queue owns directly
// because its claim/retry logic is inseparable from its storage.
package store

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup by id or unique key finds nothing.
var ErrNotFound = errors.New("store: not found")

// Meeting statuses.
const (
	MeetingDiscovered     = "discovered"
	MeetingQueued         = "queued"
	MeetingProcessing     = "processing"
	MeetingCompleted      = "completed"
	MeetingFailed         = "failed"
	MeetingSkipped        = "skipped"
	MeetingTranscriptOnly = "transcript_only"
)

// Participant roles and classifications.
const (
	RoleOrganizer = "organizer"
	RoleAttendee  = "attendee"

	ParticipantInternal = "internal"
	ParticipantPSTN     = "pstn"
	ParticipantGuest    = "guest"
	ParticipantExternal = "external"
)

// Meeting is the aggregate root: one Teams meeting/call.
type Meeting struct {
	ID                      int64
	MeetingID               string
	Subject                 string
	OrganizerEmail          *string
	OrganizerName           *string
	OrganizerUserID         *string
	StartTime               time.Time
	EndTime                 time.Time
	DurationMinutes         int
	ParticipantCount        int
	JoinURL                 *string
	ChatID                  *string
	RecordingURL            *string
	Status                  string
	HasTranscript           bool
	HasSummary              bool
	HasDistribution         bool
	DistributionEnabled     bool
	DistributionDisabledBy  *string
	DistributionDisabledAt  *time.Time
	CallType                *string
	AllowTranscription      bool
	AllowRecording          bool
	DiscoverySource         string
	DiscoveredAt            time.Time
	ErrorMessage            *string
	LastChatCheck           *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// MeetingParticipant is a participant row belonging to a Meeting.
type MeetingParticipant struct {
	ID              int64
	MeetingID       int64
	Email           *string
	DisplayName     string
	Role            string
	ParticipantType string
	Attended        bool
	IsPilotUser     bool
	JobTitle        *string
	Department      *string
	OfficeLocation  *string
	CompanyName     *string
	CreatedAt       time.Time
}

// IsCandidateRecipient reports whether this participant actually attended
// and has an email address on file — the minimum bar for being considered
// a distribution recipient.
func (p MeetingParticipant) IsCandidateRecipient() bool {
	return p.Attended && p.Email != nil && *p.Email != ""
}

// Transcript is one-to-one with Meeting.
type Transcript struct {
	ID                      int64
	MeetingID               int64
	VTTContent              *string
	VTTURL                  *string
	ParsedContent           json.RawMessage
	WordCount               int
	SpeakerCount            int
	TranscriptSharePointURL *string
	CreatedAt               time.Time
}

// Summary is versioned per Meeting; exactly one row has SupersededBy == nil.
type Summary struct {
	ID                 int64
	MeetingID          int64
	Version            int
	SupersededBy       *int64
	SummaryText        string
	SummaryHTML        *string
	ActionItemsJSON    json.RawMessage
	DecisionsJSON      json.RawMessage
	TopicsJSON         json.RawMessage
	HighlightsJSON     json.RawMessage
	MentionsJSON       json.RawMessage
	KeyNumbersJSON     json.RawMessage
	Classification     *string
	Model              *string
	PromptTokens       int
	CompletionTokens   int
	CostUSD            float64
	CustomInstructions *string
	GeneratedAt        time.Time
}

// ProcessedCallRecord is the at-most-once marker for ingested call records.
type ProcessedCallRecord struct {
	ID           int64
	CallRecordID string
	Source       string
	ProcessedAt  time.Time
}

const (
	SourceWebhook   = "webhook"
	SourceBackfill  = "backfill"
	SourceSafetyNet = "safety_net"
)

// UserPreference is the organisation-wide opt-in record for a user.
type UserPreference struct {
	ID              int64
	UserID          string
	UserEmail       string
	ReceiveEmails   bool
	EmailPreference string
	UpdatedBy       string
	UpdatedAt       time.Time
}

// MeetingPreference overrides UserPreference for one (meeting, user) pair.
type MeetingPreference struct {
	ID            int64
	MeetingID     int64
	UserEmail     string
	ReceiveEmails bool
	UpdatedBy     string
	UpdatedAt     time.Time
}

// EmailAlias caches alias -> primary email resolution for 7 days.
type EmailAlias struct {
	ID           int64
	AliasEmail   string
	PrimaryEmail string
	UserID       string
	JobTitle     *string
	ResolvedAt   time.Time
}

// SubscriptionEvent is the append-only audit trail for §4.2.
type SubscriptionEvent struct {
	ID              int64
	EventType       string
	Source          string
	SubscriptionID  *string
	ErrorMessage    *string
	DownEventID     *int64
	DowntimeSeconds *int
	OccurredAt      time.Time
}

const (
	SubscriptionEventDown    = "down"
	SubscriptionEventUp      = "up"
	SubscriptionEventCreated = "created"
	SubscriptionEventRenewed = "renewed"
	SubscriptionEventFailed  = "failed"
)

// Exclusion rejects meetings matching a user/domain/organizer value.
type Exclusion struct {
	ID        int64
	Type      string
	Value     string
	Reason    string
	Active    bool
	CreatedAt time.Time
}

const (
	ExclusionUser      = "user"
	ExclusionDomain    = "domain"
	ExclusionOrganizer = "organizer"
)

// PilotUser gates pilot-mode discovery.
type PilotUser struct {
	ID      int64
	Email   string
	AddedBy string
	AddedAt time.Time
}

// ProcessingRun audits one poller discovery cycle.
type ProcessingRun struct {
	ID          int64
	Discovered  int
	NewMeetings int
	Queued      int
	Skipped     int
	Errors      int
	RanAt       time.Time
}

// BackfillRun audits one backfill invocation.
type BackfillRun struct {
	ID               int64
	LookbackHours    int
	CallRecordsFound int
	MeetingsCreated  int
	SkippedNoOptin   int
	JobsCreated      int
	Errors           int
	RanAt            time.Time
}

// DistributionAttempt records one recipient/channel delivery outcome.
type DistributionAttempt struct {
	ID           int64
	JobID        int64
	MeetingID    int64
	Channel      string
	Recipient    *string
	Success      bool
	ErrorMessage *string
	AttemptedAt  time.Time
}

const (
	ChannelChat  = "chat"
	ChannelEmail = "email"
)
