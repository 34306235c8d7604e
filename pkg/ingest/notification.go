package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/codeready-toolchain/meetingcore/pkg/graph"
	"github.com/codeready-toolchain/meetingcore/pkg/queue"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
)

// wireNotification is one element of Graph's change-notification payload.
type wireNotification struct {
	SubscriptionID string          `json:"subscriptionId"`
	ChangeType     string          `json:"changeType"`
	Resource       string          `json:"resource"`
	ResourceData   json.RawMessage `json:"resourceData"`
}

var (
	// users('{userId}') or users/{userId} in a resource path.
	userInResourceRe = regexp.MustCompile(`users(?:/|\(['"]?)([^/'"()]+)`)

	// Matches both resource shapes Graph has used for transcript-ready
	// notifications: the slash form and the parenthesized-id form, each
	// with possibly-encoded ids.
	transcriptResourceRe = regexp.MustCompile(`onlineMeetings(?:/|\(['"]?)([^/'"()]+)(?:['"]?\))?/transcripts(?:/|\(['"]?)([^/'"()]+)`)
)

// HandleNotification accepts either a single notification object or Graph's
// batch wrapper ({"value": [...]}), and returns one Result per notification.
func (h *Handler) HandleNotification(ctx context.Context, raw json.RawMessage) []Result {
	var batch struct {
		Value []json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &batch); err == nil && batch.Value != nil {
		slog.Info("processing notification batch", "count", len(batch.Value))
		results := make([]Result, 0, len(batch.Value))
		for _, item := range batch.Value {
			results = append(results, h.processOne(ctx, item))
		}
		return results
	}
	return []Result{h.processOne(ctx, raw)}
}

func (h *Handler) processOne(ctx context.Context, raw json.RawMessage) Result {
	var n wireNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return Result{Status: StatusError, Error: err.Error()}
	}

	// The subscription validation handshake carries a subscriptionId and no
	// resource; Graph expects a bare 200 for it, nothing to process here.
	if n.SubscriptionID != "" && n.Resource == "" {
		return Result{Status: StatusValidated}
	}

	switch {
	case n.Resource != "" && strings.Contains(strings.ToLower(n.Resource), "transcript"):
		return h.processTranscriptNotification(ctx, n)
	case n.ChangeType == "created" && n.Resource != "":
		return h.processCallRecord(ctx, callRecordIDFrom(n), store.SourceWebhook)
	default:
		return Result{Status: StatusIgnored, Reason: "unhandled notification type"}
	}
}

func callRecordIDFrom(n wireNotification) string {
	if len(n.ResourceData) > 0 {
		var rd struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(n.ResourceData, &rd); err == nil && rd.ID != "" {
			return rd.ID
		}
	}
	return lastPathSegment(n.Resource)
}

func lastPathSegment(resource string) string {
	parts := strings.Split(resource, "/")
	return parts[len(parts)-1]
}

// processTranscriptNotification handles the preferred signal: it only
// fires once the transcript is actually downloadable, so there's no
// availability polling to do — just resolve the meeting row and enqueue.
func (h *Handler) processTranscriptNotification(ctx context.Context, n wireNotification) Result {
	var organizerUserID string
	if m := userInResourceRe.FindStringSubmatch(n.Resource); m != nil {
		organizerUserID = m[1]
	}

	m := transcriptResourceRe.FindStringSubmatch(n.Resource)
	if m == nil {
		return Result{Status: StatusError, Reason: "could not parse meeting/transcript ids from resource"}
	}
	meetingID, transcriptID := m[1], m[2]

	existing, err := h.meetings.GetByProviderMeetingID(ctx, meetingID)
	if err != nil && err != store.ErrNotFound {
		return Result{Status: StatusError, Error: err.Error()}
	}

	var dbMeetingID int64
	if existing != nil {
		dbMeetingID = existing.ID
		if err := h.meetings.SetStatus(ctx, dbMeetingID, store.MeetingQueued, nil); err != nil {
			slog.Warn("requeuing meeting for new transcript failed", "meeting_id", dbMeetingID, "error", err)
		}
		if organizerUserID != "" && existing.OrganizerUserID == nil {
			h.backfillOrganizer(ctx, dbMeetingID, organizerUserID)
		}
	} else {
		organizerEmail, organizerName := h.lookupOrganizer(ctx, organizerUserID)
		now := timeNowUTC()
		meeting := &store.Meeting{
			MeetingID:        meetingID,
			Subject:          "Teams Meeting",
			StartTime:        now,
			EndTime:          now,
			ParticipantCount: 1,
			Status:           store.MeetingQueued,
		}
		if organizerUserID != "" {
			meeting.OrganizerUserID = &organizerUserID
		}
		if organizerEmail != "" {
			meeting.OrganizerEmail = &organizerEmail
		}
		if organizerName != "" {
			meeting.OrganizerName = &organizerName
		}

		id, err := h.meetings.Create(ctx, meeting)
		if err != nil {
			return Result{Status: StatusError, Error: err.Error()}
		}
		dbMeetingID = id

		if organizerEmail != "" {
			displayName := organizerName
			if displayName == "" {
				displayName = organizerEmail
			}
			if _, err := h.meetings.AddParticipant(ctx, &store.MeetingParticipant{
				MeetingID:   dbMeetingID,
				Email:       &organizerEmail,
				DisplayName: displayName,
				Role:        store.RoleOrganizer,
			}); err != nil {
				slog.Warn("adding organizer participant failed", "meeting_id", dbMeetingID, "error", err)
			}
		}
	}

	// One active chain per meeting at a time: EnqueueChain refuses a second
	// chain while any non-terminal job exists. This collapses the original
	// per-transcript-id dedup (replays of the same notification) and the
	// recurring-meeting case (a later, different transcript for the same
	// meeting) into one rule — a replay is always a duplicate of an
	// in-flight chain, and a genuinely new recurrence only arrives once its
	// predecessor's chain has already reached a terminal state.
	_, _, _, err = h.jobs.EnqueueChain(ctx, queue.ChainInput{
		MeetingID: dbMeetingID,
		Priority:  10,
		FetchData: mustJSON(map[string]string{"transcript_id": transcriptID}),
	})
	switch {
	case err == queue.ErrChainExists:
		return Result{Status: StatusDuplicate, MeetingID: dbMeetingID, TranscriptID: transcriptID}
	case err != nil:
		return Result{Status: StatusError, MeetingID: dbMeetingID, Error: err.Error()}
	default:
		return Result{Status: StatusProcessed, MeetingID: dbMeetingID, TranscriptID: transcriptID}
	}
}

// ProcessCallRecord processes one callRecords id directly, bypassing the
// notification-shape parsing in processOne. The backfill sweep calls this
// for every id a paged callRecords listing returns.
func (h *Handler) ProcessCallRecord(ctx context.Context, callRecordID, source string) Result {
	return h.processCallRecord(ctx, callRecordID, source)
}

// processCallRecord handles the callRecords-created signal: a meeting
// happened, but we still need to check who was on it before deciding
// whether it's worth a job at all.
func (h *Handler) processCallRecord(ctx context.Context, callRecordID, source string) Result {
	processed, err := h.callRecords.IsProcessed(ctx, callRecordID)
	if err != nil {
		return Result{Status: StatusError, CallRecordID: callRecordID, Error: err.Error()}
	}
	if processed {
		return Result{Status: StatusDuplicate, CallRecordID: callRecordID}
	}

	record, err := h.graph.GetCallRecord(ctx, callRecordID)
	if err != nil {
		return Result{Status: StatusError, CallRecordID: callRecordID, Error: err.Error()}
	}
	if record.JoinWebURL == "" {
		_ = h.callRecords.MarkProcessed(ctx, callRecordID, source)
		return Result{Status: StatusSkipped, CallRecordID: callRecordID, Reason: "no joinWebUrl"}
	}

	participants := h.extractParticipants(ctx, record)
	if !h.prefs.AnyOptedIn(ctx, emails(participants)) {
		_ = h.callRecords.MarkProcessed(ctx, callRecordID, source)
		return Result{Status: StatusSkipped, CallRecordID: callRecordID, Reason: "no opted-in participants"}
	}

	organizerUserID, organizerEmail, organizerName := h.resolveOrganizer(ctx, record, participants)

	existing, err := h.meetings.GetByProviderMeetingID(ctx, record.JoinWebURL)
	if err != nil && err != store.ErrNotFound {
		return Result{Status: StatusError, CallRecordID: callRecordID, Error: err.Error()}
	}

	var meetingID int64
	if existing != nil {
		meetingID = existing.ID
		if organizerUserID != "" && existing.OrganizerUserID == nil {
			h.backfillOrganizer(ctx, meetingID, organizerUserID)
		}
	} else {
		meeting := &store.Meeting{
			MeetingID:        record.JoinWebURL,
			Subject:          record.Subject,
			StartTime:        record.StartDateTime,
			EndTime:          record.EndDateTime,
			ParticipantCount: len(participants),
			JoinURL:          &record.JoinWebURL,
			Status:           store.MeetingDiscovered,
		}
		if meeting.Subject == "" {
			meeting.Subject = "Unknown Meeting"
		}
		if organizerUserID != "" {
			meeting.OrganizerUserID = &organizerUserID
		}
		if organizerEmail != "" {
			meeting.OrganizerEmail = &organizerEmail
		}
		if organizerName != "" {
			meeting.OrganizerName = &organizerName
		}
		if record.ChatID != "" {
			chatID := record.ChatID
			meeting.ChatID = &chatID
		}

		id, err := h.meetings.Create(ctx, meeting)
		if err != nil {
			return Result{Status: StatusError, CallRecordID: callRecordID, Error: err.Error()}
		}
		meetingID = id

		for _, p := range participants {
			var email *string
			if p.Email != "" {
				e := p.Email
				email = &e
			}
			if _, err := h.meetings.AddParticipant(ctx, &store.MeetingParticipant{
				MeetingID:       meetingID,
				Email:           email,
				DisplayName:     formatDisplayName(p),
				Role:            p.Role,
				ParticipantType: p.Type,
			}); err != nil {
				slog.Warn("adding participant failed", "meeting_id", meetingID, "error", err)
			}
		}
	}

	_, _, _, err = h.jobs.EnqueueChain(ctx, queue.ChainInput{MeetingID: meetingID, Priority: 5})
	_ = h.callRecords.MarkProcessed(ctx, callRecordID, source)

	switch {
	case err == queue.ErrChainExists:
		return Result{Status: StatusJobExists, CallRecordID: callRecordID, MeetingID: meetingID}
	case err != nil:
		return Result{Status: StatusError, CallRecordID: callRecordID, MeetingID: meetingID, Error: err.Error()}
	default:
		return Result{Status: StatusProcessed, CallRecordID: callRecordID, MeetingID: meetingID}
	}
}

// resolveOrganizer prefers the call record's own organizer field, falling
// back to the first extracted participant, then a directory lookup to fill
// in whichever of email/name is still missing.
func (h *Handler) resolveOrganizer(ctx context.Context, record *graph.CallRecord, participants []Participant) (userID, email, name string) {
	if record.Organizer != nil && record.Organizer.User != nil {
		userID = record.Organizer.User.ID
		name = record.Organizer.User.DisplayName
	}
	if userID == "" && len(participants) > 0 {
		first := participants[0]
		userID = first.UserID
		email = first.Email
		name = first.Name
	}
	if userID != "" && email == "" {
		resolvedEmail, resolvedName := h.lookupOrganizer(ctx, userID)
		email = resolvedEmail
		if name == "" {
			name = resolvedName
		}
	}
	return userID, email, name
}

func (h *Handler) lookupOrganizer(ctx context.Context, userID string) (email, name string) {
	if userID == "" {
		return "", ""
	}
	user, err := h.graph.GetUser(ctx, userID)
	if err != nil {
		slog.Warn("looking up organizer failed", "user_id", userID, "error", err)
		return "", ""
	}
	email = user.Mail
	if email == "" {
		email = user.UserPrincipalName
	}
	return email, user.DisplayName
}

func (h *Handler) backfillOrganizer(ctx context.Context, meetingID int64, organizerUserID string) {
	email, name := h.lookupOrganizer(ctx, organizerUserID)
	var emailPtr, namePtr *string
	if email != "" {
		emailPtr = &email
	}
	if name != "" {
		namePtr = &name
	}
	if err := h.meetings.UpdateOrganizer(ctx, meetingID, emailPtr, namePtr, &organizerUserID); err != nil {
		slog.Warn("backfilling organizer failed", "meeting_id", meetingID, "error", err)
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
