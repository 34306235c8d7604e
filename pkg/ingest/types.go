// Package ingest is the notification handler: it turns Microsoft Graph
// change notifications (communications/callRecords, callTranscript) into
// Meeting/MeetingParticipant rows and a queued fetch_transcript job. It is
// the entry point for both the relay listener (real-time webhooks) and the
// backfill sweep (gap-filling catch-up over the same callRecords surface).
package ingest

import (
	"github.com/codeready-toolchain/meetingcore/pkg/graph"
	"github.com/codeready-toolchain/meetingcore/pkg/preferences"
	"github.com/codeready-toolchain/meetingcore/pkg/queue"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
)

// Result is the per-notification outcome, mirroring the original handler's
// status dict so the HTTP layer and the backfill stats counter can both key
// off Status without re-deriving it.
type Result struct {
	Status       string `json:"status"`
	MeetingID    int64  `json:"meeting_id,omitempty"`
	CallRecordID string `json:"call_record_id,omitempty"`
	TranscriptID string `json:"transcript_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Status values a Result can carry.
const (
	StatusProcessed    = "processed"
	StatusDuplicate    = "duplicate"
	StatusSkipped      = "skipped"
	StatusJobExists    = "job_exists"
	StatusIgnored      = "ignored"
	StatusValidated    = "validation_acknowledged"
	StatusError        = "error"
	StatusBatchResults = "batch_processed"
)

// Participant is one call-record participant after identity classification,
// prior to being written as a MeetingParticipant row.
type Participant struct {
	Email   string
	Name    string
	Role    string
	Type    string
	UserID  string
	Phone   string
}

// Handler classifies, deduplicates and persists notifications, and enqueues
// the per-meeting fetch->summarize->distribute job chain.
type Handler struct {
	meetings    *store.MeetingStore
	callRecords *store.CallRecordStore
	jobs        *queue.Store
	graph       *graph.Client
	prefs       *preferences.Checker
}

// NewHandler builds a Handler over the given dependencies.
func NewHandler(meetings *store.MeetingStore, callRecords *store.CallRecordStore, jobs *queue.Store, g *graph.Client, prefs *preferences.Checker) *Handler {
	return &Handler{meetings: meetings, callRecords: callRecords, jobs: jobs, graph: g, prefs: prefs}
}
