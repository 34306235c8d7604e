package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/codeready-toolchain/meetingcore/pkg/errs"
	"github.com/codeready-toolchain/meetingcore/pkg/graph"
	"github.com/codeready-toolchain/meetingcore/pkg/queue"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
	"github.com/codeready-toolchain/meetingcore/pkg/vtt"
)

// transcriptMatchTolerance is how far a transcript's createdDateTime may
// drift from the meeting's start time and still be considered a match,
// when no explicit transcript_id was supplied by the notification.
const transcriptMatchTolerance = 30 * time.Minute

// fetchInput is the fetch_transcript job_type payload.
type fetchInput struct {
	MeetingID    int64  `json:"meeting_id"`
	TranscriptID string `json:"transcript_id,omitempty"`
}

type fetchOutput struct {
	Success       bool   `json:"success"`
	TranscriptID  int64  `json:"transcript_id"`
	VTTURL        string `json:"vtt_url,omitempty"`
	SpeakerCount  int    `json:"speaker_count"`
	WordCount     int    `json:"word_count"`
	DurationSecs  float64 `json:"duration_seconds"`
	SegmentCount  int    `json:"segment_count"`
	Cached        bool   `json:"cached,omitempty"`
	Message       string `json:"message"`
}

// FetchProcessor implements the fetch_transcript job: resolve which
// transcript belongs to the meeting, download its VTT content, parse it,
// and persist the Transcript row. The next stage (generate_summary) is
// already enqueued with depends_on_job_id pointing at this job — it
// becomes claimable the moment this one completes.
type FetchProcessor struct {
	meetings    *store.MeetingStore
	transcripts *store.TranscriptStore
	graph       *graph.Client
}

// NewFetchProcessor builds the fetch_transcript processor.
func NewFetchProcessor(meetings *store.MeetingStore, transcripts *store.TranscriptStore, g *graph.Client) *FetchProcessor {
	return &FetchProcessor{meetings: meetings, transcripts: transcripts, graph: g}
}

var _ queue.Processor = (*FetchProcessor)(nil)

// Process implements pkg/queue.Processor.
func (p *FetchProcessor) Process(ctx context.Context, job *queue.Job) (json.RawMessage, error) {
	var in fetchInput
	if err := json.Unmarshal(job.InputData, &in); err != nil {
		return nil, errs.NewNonRetryable("decoding fetch_transcript input", err)
	}
	if in.MeetingID == 0 {
		return nil, errs.NewNonRetryable("fetch_transcript requires meeting_id", nil)
	}

	meeting, err := p.meetings.GetByID(ctx, in.MeetingID)
	if err != nil {
		return nil, errs.NewRetryable("loading meeting", err)
	}
	if meeting == nil {
		return nil, errs.NewNonRetryable("meeting not found", fmt.Errorf("meeting %d", in.MeetingID))
	}

	if existing, err := p.transcripts.GetByMeetingID(ctx, in.MeetingID); err == nil && existing != nil {
		return mustMarshal(fetchOutput{Success: true, TranscriptID: existing.ID, Cached: true, Message: "transcript already exists"})
	} else if err != nil && err != store.ErrNotFound {
		return nil, errs.NewRetryable("checking for existing transcript", err)
	}

	if meeting.OrganizerUserID == nil || *meeting.OrganizerUserID == "" {
		return nil, errs.NewNonRetryable("meeting has no organizer_user_id; cannot list its transcripts",
			fmt.Errorf("meeting %d", in.MeetingID))
	}
	organizerUserID := *meeting.OrganizerUserID

	transcriptMeetingID, transcriptID, err := p.resolveTranscript(ctx, job, meeting, organizerUserID, in.TranscriptID)
	if err != nil {
		return nil, err
	}

	content, err := p.graph.DownloadTranscriptContent(ctx, organizerUserID, transcriptMeetingID, transcriptID)
	if err != nil {
		return nil, errs.NewRetryable("downloading transcript content", err)
	}

	segments, err := vtt.Parse(content)
	if err != nil {
		return nil, errs.NewNonRetryable("parsing transcript content", err)
	}
	metadata := vtt.ExtractMetadata(segments)
	parsedJSON, err := json.Marshal(segments)
	if err != nil {
		return nil, errs.NewNonRetryable("encoding parsed transcript", err)
	}

	transcript := &store.Transcript{
		MeetingID:     in.MeetingID,
		VTTContent:    &content,
		ParsedContent: parsedJSON,
		WordCount:     metadata.WordCount,
		SpeakerCount:  metadata.SpeakerCount,
	}
	transcriptRowID, err := p.transcripts.Create(ctx, transcript)
	if err != nil {
		return nil, errs.NewRetryable("persisting transcript", err)
	}

	if err := p.meetings.MarkHasTranscript(ctx, in.MeetingID); err != nil {
		return nil, errs.NewRetryable("marking meeting has_transcript", err)
	}
	if err := p.meetings.SetStatus(ctx, in.MeetingID, store.MeetingProcessing, nil); err != nil {
		return nil, errs.NewRetryable("updating meeting status", err)
	}

	return mustMarshal(fetchOutput{
		Success:      true,
		TranscriptID: transcriptRowID,
		SpeakerCount: metadata.SpeakerCount,
		WordCount:    metadata.WordCount,
		DurationSecs: metadata.TotalDurationSeconds,
		SegmentCount: metadata.SegmentCount,
		Message:      fmt.Sprintf("transcript fetched and parsed (%d words, %d speakers)", metadata.WordCount, metadata.SpeakerCount),
	})
}

// resolveTranscript returns the (onlineMeetingId, transcriptId) pair to
// download. A transcript_id supplied directly by the webhook notification
// is authoritative and skips the search entirely; otherwise it lists every
// transcript Graph has for the organizer and picks the one whose
// createdDateTime falls closest to (and within tolerance of) the meeting's
// start time.
func (p *FetchProcessor) resolveTranscript(ctx context.Context, job *queue.Job, meeting *store.Meeting, organizerUserID, providedTranscriptID string) (meetingID, transcriptID string, err error) {
	if providedTranscriptID != "" {
		return meeting.MeetingID, providedTranscriptID, nil
	}

	candidates, listErr := p.graph.GetAllTranscriptsForOrganizer(ctx, organizerUserID)
	if listErr != nil {
		return "", "", errs.NewRetryable("listing organizer transcripts", listErr)
	}

	var best *graph.TranscriptMeta
	bestDelta := transcriptMatchTolerance + time.Second
	for i := range candidates {
		c := &candidates[i]
		if c.MeetingID == meeting.MeetingID {
			best = c
			break
		}
		delta := time.Duration(math.Abs(float64(c.CreatedDateTime.Sub(meeting.StartTime))))
		if delta <= transcriptMatchTolerance && delta < bestDelta {
			best = c
			bestDelta = delta
		}
	}
	if best == nil {
		hours := time.Since(job.CreatedAt).Hours()
		msg := fmt.Sprintf("Transcript not available after %d retries (%.2f hours)", job.RetryCount, hours)
		return "", "", errs.NewRetryable(msg, nil)
	}
	return best.MeetingID, best.ID, nil
}

func mustMarshal(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errs.NewNonRetryable("encoding fetch_transcript output", err)
	}
	return b, nil
}
