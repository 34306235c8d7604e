package summarize

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/meetingcore/pkg/errs"
	"github.com/codeready-toolchain/meetingcore/pkg/queue"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
	"github.com/codeready-toolchain/meetingcore/pkg/vtt"
)

// jobInput is the generate_summary job_type payload.
type jobInput struct {
	MeetingID          int64  `json:"meeting_id"`
	Version            int    `json:"version"`
	CustomInstructions string `json:"custom_instructions"`
}

// jobOutput mirrors the original processor's output_data fields.
type jobOutput struct {
	Success          bool    `json:"success"`
	SummaryID        int64   `json:"summary_id"`
	SummaryPreview   string  `json:"summary_preview"`
	Version          int     `json:"version"`
	Model            string  `json:"model"`
	PromptTokens     int     `json:"input_tokens"`
	CompletionTokens int     `json:"output_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost"`
	ActionItemsCount int     `json:"action_items_count"`
	DecisionsCount   int     `json:"decisions_count"`
	TopicsCount      int     `json:"topics_count"`
	HighlightsCount  int     `json:"highlights_count"`
	MentionsCount    int     `json:"mentions_count"`
	Message          string  `json:"message"`
}

// Processor implements the generate_summary job: load the meeting and its
// transcript, call the LLM client, persist the next summary version.
type Processor struct {
	meetings    *store.MeetingStore
	transcripts *store.TranscriptStore
	summaries   *store.SummaryStore
	llm         Client
}

// NewProcessor builds the generate_summary processor.
func NewProcessor(meetings *store.MeetingStore, transcripts *store.TranscriptStore, summaries *store.SummaryStore, llm Client) *Processor {
	return &Processor{meetings: meetings, transcripts: transcripts, summaries: summaries, llm: llm}
}

var _ queue.Processor = (*Processor)(nil)

// Process implements pkg/queue.Processor.
func (p *Processor) Process(ctx context.Context, job *queue.Job) (json.RawMessage, error) {
	var in jobInput
	if err := json.Unmarshal(job.InputData, &in); err != nil {
		return nil, errs.NewNonRetryable("decoding generate_summary input", err)
	}
	if in.MeetingID == 0 {
		return nil, errs.NewNonRetryable("generate_summary requires meeting_id", nil)
	}
	if in.Version == 0 {
		in.Version = 1
	}

	meeting, err := p.meetings.GetByID(ctx, in.MeetingID)
	if err != nil {
		return nil, errs.NewRetryable("loading meeting", err)
	}
	if meeting == nil {
		return nil, errs.NewNonRetryable("meeting not found", fmt.Errorf("meeting %d", in.MeetingID))
	}

	transcript, err := p.transcripts.GetByMeetingID(ctx, in.MeetingID)
	if err != nil {
		return nil, errs.NewRetryable("loading transcript", err)
	}
	if transcript == nil || transcript.VTTContent == nil {
		return nil, errs.NewRetryable("transcript not yet available", nil)
	}

	participants, err := p.meetings.ParticipantsByMeeting(ctx, in.MeetingID)
	if err != nil {
		return nil, errs.NewRetryable("loading participants", err)
	}
	names := make([]string, 0, len(participants))
	for _, prt := range participants {
		names = append(names, prt.DisplayName)
	}

	segments, err := vtt.Parse(*transcript.VTTContent)
	if err != nil {
		return nil, errs.NewNonRetryable("parsing transcript for summarization", err)
	}
	formatted := vtt.FormatForSummary(segments, true)

	organizerName := ""
	if meeting.OrganizerName != nil {
		organizerName = *meeting.OrganizerName
	}

	out, err := p.llm.Generate(ctx, Input{
		MeetingSubject:     meeting.Subject,
		OrganizerName:      organizerName,
		StartTime:          meeting.StartTime,
		EndTime:            meeting.EndTime,
		ParticipantNames:   names,
		Transcript:         formatted,
		CustomInstructions: in.CustomInstructions,
		Version:            in.Version,
	})
	if err != nil {
		return nil, errs.NewRetryable("summary generation failed", err)
	}

	summary := &store.Summary{
		MeetingID:          in.MeetingID,
		SummaryText:        out.SummaryText,
		ActionItemsJSON:    mustJSON(out.ActionItems),
		DecisionsJSON:      mustJSON(out.Decisions),
		TopicsJSON:         mustJSON(out.Topics),
		HighlightsJSON:     mustJSON(out.Highlights),
		MentionsJSON:       mustJSON(out.Mentions),
		Model:              &out.Model,
		PromptTokens:       out.PromptTokens,
		CompletionTokens:   out.CompletionTokens,
		CostUSD:            out.CostUSD,
		CustomInstructions: nonEmptyPtr(in.CustomInstructions),
	}
	if out.SummaryHTML != "" {
		summary.SummaryHTML = &out.SummaryHTML
	}

	summaryID, err := p.summaries.CreateNextVersion(ctx, summary)
	if err != nil {
		return nil, errs.NewRetryable("persisting summary", err)
	}
	if err := p.meetings.MarkHasSummary(ctx, in.MeetingID); err != nil {
		return nil, errs.NewRetryable("marking meeting has_summary", err)
	}

	preview := out.SummaryText
	if len(preview) > 200 {
		preview = preview[:200]
	}

	outJSON, err := json.Marshal(jobOutput{
		Success:          true,
		SummaryID:        summaryID,
		SummaryPreview:   preview,
		Version:          summary.Version,
		Model:            out.Model,
		PromptTokens:     out.PromptTokens,
		CompletionTokens: out.CompletionTokens,
		TotalTokens:      out.PromptTokens + out.CompletionTokens,
		CostUSD:          out.CostUSD,
		ActionItemsCount: len(out.ActionItems),
		DecisionsCount:   len(out.Decisions),
		TopicsCount:      len(out.Topics),
		HighlightsCount:  len(out.Highlights),
		MentionsCount:    len(out.Mentions),
		Message:          fmt.Sprintf("generated summary v%d for meeting %d", summary.Version, in.MeetingID),
	})
	if err != nil {
		return nil, errs.NewNonRetryable("encoding generate_summary output", err)
	}
	return outJSON, nil
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
