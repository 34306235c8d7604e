// Package summarize is the thin seam to the LLM summarization service.
// The prompt templates and the LLM client itself stay out of scope —
// this package is deliberately just an interface and its payload shapes,
// a plain Go call rather than a generated gRPC client, since no proto
// definitions for an LLM service are part of this module.
package summarize

import (
	"context"
	"time"
)

// Input is everything a summarization call needs: the formatted
// transcript plus enough meeting metadata for the prompt to ground on.
type Input struct {
	MeetingSubject     string
	OrganizerName      string
	StartTime          time.Time
	EndTime             time.Time
	ParticipantNames   []string
	Transcript         string
	CustomInstructions string
	// Version is 1 for an initial summary, 2+ for a re-summarization
	// (e.g. "summarize again with different instructions" via chat
	// command).
	Version int
}

// Output is the generated summary plus the usage/cost accounting the
// original Claude-backed implementation records per meeting.
type Output struct {
	SummaryText      string
	SummaryHTML      string
	ActionItems      []string
	Decisions        []string
	Topics           []string
	Highlights       []string
	Mentions         []string
	Model            string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
}

// Client is the external collaborator boundary: anything that can turn a
// transcript into a structured summary. Production wiring wraps an LLM
// API client; tests supply a stub.
type Client interface {
	Generate(ctx context.Context, input Input) (Output, error)
}
