// Package distribute implements the final stage of the job chain: posting
// a meeting's summary to its Teams chat and emailing opted-in
// participants, recording a per-channel, per-recipient delivery outcome
// for each attempt.
package distribute

import (
	"github.com/codeready-toolchain/meetingcore/pkg/graph"
	"github.com/codeready-toolchain/meetingcore/pkg/preferences"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
)

// Config holds the runtime toggles for each distribution channel.
type Config struct {
	TeamsChatEnabled bool
	EmailEnabled     bool
	// EmailFromUserID is the mailbox (GUID or UPN) Graph's sendMail action
	// sends on behalf of — typically a shared service mailbox.
	EmailFromUserID  string
	EmailFrom        string
}

// Processor implements the distribute job: chat-first, then email, with
// partial success — either channel succeeding is enough to mark the
// meeting complete, and each channel's failure is independent of the
// other's.
type Processor struct {
	cfg          Config
	meetings     *store.MeetingStore
	summaries    *store.SummaryStore
	distribution *store.DistributionStore
	prefs        *preferences.Checker
	graph        *graph.Client
}

// NewProcessor builds the distribute processor.
func NewProcessor(cfg Config, meetings *store.MeetingStore, summaries *store.SummaryStore, distribution *store.DistributionStore, prefs *preferences.Checker, g *graph.Client) *Processor {
	return &Processor{cfg: cfg, meetings: meetings, summaries: summaries, distribution: distribution, prefs: prefs, graph: g}
}
