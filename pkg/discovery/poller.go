package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/codeready-toolchain/meetingcore/pkg/graph"
	"github.com/codeready-toolchain/meetingcore/pkg/queue"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
)

// lookbackWindow is how far back the poller's calendar view query reaches
// on every cycle — wide enough that a meeting missed by one cycle (still
// incomplete, excluded by the completion buffer) is picked up by the next.
const lookbackWindow = 48 * time.Hour

// PollerConfig holds the poller's schedule and filter thresholds.
type PollerConfig struct {
	Interval                      time.Duration
	MinimumMeetingDurationMinutes int
	PilotModeEnabled              bool
}

// Poller periodically walks pilot users' calendars looking for completed
// online meetings that the callRecords webhook path never saw — the
// meeting happened but no one ever actually started a Teams call for it,
// or the subscription was down when the call ended. It is the
// fallback-discovery half of the pair described in
// original_source/src/discovery/poller.py; the webhook/callRecords path
// in pkg/ingest is the primary one and doesn't route through this Filter
// at all.
type Poller struct {
	cfg       PollerConfig
	graph     *graph.Client
	discovery *store.DiscoveryStore
	meetings  *store.MeetingStore
	jobs      *queue.Store
	filter    *Filter

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller builds a Poller.
func NewPoller(cfg PollerConfig, g *graph.Client, discoveryStore *store.DiscoveryStore, meetings *store.MeetingStore, jobs *queue.Store) *Poller {
	filter := NewFilter(discoveryStore, Config{
		MinimumMeetingDurationMinutes: cfg.MinimumMeetingDurationMinutes,
		PilotModeEnabled:              cfg.PilotModeEnabled,
	})
	return &Poller{
		cfg:       cfg,
		graph:     g,
		discovery: discoveryStore,
		meetings:  meetings,
		jobs:      jobs,
		filter:    filter,
	}
}

// Start begins the ticker-driven polling loop, running one cycle
// immediately and then every cfg.Interval.
func (p *Poller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx)
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	p.runCycle(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runCycle(ctx)
		}
	}
}

func (p *Poller) runCycle(ctx context.Context) {
	run := &store.ProcessingRun{}

	pilots, err := p.discovery.PilotUserEmails(ctx)
	if err != nil {
		slog.Warn("discovery: listing pilot users failed", "error", err)
		return
	}
	if len(pilots) == 0 {
		return
	}

	now := time.Now().UTC()
	start := now.Add(-lookbackWindow)

	for email := range pilots {
		events, err := p.graph.GetUserCalendarView(ctx, email, start, now)
		if err != nil {
			slog.Warn("discovery: calendar view query failed", "user", email, "error", err)
			run.Errors++
			continue
		}
		for _, ev := range events {
			p.processEvent(ctx, ev, run)
		}
	}

	if err := p.discovery.RecordProcessingRun(ctx, run); err != nil {
		slog.Warn("discovery: recording processing run failed", "error", err)
	}
	slog.Info("discovery cycle complete",
		"discovered", run.Discovered, "new_meetings", run.NewMeetings,
		"queued", run.Queued, "skipped", run.Skipped, "errors", run.Errors)
}

func (p *Poller) processEvent(ctx context.Context, ev graph.CalendarEvent, run *store.ProcessingRun) {
	if !ev.IsOnlineMeeting {
		return
	}
	run.Discovered++

	existing, err := p.meetings.GetByProviderMeetingID(ctx, ev.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("discovery: meeting lookup failed", "event_id", ev.ID, "error", err)
		run.Errors++
		return
	}
	if existing != nil {
		return
	}

	candidate, err := p.toCandidate(ev)
	if err != nil {
		slog.Warn("discovery: skipping event with unparseable time", "event_id", ev.ID, "error", err)
		run.Errors++
		return
	}

	ok, reason := p.filter.ShouldProcess(ctx, candidate)
	if !ok {
		run.Skipped++
		slog.Debug("discovery: meeting filtered out", "event_id", ev.ID, "reason", reason)
		return
	}

	if err := p.persist(ctx, candidate); err != nil {
		slog.Warn("discovery: persisting meeting failed", "event_id", ev.ID, "error", err)
		run.Errors++
		return
	}
	run.NewMeetings++
	run.Queued++
}

func (p *Poller) toCandidate(ev graph.CalendarEvent) (CandidateMeeting, error) {
	start, err := ev.Start.Time()
	if err != nil {
		return CandidateMeeting{}, err
	}
	end, err := ev.End.Time()
	if err != nil {
		return CandidateMeeting{}, err
	}

	participants := make([]CandidateParticipant, 0, len(ev.Attendees)+1)
	for _, a := range ev.Attendees {
		if a.EmailAddress.Address == "" {
			continue
		}
		participants = append(participants, CandidateParticipant{
			Email:       a.EmailAddress.Address,
			DisplayName: a.EmailAddress.Name,
			Role:        store.RoleAttendee,
		})
	}

	return CandidateMeeting{
		MeetingID:       ev.ID,
		Subject:         ev.Subject,
		OrganizerEmail:  ev.Organizer.EmailAddress.Address,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: int(end.Sub(start).Minutes()),
		HasActualEnd:    false,
		Participants:    participants,
	}, nil
}

// persist writes a new meeting plus its participants and enqueues the
// fetch/summarize/distribute chain — a calendar-discovered meeting is
// already known-complete by the time it reaches this point, so there's no
// need to wait for a separate notification the way the webhook path does.
func (p *Poller) persist(ctx context.Context, c CandidateMeeting) error {
	organizerEmail := c.OrganizerEmail
	organizerUserID, err := p.resolveOrganizerUserID(ctx, organizerEmail)
	if err != nil {
		slog.Debug("discovery: organizer directory lookup failed", "organizer_email", organizerEmail, "error", err)
	}

	meeting := &store.Meeting{
		MeetingID:          c.MeetingID,
		Subject:            c.Subject,
		StartTime:          c.StartTime,
		EndTime:            c.EndTime,
		DurationMinutes:    c.DurationMinutes,
		ParticipantCount:   len(c.Participants),
		Status:             store.MeetingQueued,
		DiscoverySource:    store.SourceSafetyNet,
		AllowTranscription: true,
		AllowRecording:     true,
	}
	if organizerEmail != "" {
		meeting.OrganizerEmail = &organizerEmail
	}
	if organizerUserID != "" {
		meeting.OrganizerUserID = &organizerUserID
	}

	id, err := p.meetings.Create(ctx, meeting)
	if err != nil {
		return err
	}

	pilots, err := p.discovery.PilotUserEmails(ctx)
	if err != nil {
		pilots = map[string]bool{}
	}
	for _, participant := range c.Participants {
		email := participant.Email
		row := &store.MeetingParticipant{
			MeetingID:       id,
			Email:           &email,
			DisplayName:     participant.DisplayName,
			Role:            participant.Role,
			ParticipantType: store.ParticipantInternal,
			Attended:        true,
			IsPilotUser:     pilots[strings.ToLower(email)],
		}
		if _, err := p.meetings.AddParticipant(ctx, row); err != nil {
			slog.Warn("discovery: adding participant failed", "meeting_id", id, "email", email, "error", err)
		}
	}

	fetchData, err := json.Marshal(map[string]string{})
	if err != nil {
		return err
	}
	_, _, _, err = p.jobs.EnqueueChain(ctx, queue.ChainInput{
		MeetingID: id,
		Priority:  1,
		FetchData: fetchData,
	})
	if errors.Is(err, queue.ErrChainExists) {
		return nil
	}
	return err
}

func (p *Poller) resolveOrganizerUserID(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", nil
	}
	user, err := p.graph.GetUser(ctx, email)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}
