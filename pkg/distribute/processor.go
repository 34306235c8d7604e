package distribute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/meetingcore/pkg/errs"
	"github.com/codeready-toolchain/meetingcore/pkg/graph"
	"github.com/codeready-toolchain/meetingcore/pkg/queue"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
)

// jobInput is the distribute job_type payload. resend_target/send_to_email/
// bypass_opt_in let an operator re-trigger distribution for one meeting
// without re-running the whole chain.
type jobInput struct {
	MeetingID      int64  `json:"meeting_id"`
	ResendTarget   string `json:"resend_target,omitempty"` // "organizer", "subscribers", "both"
	SendToEmail    string `json:"send_to_email,omitempty"`
	BypassOptIn    bool   `json:"bypass_opt_in,omitempty"`
}

type jobOutput struct {
	Success              bool   `json:"success"`
	EmailSent            bool   `json:"email_sent"`
	EmailRecipientCount  int    `json:"email_recipient_count"`
	ChatSent             bool   `json:"chat_sent"`
	ChatMessageID        string `json:"chat_message_id,omitempty"`
	DistributionCount    int    `json:"distribution_count"`
	Message              string `json:"message"`
}

var _ queue.Processor = (*Processor)(nil)

// Process implements pkg/queue.Processor.
func (p *Processor) Process(ctx context.Context, job *queue.Job) (json.RawMessage, error) {
	var in jobInput
	if err := json.Unmarshal(job.InputData, &in); err != nil {
		return nil, errs.NewNonRetryable("decoding distribute input", err)
	}
	if in.MeetingID == 0 {
		return nil, errs.NewNonRetryable("distribute requires meeting_id", nil)
	}

	meeting, err := p.meetings.GetByID(ctx, in.MeetingID)
	if err != nil {
		return nil, errs.NewRetryable("loading meeting", err)
	}
	if meeting == nil {
		return nil, errs.NewNonRetryable("meeting not found", fmt.Errorf("meeting %d", in.MeetingID))
	}

	summary, err := p.summaries.Current(ctx, in.MeetingID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, errs.NewRetryable("loading summary", err)
	}
	if summary == nil {
		return nil, errs.NewRetryable("summary not yet available", nil)
	}

	// distribution_enabled is the organizer's "disable for everyone"
	// toggle, checked first and unconditionally: a meeting set to
	// distribution_enabled=false after its chain was already queued still
	// runs this job (queue invariants don't re-check meeting flags before
	// dependency release) but sends on no channel at all.
	if !meeting.DistributionEnabled {
		if err := p.meetings.MarkDistributed(ctx, in.MeetingID); err != nil {
			return nil, errs.NewRetryable("marking meeting distributed", err)
		}
		out, err := json.Marshal(jobOutput{
			Success: true,
			Message: "distribution skipped: distribution_enabled is false for this meeting",
		})
		if err != nil {
			return nil, errs.NewNonRetryable("encoding distribute output", err)
		}
		return out, nil
	}

	recipients, err := p.recipients(ctx, meeting, in)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		slog.Info("distribute: no recipients after filtering", "meeting_id", in.MeetingID)
	}

	var chatSent bool
	var chatMessageID string
	var distributionCount int

	// Chat-first: the meeting's own Teams chat is the lowest-friction
	// channel and doesn't depend on any per-recipient opt-in.
	if p.cfg.TeamsChatEnabled && meeting.ChatID != nil && *meeting.ChatID != "" {
		content := chatBody(meeting, summary)
		msgID, postErr := p.graph.PostChatMessage(ctx, *meeting.ChatID, content)
		if postErr != nil {
			slog.Warn("distribute: chat post failed", "meeting_id", in.MeetingID, "error", postErr)
			p.record(ctx, job.ID, in.MeetingID, store.ChannelChat, "chat:"+*meeting.ChatID, false, postErr)
		} else {
			chatSent = true
			chatMessageID = msgID
			p.record(ctx, job.ID, in.MeetingID, store.ChannelChat, "chat:"+*meeting.ChatID, true, nil)
			distributionCount++
		}
	}

	var emailSent bool
	if p.cfg.EmailEnabled && len(recipients) > 0 {
		subject := emailSubject(meeting)
		body := emailBody(meeting, summary)
		sendErr := p.graph.SendMail(ctx, p.cfg.EmailFromUserID, buildMail(recipients, subject, body))
		if sendErr != nil {
			slog.Warn("distribute: email send failed", "meeting_id", in.MeetingID, "error", sendErr)
			for _, r := range recipients {
				p.record(ctx, job.ID, in.MeetingID, store.ChannelEmail, r, false, sendErr)
			}
		} else {
			emailSent = true
			for _, r := range recipients {
				p.record(ctx, job.ID, in.MeetingID, store.ChannelEmail, r, true, nil)
				distributionCount++
			}
		}
	}

	success := emailSent || chatSent
	if success {
		if err := p.meetings.MarkDistributed(ctx, in.MeetingID); err != nil {
			return nil, errs.NewRetryable("marking meeting distributed", err)
		}
		if err := p.meetings.SetStatus(ctx, in.MeetingID, store.MeetingCompleted, nil); err != nil {
			return nil, errs.NewRetryable("updating meeting status", err)
		}
	}

	message := "distribution failed for all channels"
	if success {
		var parts []string
		if emailSent {
			parts = append(parts, fmt.Sprintf("email to %d recipients", len(recipients)))
		}
		if chatSent {
			parts = append(parts, "Teams chat posted")
		}
		message = "distribution completed: " + strings.Join(parts, ", ")
	}

	out, err := json.Marshal(jobOutput{
		Success:             success,
		EmailSent:           emailSent,
		EmailRecipientCount: len(recipients),
		ChatSent:            chatSent,
		ChatMessageID:       chatMessageID,
		DistributionCount:   distributionCount,
		Message:             message,
	})
	if err != nil {
		return nil, errs.NewNonRetryable("encoding distribute output", err)
	}
	return out, nil
}

// recipients resolves the final recipient list: an explicit send_to_email
// bypasses participant lookup and preference filtering entirely; otherwise
// attendees are narrowed by resend_target and then by opt-in status unless
// bypass_opt_in is set.
func (p *Processor) recipients(ctx context.Context, meeting *store.Meeting, in jobInput) ([]string, error) {
	if in.SendToEmail != "" {
		return []string{in.SendToEmail}, nil
	}

	participants, err := p.meetings.ParticipantsByMeeting(ctx, in.MeetingID)
	if err != nil {
		return nil, errs.NewRetryable("loading participants", err)
	}

	var emails []string
	for _, part := range participants {
		if part.IsCandidateRecipient() {
			emails = append(emails, *part.Email)
		}
	}

	organizerEmail := ""
	if meeting.OrganizerEmail != nil {
		organizerEmail = *meeting.OrganizerEmail
	}

	switch in.ResendTarget {
	case "organizer":
		if organizerEmail == "" {
			return nil, nil
		}
		emails = []string{organizerEmail}
	case "subscribers":
		filtered := emails[:0:0]
		for _, e := range emails {
			if e != organizerEmail {
				filtered = append(filtered, e)
			}
		}
		emails = filtered
	}

	if in.BypassOptIn {
		return emails, nil
	}

	filtered := make([]string, 0, len(emails))
	for _, e := range emails {
		if p.prefs.IsOptedInForMeeting(ctx, in.MeetingID, e) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func (p *Processor) record(ctx context.Context, jobID, meetingID int64, channel, recipient string, success bool, sendErr error) {
	attempt := &store.DistributionAttempt{
		JobID:     jobID,
		MeetingID: meetingID,
		Channel:   channel,
		Recipient: &recipient,
		Success:   success,
	}
	if sendErr != nil {
		msg := sendErr.Error()
		attempt.ErrorMessage = &msg
	}
	if err := p.distribution.RecordAttempt(ctx, attempt); err != nil {
		slog.Warn("distribute: recording attempt failed", "meeting_id", meetingID, "channel", channel, "error", err)
	}
}

func emailSubject(meeting *store.Meeting) string {
	return fmt.Sprintf("Meeting Summary: %s", meeting.Subject)
}

func chatBody(meeting *store.Meeting, summary *store.Summary) string {
	if summary.SummaryHTML != nil && *summary.SummaryHTML != "" {
		return *summary.SummaryHTML
	}
	return "<p>" + html.EscapeString(summary.SummaryText) + "</p>"
}

func emailBody(meeting *store.Meeting, summary *store.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(meeting.Subject))
	if meeting.OrganizerName != nil {
		fmt.Fprintf(&b, "<p>Organizer: %s</p>", html.EscapeString(*meeting.OrganizerName))
	}
	b.WriteString(chatBody(meeting, summary))
	if meeting.JoinURL != nil && *meeting.JoinURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Join meeting recording</a></p>`, html.EscapeString(*meeting.JoinURL))
	}
	return b.String()
}

func buildMail(recipients []string, subject, bodyHTML string) graph.OutgoingMail {
	return graph.OutgoingMail{ToEmails: recipients, Subject: subject, BodyHTML: bodyHTML}
}
