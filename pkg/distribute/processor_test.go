package distribute

import (
	"testing"

	"github.com/codeready-toolchain/meetingcore/pkg/store"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestEmailSubject(t *testing.T) {
	meeting := &store.Meeting{Subject: "Sprint Planning"}
	assert.Equal(t, "Meeting Summary: Sprint Planning", emailSubject(meeting))
}

func TestChatBody_PrefersSummaryHTML(t *testing.T) {
	summary := &store.Summary{SummaryHTML: strPtr("<p>rich</p>"), SummaryText: "plain"}
	assert.Equal(t, "<p>rich</p>", chatBody(&store.Meeting{}, summary))
}

func TestChatBody_FallsBackToEscapedText(t *testing.T) {
	summary := &store.Summary{SummaryText: "<script>alert(1)</script>"}
	assert.Equal(t, "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>", chatBody(&store.Meeting{}, summary))
}

func TestEmailBody_IncludesOrganizerAndJoinURL(t *testing.T) {
	meeting := &store.Meeting{
		Subject:       "Weekly Sync",
		OrganizerName: strPtr("Alice Smith"),
		JoinURL:       strPtr("https://teams.microsoft.com/meeting/abc"),
	}
	summary := &store.Summary{SummaryText: "Discussed roadmap."}

	body := emailBody(meeting, summary)
	assert.Contains(t, body, "<h2>Weekly Sync</h2>")
	assert.Contains(t, body, "Organizer: Alice Smith")
	assert.Contains(t, body, "Discussed roadmap.")
	assert.Contains(t, body, `href="https://teams.microsoft.com/meeting/abc"`)
}

func TestEmailBody_OmitsOrganizerAndJoinURLWhenAbsent(t *testing.T) {
	meeting := &store.Meeting{Subject: "Ad-hoc"}
	summary := &store.Summary{SummaryText: "Nothing much."}

	body := emailBody(meeting, summary)
	assert.NotContains(t, body, "Organizer:")
	assert.NotContains(t, body, "<a href=")
}

func TestBuildMail(t *testing.T) {
	mail := buildMail([]string{"a@example.com", "b@example.com"}, "Subject", "<p>body</p>")
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, mail.ToEmails)
	assert.Equal(t, "Subject", mail.Subject)
	assert.Equal(t, "<p>body</p>", mail.BodyHTML)
}
