package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldProcess_NotYetCompleteScheduledBuffer(t *testing.T) {
	f := &Filter{cfg: Config{MinimumMeetingDurationMinutes: 5}}
	m := CandidateMeeting{
		EndTime:         time.Now().UTC().Add(-5 * time.Minute),
		DurationMinutes: 30,
	}
	ok, reason := f.ShouldProcess(context.Background(), m)
	assert.False(t, ok)
	assert.Equal(t, "meeting not yet past its completion buffer", reason)
}

func TestShouldProcess_CompletedPastScheduledBuffer(t *testing.T) {
	f := &Filter{cfg: Config{MinimumMeetingDurationMinutes: 5}}
	m := CandidateMeeting{
		EndTime:         time.Now().UTC().Add(-20 * time.Minute),
		DurationMinutes: 3,
	}
	ok, reason := f.ShouldProcess(context.Background(), m)
	assert.False(t, ok)
	assert.Equal(t, "duration too short", reason)
}

func TestShouldProcess_ActualEndUsesShorterBuffer(t *testing.T) {
	f := &Filter{cfg: Config{MinimumMeetingDurationMinutes: 5}}
	m := CandidateMeeting{
		EndTime:         time.Now().UTC().Add(-10 * time.Minute),
		DurationMinutes: 30,
		HasActualEnd:    true,
	}
	// past the 5-minute actual buffer but would still be inside the
	// 15-minute scheduled buffer, proving HasActualEnd picks the shorter one
	ok, _ := f.isCompleted(m)
	assert.True(t, ok)
}

func TestShouldProcess_NoEndTime(t *testing.T) {
	f := &Filter{cfg: Config{}}
	ok, reason := f.ShouldProcess(context.Background(), CandidateMeeting{})
	assert.False(t, ok)
	assert.Equal(t, "no end time available", reason)
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "contoso.com", domainOf("Alice@Contoso.com"))
	assert.Equal(t, "", domainOf("not-an-email"))
}
