package ingest

import (
	"testing"

	"github.com/codeready-toolchain/meetingcore/pkg/store"
	"github.com/stretchr/testify/assert"
)

func TestFormatDisplayName_PSTNWithPhone(t *testing.T) {
	p := Participant{Type: store.ParticipantPSTN, Name: "Phone Participant", Phone: "+15551234567"}
	assert.Equal(t, "+15551234567", formatDisplayName(p))
}

func TestFormatDisplayName_PSTNWithRealName(t *testing.T) {
	p := Participant{Type: store.ParticipantPSTN, Name: "Alice Smith", Phone: "+15551234567"}
	assert.Equal(t, "Alice Smith (+15551234567)", formatDisplayName(p))
}

func TestFormatDisplayName_PSTNNoPhone(t *testing.T) {
	p := Participant{Type: store.ParticipantPSTN, Name: "Someone"}
	assert.Equal(t, "Someone", formatDisplayName(p))
}

func TestFormatDisplayName_GuestGetsExternalSuffix(t *testing.T) {
	p := Participant{Type: store.ParticipantGuest, Name: "Bob Jones"}
	assert.Equal(t, "Bob Jones (External)", formatDisplayName(p))
}

func TestFormatDisplayName_GuestAlreadySuffixed(t *testing.T) {
	p := Participant{Type: store.ParticipantGuest, Name: "Bob Jones (External)"}
	assert.Equal(t, "Bob Jones (External)", formatDisplayName(p))
}

func TestFormatDisplayName_Internal(t *testing.T) {
	p := Participant{Type: store.ParticipantInternal, Name: "Carol White"}
	assert.Equal(t, "Carol White", formatDisplayName(p))
}

func TestFormatDisplayName_EmptyNameFallsBackToUnknown(t *testing.T) {
	p := Participant{Type: store.ParticipantInternal}
	assert.Equal(t, "Unknown", formatDisplayName(p))
}

func TestEmails_FiltersOutEmptyAddresses(t *testing.T) {
	participants := []Participant{
		{Email: "a@example.com"},
		{Email: ""},
		{Email: "b@example.com"},
	}
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, emails(participants))
}

func TestEmails_EmptyInput(t *testing.T) {
	assert.Empty(t, emails(nil))
}
