package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleNotification_ValidationHandshake(t *testing.T) {
	h := &Handler{}
	raw := json.RawMessage(`{"subscriptionId":"sub-1"}`)
	results := h.HandleNotification(context.Background(), raw)
	require.Len(t, results, 1)
	assert.Equal(t, StatusValidated, results[0].Status)
}

func TestHandleNotification_InvalidJSON(t *testing.T) {
	h := &Handler{}
	results := h.HandleNotification(context.Background(), json.RawMessage(`not json`))
	require.Len(t, results, 1)
	assert.Equal(t, StatusError, results[0].Status)
}

func TestHandleNotification_UnhandledType(t *testing.T) {
	h := &Handler{}
	raw := json.RawMessage(`{"changeType":"updated","resource":"/communications/callRecords/abc"}`)
	results := h.HandleNotification(context.Background(), raw)
	require.Len(t, results, 1)
	assert.Equal(t, StatusIgnored, results[0].Status)
}

func TestHandleNotification_BatchDispatchesEach(t *testing.T) {
	h := &Handler{}
	raw := json.RawMessage(`{"value":[{"subscriptionId":"sub-1"},{"subscriptionId":"sub-2"}]}`)
	results := h.HandleNotification(context.Background(), raw)
	require.Len(t, results, 2)
	assert.Equal(t, StatusValidated, results[0].Status)
	assert.Equal(t, StatusValidated, results[1].Status)
}

func TestCallRecordIDFrom_PrefersResourceDataID(t *testing.T) {
	n := wireNotification{
		Resource:     "/communications/callRecords/abc",
		ResourceData: json.RawMessage(`{"id":"from-resource-data"}`),
	}
	assert.Equal(t, "from-resource-data", callRecordIDFrom(n))
}

func TestCallRecordIDFrom_FallsBackToLastPathSegment(t *testing.T) {
	n := wireNotification{Resource: "/communications/callRecords/abc-123"}
	assert.Equal(t, "abc-123", callRecordIDFrom(n))
}

func TestLastPathSegment(t *testing.T) {
	assert.Equal(t, "abc", lastPathSegment("/communications/callRecords/abc"))
	assert.Equal(t, "abc", lastPathSegment("abc"))
}

func TestTranscriptResourceRe_MatchesParenthesizedForm(t *testing.T) {
	resource := "users('organizer-id')/onlineMeetings('meeting-id')/transcripts('transcript-id')"
	m := transcriptResourceRe.FindStringSubmatch(resource)
	require.NotNil(t, m)
	assert.Equal(t, "meeting-id", m[1])
	assert.Equal(t, "transcript-id", m[2])

	orgM := userInResourceRe.FindStringSubmatch(resource)
	require.NotNil(t, orgM)
	assert.Equal(t, "organizer-id", orgM[1])
}
