package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMail(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/shared@example.com/sendMail", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.SendMail(context.Background(), "shared@example.com", OutgoingMail{
		ToEmails: []string{"a@example.com", "b@example.com"},
		CCEmails: []string{"c@example.com"},
		Subject:  "Meeting summary",
		BodyHTML: "<p>hi</p>",
	})
	require.NoError(t, err)

	message := captured["message"].(map[string]any)
	assert.Equal(t, "Meeting summary", message["subject"])
	assert.Equal(t, "normal", message["importance"])
	to := message["toRecipients"].([]any)
	assert.Len(t, to, 2)
	assert.Contains(t, message, "ccRecipients")
	assert.Equal(t, false, captured["saveToSentItems"])
}

func TestSendMail_OmitsCCWhenEmpty(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.SendMail(context.Background(), "shared@example.com", OutgoingMail{
		ToEmails: []string{"a@example.com"},
		Subject:  "hi",
		BodyHTML: "<p>hi</p>",
	})
	require.NoError(t, err)

	message := captured["message"].(map[string]any)
	assert.NotContains(t, message, "ccRecipients")
}

func TestSendMail_DefaultsImportanceWhenSet(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.SendMail(context.Background(), "shared@example.com", OutgoingMail{
		ToEmails:   []string{"a@example.com"},
		Subject:    "urgent",
		BodyHTML:   "<p>hi</p>",
		Importance: "high",
	})
	require.NoError(t, err)

	message := captured["message"].(map[string]any)
	assert.Equal(t, "high", message["importance"])
}
