package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSubscription(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/subscriptions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Subscription{ID: "sub-1", Resource: captured["resource"].(string)})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	sub, err := c.CreateSubscription(context.Background(), CallRecordsResource, "https://example.com/notify", "state-1", time.Now().Add(3*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, CallRecordsResource, captured["resource"])
	assert.Equal(t, "state-1", captured["clientState"])
	assert.Equal(t, "created", captured["changeType"])
}

func TestCreateTranscriptSubscription_OmitsLifecycleURLWhenShortExpiry(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(Subscription{ID: "sub-2"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.CreateTranscriptSubscription(context.Background(), "https://example.com/notify", "https://example.com/lifecycle", "state-1", time.Now().Add(30*time.Minute))
	require.NoError(t, err)

	_, hasLifecycle := captured["lifecycleNotificationUrl"]
	assert.False(t, hasLifecycle)
}

func TestCreateTranscriptSubscription_IncludesLifecycleURLPastThreshold(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(Subscription{ID: "sub-3"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.CreateTranscriptSubscription(context.Background(), "https://example.com/notify", "https://example.com/lifecycle", "state-1", time.Now().Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/lifecycle", captured["lifecycleNotificationUrl"])
}

func TestRenewSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/subscriptions/sub-1", r.URL.Path)
		json.NewEncoder(w).Encode(Subscription{ID: "sub-1"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	sub, err := c.RenewSubscription(context.Background(), "sub-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)
}

func TestDeleteSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/subscriptions/sub-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.DeleteSubscription(context.Background(), "sub-1")
	assert.NoError(t, err)
}

func TestListSubscriptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"value": []Subscription{{ID: "sub-1"}, {ID: "sub-2"}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	subs, err := c.ListSubscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "sub-1", subs[0].ID)
}
