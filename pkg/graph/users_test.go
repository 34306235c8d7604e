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

func TestGetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/alice@example.com", r.URL.Path)
		json.NewEncoder(w).Encode(User{ID: "u-1", Mail: "alice@example.com", DisplayName: "Alice"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	u, err := c.GetUser(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "Alice", u.DisplayName)
}

func TestGetUser_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"Resource not found"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetUser(context.Background(), "ghost@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Resource not found")
}

func TestGetUserPhoto_ReturnsBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u-1/photo/$value", r.URL.Path)
		w.Write([]byte("binary-photo-data"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	data, err := c.GetUserPhoto(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("binary-photo-data"), data)
}
