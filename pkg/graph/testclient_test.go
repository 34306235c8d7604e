package graph

import (
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// newTestClient builds a Client whose baseURL points at srv and whose
// token source returns a static, never-expiring token — so tests exercise
// request construction and the retry ladder without a real OAuth server.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: "test-token",
		Expiry:      time.Now().Add(time.Hour),
	})
	return &Client{
		httpClient: srv.Client(),
		baseURL:    srv.URL,
		tokens:     newTokenCache(source),
	}
}
