package graph

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// tokenRefreshMargin is how long before actual expiry a cached token is
// treated as stale, so refresh happens proactively rather than on the
// first request that hits an expired token.
const tokenRefreshMargin = 5 * time.Minute

// tokenCache serialises token acquisition so that two callers racing past
// expiry at once produce exactly one token request.
type tokenCache struct {
	source oauth2.TokenSource
	group  singleflight.Group

	mu    sync.RWMutex
	token *oauth2.Token
}

func newTokenCache(source oauth2.TokenSource) *tokenCache {
	return &tokenCache{source: source}
}

// Get returns a currently-valid bearer token, refreshing if the cached one
// is absent or within the refresh margin of expiry.
func (c *tokenCache) Get() (string, error) {
	if tok := c.cached(); tok != "" {
		return tok, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		if tok := c.cached(); tok != "" {
			return tok, nil
		}
		fresh, err := c.source.Token()
		if err != nil {
			return "", fmt.Errorf("acquiring access token: %w", err)
		}
		c.mu.Lock()
		c.token = fresh
		c.mu.Unlock()
		return fresh.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token, forcing the next Get to acquire a
// fresh one. Called after a 401 response.
func (c *tokenCache) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

func (c *tokenCache) cached() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return ""
	}
	if time.Now().Add(tokenRefreshMargin).After(c.token.Expiry) {
		return ""
	}
	return c.token.AccessToken
}
