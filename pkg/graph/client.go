// Package graph is a thin REST client over the subset of Microsoft Graph
// this module consumes: subscriptions, call records, transcripts, users,
// calendar views, sendMail, and chat posting. Graph itself stays out of
// this module's scope; this is the minimal seam the rest of the system
// calls through.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/codeready-toolchain/meetingcore/pkg/errs"
)

const (
	baseURLV1   = "https://graph.microsoft.com/v1.0"
	baseURLBeta = "https://graph.microsoft.com/beta"
	graphScope  = "https://graph.microsoft.com/.default"

	defaultMaxRetries = 3
	requestTimeout    = 30 * time.Second
	defaultRetryAfter = 60 * time.Second
)

// Client is a thin, authenticated REST client for Microsoft Graph.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     *tokenCache
}

// NewClient builds a Client using the client-credentials (application
// permission) flow.
func NewClient(cfg Config) *Client {
	ccCfg := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{graphScope},
	}

	baseURL := baseURLV1
	if cfg.UseBeta {
		baseURL = baseURLBeta
	}

	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		tokens:     newTokenCache(ccCfg.TokenSource(context.Background())),
	}
}

// do executes one authenticated request, retrying on 429 (honoring
// Retry-After), 5xx (exponential backoff capped at 30s), and 401 (forced
// token refresh, retried once) — mirroring the original client's retry
// ladder exactly.
func (c *Client) do(ctx context.Context, method, rawURL string, query url.Values, body any) ([]byte, error) {
	fullURL := c.resolveURL(rawURL, query)

	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errs.NewNonRetryable("encoding request body", err)
		}
		bodyBytes = b
	}

	var lastErr error
	refreshed := false
	for attempt := 0; attempt <= defaultMaxRetries; attempt++ {
		token, err := c.tokens.Get()
		if err != nil {
			return nil, errs.NewRetryable("acquiring graph access token", err)
		}

		var payload io.Reader
		if bodyBytes != nil {
			payload = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, payload)
		if err != nil {
			return nil, errs.NewNonRetryable("building graph request", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < defaultMaxRetries {
				slog.Warn("graph request failed, retrying", "method", method, "url", fullURL, "attempt", attempt, "error", err)
				continue
			}
			return nil, errs.NewRetryable("graph request transport error", err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := defaultRetryAfter
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					wait = time.Duration(secs) * time.Second
				}
			}
			if attempt >= defaultMaxRetries {
				return nil, errs.NewRetryable("graph rate limit exceeded after retries", fmt.Errorf("429 after %d attempts", attempt))
			}
			slog.Warn("graph rate limited", "wait", wait, "attempt", attempt)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode == http.StatusUnauthorized:
			if refreshed || attempt >= defaultMaxRetries {
				return nil, errs.NewNonRetryable("graph authentication failed after retries", fmt.Errorf("401 after %d attempts", attempt))
			}
			slog.Warn("graph token rejected, refreshing and retrying", "attempt", attempt)
			c.tokens.Invalidate()
			refreshed = true
			continue

		case resp.StatusCode >= 500:
			if attempt >= defaultMaxRetries {
				return nil, errs.NewRetryable("graph server error after retries", fmt.Errorf("%d: %s", resp.StatusCode, string(respBody)))
			}
			wait := time.Duration(1<<uint(attempt)) * time.Second
			if wait > 30*time.Second {
				wait = 30 * time.Second
			}
			slog.Warn("graph server error, backing off", "status", resp.StatusCode, "wait", wait, "attempt", attempt)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode >= 400:
			return nil, errs.NewNonRetryable("graph request rejected", graphAPIError(resp.StatusCode, respBody))

		default:
			return respBody, nil
		}
	}

	return nil, errs.NewRetryable("graph request failed after retries", lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func graphAPIError(status int, body []byte) error {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Errorf("%d: %s", status, parsed.Error.Message)
	}
	return fmt.Errorf("%d: %s", status, string(body))
}

func (c *Client) resolveURL(endpoint string, query url.Values) string {
	full := endpoint
	if len(endpoint) < 4 || endpoint[:4] != "http" {
		if len(endpoint) > 0 && endpoint[0] == '/' {
			full = c.baseURL + endpoint
		} else {
			full = c.baseURL + "/" + endpoint
		}
	}
	if len(query) > 0 {
		sep := "?"
		if bytes.ContainsRune([]byte(full), '?') {
			sep = "&"
		}
		full += sep + query.Encode()
	}
	return full
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	body, err := c.do(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errs.NewNonRetryable("decoding graph response", err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, endpoint string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, nil)
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	respBody, err := c.do(ctx, http.MethodPost, endpoint, nil, body)
	if err != nil {
		return err
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errs.NewNonRetryable("decoding graph response", err)
	}
	return nil
}

func (c *Client) patch(ctx context.Context, endpoint string, body, out any) error {
	respBody, err := c.do(ctx, http.MethodPatch, endpoint, nil, body)
	if err != nil {
		return err
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func (c *Client) delete(ctx context.Context, endpoint string) error {
	_, err := c.do(ctx, http.MethodDelete, endpoint, nil, nil)
	return err
}

// getPaged follows @odata.nextLink until exhausted, accumulating the
// "value" array of each page into a single slice of raw messages.
func (c *Client) getPaged(ctx context.Context, endpoint string, query url.Values) ([]json.RawMessage, error) {
	var all []json.RawMessage
	next := endpoint
	firstPage := true
	pages := 0

	for next != "" {
		var page struct {
			Value      []json.RawMessage `json:"value"`
			NextLink   string            `json:"@odata.nextLink"`
		}
		var q url.Values
		if firstPage {
			q = query
		}
		if err := c.get(ctx, next, q, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Value...)
		pages++
		slog.Debug("graph page fetched", "endpoint", endpoint, "page", pages, "items", len(page.Value), "total", len(all))

		next = page.NextLink
		firstPage = false
	}
	return all, nil
}
