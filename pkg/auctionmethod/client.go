// Package auctionmethod provides a token-authenticated client for the
// AuctionMethod admin API.
package auctionmethod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

var (
	// ErrMissingCredentials is returned before any network call when the
	// domain, email, or password is unset.
	ErrMissingCredentials = eris.New("auctionmethod: credentials missing, set domain, email, and password")

	// ErrAuthFailed is returned when the auth endpoint rejects the credentials.
	ErrAuthFailed = eris.New("auctionmethod: auth failed, check email, password, and domain")

	// ErrTokenExpired is returned when a call hits a 401. The cached token is
	// invalidated; the next call re-authenticates. The failing call itself is
	// not retried.
	ErrTokenExpired = eris.New("auctionmethod: token expired")
)

// Client defines the AuctionMethod operations used by the push workflow.
type Client interface {
	// Authenticate eagerly acquires a token. Normal calls authenticate
	// lazily; this exists for the connectivity check.
	Authenticate(ctx context.Context) error
	Auctions(ctx context.Context, limit int) ([]Auction, error)
	Items(ctx context.Context, auctionID string) ([]Item, error)
	PatchItem(ctx context.Context, auctionID, itemID string, fields map[string]any) error
	InvalidateToken()
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second rate limit for AM API calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	domain   string
	email    string
	password string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter

	// token is session state with an explicit lifecycle: acquired lazily,
	// invalidated on any 401.
	mu    sync.Mutex
	token string
}

// NewClient creates an AuctionMethod client for https://<domain>/amapi.
func NewClient(domain, email, password string, opts ...Option) Client {
	c := &httpClient{
		domain:   domain,
		email:    email,
		password: password,
		baseURL:  fmt.Sprintf("https://%s/amapi", domain),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) InvalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

func (c *httpClient) Authenticate(ctx context.Context) error {
	_, err := c.getToken(ctx)
	return err
}

// getToken returns the cached token or acquires a new one.
func (c *httpClient) getToken(ctx context.Context) (string, error) {
	if c.domain == "" || c.email == "" || c.password == "" {
		return "", ErrMissingCredentials
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return "", eris.Wrap(err, "auctionmethod: marshal auth request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "auctionmethod: create auth request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "auctionmethod: auth request to %s failed, the server may be unreachable", c.baseURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", eris.Wrap(err, "auctionmethod: decode auth response")
	}
	if auth.Status != "success" || auth.Token == "" {
		return "", ErrAuthFailed
	}

	c.token = auth.Token
	return c.token, nil
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// do issues one authenticated request. A 401 invalidates the cached token
// and surfaces ErrTokenExpired; transient 5xx responses are retried with
// backoff before giving up.
func (c *httpClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "auctionmethod: rate limit")
	}

	token, err := c.getToken(ctx)
	if err != nil {
		return err
	}

	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return eris.Wrap(err, "auctionmethod: create request")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = eris.Wrapf(err, "auctionmethod: %s %s", method, path)
			if attempt < maxAttempts {
				if serr := sleepContext(ctx, backoff); serr != nil {
					return lastErr
				}
				backoff *= 2
				continue
			}
			return lastErr
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return eris.Wrap(readErr, "auctionmethod: read response body")
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			c.InvalidateToken()
			return ErrTokenExpired
		case resp.StatusCode >= 500 && attempt < maxAttempts:
			lastErr = eris.Errorf("auctionmethod: %s %s: status %d", method, path, resp.StatusCode)
			if serr := sleepContext(ctx, backoff); serr != nil {
				return lastErr
			}
			backoff *= 2
			continue
		case resp.StatusCode != http.StatusOK:
			return eris.Errorf("auctionmethod: %s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return eris.Wrapf(err, "auctionmethod: unmarshal %s response", path)
			}
		}
		return nil
	}

	return lastErr
}

func (c *httpClient) Auctions(ctx context.Context, limit int) ([]Auction, error) {
	if limit <= 0 {
		limit = 20
	}
	var out auctionsResponse
	path := fmt.Sprintf("/admin/auctions?offset=0&limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Auctions, nil
}

func (c *httpClient) Items(ctx context.Context, auctionID string) ([]Item, error) {
	var out itemsResponse
	path := fmt.Sprintf("/admin/items?auction=%s&limit=500&offset=0", auctionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *httpClient) PatchItem(ctx context.Context, auctionID, itemID string, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return eris.Wrap(err, "auctionmethod: marshal patch fields")
	}
	path := fmt.Sprintf("/admin/items/auction/%s/item/%s", auctionID, itemID)
	return c.do(ctx, http.MethodPatch, path, payload, nil)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
