package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/janekbaraniewski/routerspend/internal/cache"
	"github.com/janekbaraniewski/routerspend/internal/config"
	"github.com/janekbaraniewski/routerspend/internal/core"
	"github.com/janekbaraniewski/routerspend/internal/session"
)

// StatusError is a non-success response from the transaction endpoint. The
// fetcher never retries; callers surface the message and let the user try
// again.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return "authentication required (HTTP 401) – sign in to openrouter.ai in your browser"
	case e.StatusCode == http.StatusForbidden:
		return "access forbidden (HTTP 403)"
	case e.StatusCode == http.StatusNotFound:
		return "transaction endpoint not found (HTTP 404)"
	case e.StatusCode == http.StatusTooManyRequests:
		return "rate limited (HTTP 429) – wait a little and retry"
	case e.StatusCode >= 500:
		return fmt.Sprintf("server error (HTTP %d)", e.StatusCode)
	default:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
}

// Client fetches raw transaction payloads for a date range, one request per
// resolved window, cache first.
type Client struct {
	http    *http.Client
	store   *cache.Store
	cookies session.CookieSource
	baseURL string
	domain  string
	log     *logrus.Logger
}

func New(cfg config.Config, store *cache.Store, cookies session.CookieSource, log *logrus.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		store:   store,
		cookies: cookies,
		baseURL: cfg.Endpoint.BaseURL,
		domain:  cfg.Endpoint.CookieDomain,
		log:     log,
	}
}

// Fetch returns the raw payload for the range, from cache when a stored
// entry covers it, otherwise from one authenticated GET against the
// endpoint. Successful responses are cached under the requested range.
func (c *Client) Fetch(ctx context.Context, r core.DateRange) (string, error) {
	if payload, ok := c.store.Get(ctx, r); ok {
		c.log.WithFields(logrus.Fields{
			"range": r.Key(),
			"bytes": len(payload),
		}).Debug("served from cache")
		return payload, nil
	}
	return c.fetchRemote(ctx, r)
}

// Refresh drops any exact cache entry for the range and fetches fresh data.
func (c *Client) Refresh(ctx context.Context, r core.DateRange) (string, error) {
	if err := c.store.Clear(ctx, r); err != nil {
		c.log.WithError(err).Warn("clearing cache entry before refresh")
	}
	return c.fetchRemote(ctx, r)
}

func (c *Client) fetchRemote(ctx context.Context, r core.DateRange) (string, error) {
	months := r.WindowMonths()
	url := fmt.Sprintf("%s?window=%dmo", c.baseURL, months)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/json")

	cookies, err := c.cookies.Cookies(ctx, c.domain)
	if err != nil {
		// Without cookies the endpoint answers 401, which carries a clearer
		// message than failing here.
		c.log.WithError(err).Warn("no browser session cookies available")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	c.log.WithFields(logrus.Fields{
		"range":  r.Key(),
		"window": fmt.Sprintf("%dmo", months),
	}).Debug("fetching transaction activity")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching activity for %s: %w", r.Key(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading activity response: %w", err)
	}

	payload := string(body)
	// Cache key is the requested range, not the coarser window parameter.
	c.store.Set(ctx, r, payload)
	return payload, nil
}
