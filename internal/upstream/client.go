// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

// Package upstream is the HTTP client shared by the catalog and identity
// adapters: bearer token, per-call timeout, circuit breaker and metrics.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/metrics"
)

var (
	// ErrNotFound is returned for 404 responses. It never trips the breaker.
	ErrNotFound = errors.New("upstream resource not found")

	// ErrUnavailable wraps transport failures, 5xx responses, undecodable
	// bodies and breaker rejections.
	ErrUnavailable = errors.New("upstream unavailable")
)

// maxBodySize caps upstream response bodies.
const maxBodySize = 1 << 20

// Config tunes a Client.
type Config struct {
	Name             string // metrics and breaker label, e.g. "catalog"
	BaseURL          string
	Token            string
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Client performs GET requests against one upstream service.
type Client struct {
	name       string
	baseURL    string
	token      string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[[]byte]
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	name := cfg.Name + "-api"

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.SetCircuitBreakerState(name, from.String(), to.String(), int(to))
		},
	}

	return &Client{
		name:    cfg.Name,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cb: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// Name returns the service label.
func (c *Client) Name() string {
	return c.name
}

// State reports the breaker state.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

// GetJSON fetches path (joined to the base URL, segments escaped by the
// caller) and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	start := time.Now()
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.get(ctx, path)
	})

	recorded := err
	if errors.Is(err, ErrNotFound) {
		recorded = nil
	}
	metrics.RecordUpstreamRequest(c.name, time.Since(start), recorded)

	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound), errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, ErrUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, c.name, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: decode %s: %w", ErrUnavailable, c.name, path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", c.name, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s returned status %d: %s", ErrUnavailable, c.name, resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

// Path joins escaped segments into a request path.
func Path(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
