// Package api provides the low-level Pocket HTTP transport: a single
// form-encoded POST capability that both the authorization flow and the
// item retrieval flow depend on.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deanhewson/obsidian-pocket/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BaseURL is the Pocket API root.
const BaseURL = "https://getpocket.com"

// Prometheus metrics for Pocket API calls.
var (
	pocketRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pocket_requests_total",
		Help: "Total Pocket API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	pocketRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pocket_request_duration_seconds",
		Help:    "Pocket API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})
)

// Transport is the single capability the auth and retrieval flows use to
// talk to Pocket: post form fields, get the raw response body back. It is
// the seam for substituting a fake transport in tests.
type Transport interface {
	PostForm(ctx context.Context, endpoint string, fields url.Values) ([]byte, error)
}

// Client is the HTTP implementation of Transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tracker    *ratelimit.Tracker
	logger     zerolog.Logger
}

// Config holds the transport configuration.
type Config struct {
	// BaseURL overrides the Pocket API root. Empty uses BaseURL.
	BaseURL string

	// HTTPClient overrides the default HTTP client (30s timeout).
	HTTPClient *http.Client

	// Tracker receives rate limit headers from every response. Optional.
	Tracker *ratelimit.Tracker
}

// NewClient creates a new Pocket transport.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    cfg.BaseURL,
		tracker:    cfg.Tracker,
		logger:     log.With().Str("component", "pocket-api").Logger(),
	}
}

// PostForm issues an application/x-www-form-urlencoded POST to the given
// endpoint and returns the raw response body. Non-2xx statuses become an
// *APIError carrying Pocket's X-Error headers. No retry is performed here;
// retry policy belongs to the caller.
func (c *Client) PostForm(ctx context.Context, endpoint string, fields url.Values) ([]byte, error) {
	start := time.Now()
	defer func() {
		pocketRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pocketRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Pocket request failed")
		return nil, fmt.Errorf("pocket %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if c.tracker != nil {
		if err := c.tracker.UpdateFromHeaders(resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		pocketRequestsTotal.WithLabelValues(endpoint, "read_error").Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	pocketRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  resp.Header.Get("X-Error-Code"),
			Message:    resp.Header.Get("X-Error"),
		}
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("x_error", apiErr.Message).
			Msg("Pocket API error")
		return nil, apiErr
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Pocket request complete")

	return body, nil
}
