package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	pocketUserRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pocket_user_limit_remaining",
		Help: "Calls remaining in the current Pocket per-user rate limit window",
	})

	pocketKeyRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pocket_key_limit_remaining",
		Help: "Calls remaining in the current Pocket per-consumer-key rate limit window",
	})

	pocketLimitWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pocket_rate_limit_warnings_total",
		Help: "Total number of low rate limit budget warnings by window",
	}, []string{"window"})
)

// Tracker monitors Pocket rate limit headers across requests.
// It is safe for concurrent use.
type Tracker struct {
	logger zerolog.Logger

	mu    sync.Mutex
	state State
}

// NewTracker creates a new rate limit tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// State returns a snapshot of the last observed rate limit state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// UpdateFromHeaders parses Pocket X-Limit-* headers and updates the tracked
// state. Responses without rate limit headers leave the state untouched.
func (t *Tracker) UpdateFromHeaders(headers http.Header) error {
	now := time.Now()

	user, userPresent, err := parseWindow(headers, "X-Limit-User", now)
	if err != nil {
		return fmt.Errorf("parse user rate limit headers: %w", err)
	}

	key, keyPresent, err := parseWindow(headers, "X-Limit-Key", now)
	if err != nil {
		return fmt.Errorf("parse key rate limit headers: %w", err)
	}

	if !userPresent && !keyPresent {
		return nil
	}

	t.mu.Lock()
	if userPresent {
		t.state.User = user
	}
	if keyPresent {
		t.state.Key = key
	}
	t.state.LastUpdate = now
	state := t.state
	t.mu.Unlock()

	if userPresent {
		pocketUserRemaining.Set(float64(user.Remaining))
	}
	if keyPresent {
		pocketKeyRemaining.Set(float64(key.Remaining))
	}

	t.warnIfLow("user", state.User, userPresent)
	t.warnIfLow("key", state.Key, keyPresent)

	return nil
}

// warnIfLow logs when a window's remaining budget drops below the warning
// threshold.
func (t *Tracker) warnIfLow(window string, w Window, present bool) {
	if !present || !w.NeedsAttention() {
		return
	}

	pocketLimitWarningsTotal.WithLabelValues(window).Inc()
	t.logger.Warn().
		Str("window", window).
		Int("remaining", w.Remaining).
		Int("limit", w.Limit).
		Time("reset_at", w.ResetAt).
		Msg("Pocket rate limit budget low")
}

// parseWindow extracts one rate limit window from headers with the given
// prefix. Returns present=false when the Remaining header is absent.
func parseWindow(headers http.Header, prefix string, now time.Time) (Window, bool, error) {
	remainStr := headers.Get(prefix + "-Remaining")
	if remainStr == "" {
		return Window{}, false, nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return Window{}, false, fmt.Errorf("parse %s-Remaining: %w", prefix, err)
	}

	window := Window{Remaining: remaining}

	if limitStr := headers.Get(prefix + "-Limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return Window{}, false, fmt.Errorf("parse %s-Limit: %w", prefix, err)
		}
		window.Limit = limit
	}

	if resetStr := headers.Get(prefix + "-Reset"); resetStr != "" {
		resetSeconds, err := strconv.Atoi(resetStr)
		if err != nil {
			return Window{}, false, fmt.Errorf("parse %s-Reset: %w", prefix, err)
		}
		window.ResetAt = now.Add(time.Duration(resetSeconds) * time.Second)
	}

	return window, true, nil
}
