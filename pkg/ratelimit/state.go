// Package ratelimit tracks Pocket API rate limit usage. Pocket reports two
// independent budgets on every /v3 response: a per-user budget via the
// X-Limit-User-* headers and a per-consumer-key budget via X-Limit-Key-*.
// The tracker observes and reports; it never blocks or delays requests.
package ratelimit

import (
	"time"
)

// Thresholds for rate limit reporting.
const (
	// RemainingThresholdWarning triggers warning logs when the remaining
	// budget in either window falls below this value.
	RemainingThresholdWarning = 20

	// RemainingThresholdHealthy indicates normal operation. At or above
	// this value no warnings are emitted.
	RemainingThresholdHealthy = 50
)

// Window represents one rate limit budget (user or consumer key).
type Window struct {
	// Limit is the total calls allowed in the current window.
	// Extracted from the X-Limit-User-Limit / X-Limit-Key-Limit header.
	Limit int `json:"limit"`

	// Remaining is the number of calls left before Pocket starts
	// rejecting requests in this window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets. Calculated from the
	// X-Limit-*-Reset header (seconds until reset).
	ResetAt time.Time `json:"reset_at"`
}

// IsHealthy returns true when the window has a comfortable budget left.
func (w Window) IsHealthy() bool {
	return w.Remaining >= RemainingThresholdHealthy
}

// NeedsAttention returns true when the remaining budget is low enough that
// callers should consider slowing their sync cadence.
func (w Window) NeedsAttention() bool {
	return w.Remaining < RemainingThresholdWarning
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (w Window) TimeUntilReset() time.Duration {
	duration := time.Until(w.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// State is a snapshot of both Pocket rate limit windows.
type State struct {
	// User is the per-user budget.
	User Window `json:"user"`

	// Key is the per-consumer-key budget, shared by every user of the
	// registered application.
	Key Window `json:"key"`

	// LastUpdate is when headers were last observed.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if no headers have been observed within maxAge.
func (s State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}
