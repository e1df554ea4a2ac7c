package ratelimit

import (
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestUpdateFromHeaders(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	headers := http.Header{}
	headers.Set("X-Limit-User-Limit", "320")
	headers.Set("X-Limit-User-Remaining", "287")
	headers.Set("X-Limit-User-Reset", "1800")
	headers.Set("X-Limit-Key-Limit", "10000")
	headers.Set("X-Limit-Key-Remaining", "9950")
	headers.Set("X-Limit-Key-Reset", "3600")

	if err := tracker.UpdateFromHeaders(headers); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}

	state := tracker.State()
	if state.User.Limit != 320 || state.User.Remaining != 287 {
		t.Errorf("User window = %+v, want limit 320 remaining 287", state.User)
	}
	if state.Key.Limit != 10000 || state.Key.Remaining != 9950 {
		t.Errorf("Key window = %+v, want limit 10000 remaining 9950", state.Key)
	}
	if state.User.TimeUntilReset() <= 0 {
		t.Error("User reset time not set from X-Limit-User-Reset")
	}
	if state.LastUpdate.IsZero() {
		t.Error("LastUpdate not set")
	}
}

func TestUpdateFromHeaders_AbsentHeadersNoOp(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	if err := tracker.UpdateFromHeaders(http.Header{}); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}

	state := tracker.State()
	if !state.LastUpdate.IsZero() {
		t.Error("state updated despite missing headers")
	}
}

func TestUpdateFromHeaders_PartialWindows(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	first := http.Header{}
	first.Set("X-Limit-User-Remaining", "100")
	if err := tracker.UpdateFromHeaders(first); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}

	// A later response carrying only key headers must not clobber the
	// user window.
	second := http.Header{}
	second.Set("X-Limit-Key-Remaining", "5000")
	if err := tracker.UpdateFromHeaders(second); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}

	state := tracker.State()
	if state.User.Remaining != 100 {
		t.Errorf("User.Remaining = %d, want 100", state.User.Remaining)
	}
	if state.Key.Remaining != 5000 {
		t.Errorf("Key.Remaining = %d, want 5000", state.Key.Remaining)
	}
}

func TestUpdateFromHeaders_MalformedValue(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	headers := http.Header{}
	headers.Set("X-Limit-User-Remaining", "not-a-number")

	if err := tracker.UpdateFromHeaders(headers); err == nil {
		t.Fatal("expected error for malformed remaining value")
	}
}

func TestStateSnapshotIsolated(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	headers := http.Header{}
	headers.Set("X-Limit-User-Remaining", "50")
	if err := tracker.UpdateFromHeaders(headers); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}

	snapshot := tracker.State()
	snapshot.User.Remaining = 0
	snapshot.User.ResetAt = time.Now().Add(time.Hour)

	if tracker.State().User.Remaining != 50 {
		t.Error("mutating a snapshot changed tracker state")
	}
}
