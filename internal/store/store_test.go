package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/deanhewson/obsidian-pocket/pkg/retrieve"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client, skipping when Redis is not
// reachable locally.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func testResult() *retrieve.Result {
	return &retrieve.Result{
		Timestamp: 1700000000,
		Response: retrieve.ListResponse{
			Status:   1,
			Complete: 1,
			List: retrieve.ItemMap{
				"100": json.RawMessage(`{"item_id":"100","resolved_url":"https://example.com/a"}`),
				"101": json.RawMessage(`{"item_id":"101","resolved_url":"https://example.com/b"}`),
			},
		},
	}
}

func TestSaveResultRoundTrip(t *testing.T) {
	s := New(setupTestRedis(t))
	ctx := context.Background()

	if err := s.SaveResult(ctx, testResult()); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	ts, err := s.Watermark(ctx)
	if err != nil {
		t.Fatalf("Watermark failed: %v", err)
	}
	if ts != 1700000000 {
		t.Errorf("Watermark = %d, want 1700000000", ts)
	}

	ids, err := s.ItemIDs(ctx)
	if err != nil {
		t.Fatalf("ItemIDs failed: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "100" || ids[1] != "101" {
		t.Errorf("ItemIDs = %v, want [100 101]", ids)
	}

	item, err := s.Item(ctx, "100")
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	var record map[string]string
	if err := json.Unmarshal(item, &record); err != nil {
		t.Fatalf("stored item not valid JSON: %v", err)
	}
	if record["resolved_url"] != "https://example.com/a" {
		t.Errorf("item record = %v, want original payload", record)
	}
}

func TestWatermarkDefaultsToZero(t *testing.T) {
	s := New(setupTestRedis(t))

	ts, err := s.Watermark(context.Background())
	if err != nil {
		t.Fatalf("Watermark failed: %v", err)
	}
	if ts != 0 {
		t.Errorf("Watermark = %d, want 0 before any sync", ts)
	}
}

func TestItemNotFound(t *testing.T) {
	s := New(setupTestRedis(t))

	_, err := s.Item(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Item error = %v, want ErrNotFound", err)
	}
}

func TestSaveResultOverwrites(t *testing.T) {
	s := New(setupTestRedis(t))
	ctx := context.Background()

	if err := s.SaveResult(ctx, testResult()); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	updated := &retrieve.Result{
		Timestamp: 1700000100,
		Response: retrieve.ListResponse{
			List: retrieve.ItemMap{
				"100": json.RawMessage(`{"item_id":"100","favorite":"1"}`),
			},
		},
	}
	if err := s.SaveResult(ctx, updated); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	ts, err := s.Watermark(ctx)
	if err != nil {
		t.Fatalf("Watermark failed: %v", err)
	}
	if ts != 1700000100 {
		t.Errorf("Watermark = %d, want 1700000100", ts)
	}

	item, err := s.Item(ctx, "100")
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	var record map[string]string
	if err := json.Unmarshal(item, &record); err != nil {
		t.Fatalf("stored item not valid JSON: %v", err)
	}
	if record["favorite"] != "1" {
		t.Errorf("item not overwritten: %v", record)
	}
}
