// Package store persists fetch results for the pocket-sync host: the merged
// item collection and the sync watermark handed back by each fetch. The core
// client never depends on this package; it is the host-side collaborator
// that consumes retrieve.Result values.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deanhewson/obsidian-pocket/pkg/retrieve"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNotFound indicates the requested item is not in the store.
var ErrNotFound = errors.New("item not found")

// Redis keys.
const (
	keyWatermark  = "pocket:sync:watermark"
	keyItemIDs    = "pocket:items"
	itemKeyPrefix = "pocket:item:"
)

// Store persists Pocket items and the sync watermark in Redis.
type Store struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// New creates a store backed by the given Redis client.
func New(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis:  redisClient,
		logger: log.With().Str("component", "pocket-store").Logger(),
	}
}

// SaveResult writes every item in the fetch result plus the new watermark
// in a single pipeline. Existing items with the same id are overwritten.
func (s *Store) SaveResult(ctx context.Context, res *retrieve.Result) error {
	pipe := s.redis.Pipeline()
	for id, item := range res.Response.List {
		pipe.Set(ctx, itemKeyPrefix+id, []byte(item), 0)
		pipe.SAdd(ctx, keyItemIDs, id)
	}
	pipe.Set(ctx, keyWatermark, res.Timestamp, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist fetch result: %w", err)
	}

	s.logger.Debug().
		Int("items", len(res.Response.List)).
		Int64("watermark", res.Timestamp).
		Msg("Fetch result persisted")

	return nil
}

// Watermark returns the persisted sync watermark, or 0 when no sync has
// completed yet.
func (s *Store) Watermark(ctx context.Context) (int64, error) {
	ts, err := s.redis.Get(ctx, keyWatermark).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("get watermark: %w", err)
	}
	return ts, nil
}

// Item returns the raw record for one item id.
func (s *Store) Item(ctx context.Context, id string) (json.RawMessage, error) {
	data, err := s.redis.Get(ctx, itemKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return json.RawMessage(data), nil
}

// ItemIDs returns the ids of every stored item.
func (s *Store) ItemIDs(ctx context.Context) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, keyItemIDs).Result()
	if err != nil {
		return nil, fmt.Errorf("list item ids: %w", err)
	}
	return ids, nil
}
