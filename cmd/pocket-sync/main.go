// Command pocket-sync authorizes against Pocket and syncs the user's saved
// items, optionally persisting them to Redis for incremental syncs.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/deanhewson/obsidian-pocket/internal/store"
	"github.com/deanhewson/obsidian-pocket/pkg/api"
	"github.com/deanhewson/obsidian-pocket/pkg/auth"
	"github.com/deanhewson/obsidian-pocket/pkg/logging"
	"github.com/deanhewson/obsidian-pocket/pkg/ratelimit"
	"github.com/deanhewson/obsidian-pocket/pkg/retrieve"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: true,
		Output: os.Stderr,
	})

	platform := auth.Platform(getEnv("POCKET_PLATFORM", string(auth.DetectPlatform())))
	consumerKey := auth.ConsumerKey(platform)
	redirectURI := getEnv("POCKET_REDIRECT_URI", "pocketsync://authorized")

	tracker := ratelimit.NewTracker(logger)
	transport := api.NewClient(api.Config{Tracker: tracker})

	ctx := context.Background()

	accessToken := os.Getenv("POCKET_ACCESS_TOKEN")
	if accessToken == "" {
		session := auth.NewSession(transport, consumerKey)

		requestToken, err := session.RequestToken(ctx, redirectURI)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to obtain request token")
		}

		fmt.Printf("Authorize this application at:\n\n  %s\n\nPress Enter when done.\n",
			session.AuthorizationURL(requestToken, redirectURI))
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')

		authz, err := session.AccessToken(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to exchange request token")
		}
		logger.Info().Str("username", authz.Username).Msg("Authorized")
		accessToken = authz.AccessToken
	}

	var syncStore *store.Store
	var since int64

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", redisURL).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		syncStore = store.New(redisClient)

		watermark, err := syncStore.Watermark(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to read sync watermark")
		}
		since = watermark
	}

	if s := os.Getenv("POCKET_SINCE"); s != "" {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			logger.Fatal().Err(err).Str("value", s).Msg("Invalid POCKET_SINCE")
		}
		since = parsed
	}

	fetcher := retrieve.NewFetcher(transport, consumerKey)
	fetcher.SetNotifier(consoleNotifier{})

	result, err := fetcher.Fetch(ctx, accessToken, retrieve.Options{
		Since: since,
		Tag:   os.Getenv("POCKET_TAG"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Sync failed")
	}

	if syncStore != nil {
		if err := syncStore.SaveResult(ctx, result); err != nil {
			logger.Fatal().Err(err).Msg("Failed to persist sync result")
		}
	}

	limits := tracker.State()
	logger.Info().
		Int("user_remaining", limits.User.Remaining).
		Int("key_remaining", limits.Key.Remaining).
		Msg("Rate limit state after sync")

	fmt.Printf("Fetched %d items (watermark %d)\n", len(result.Response.List), result.Timestamp)
}

// consoleNotifier routes fetch failure notifications to stderr.
type consoleNotifier struct{}

func (consoleNotifier) Notify(message string) {
	fmt.Fprintln(os.Stderr, message)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
