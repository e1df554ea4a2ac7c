// Package retrieve implements the paginated Pocket item fetch: a sequential
// loop over /v3/get that merges fixed-size pages into a single collection
// keyed by item id.
package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/deanhewson/obsidian-pocket/pkg/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	getEndpoint = "/v3/get"

	// PageSize is Pocket's default page size for /v3/get. The short-page
	// termination check assumes no request ever asks for more than this.
	PageSize = 30
)

// Prometheus metrics for item retrieval.
var (
	pocketItemsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pocket_items_fetched_total",
		Help: "Total Pocket items fetched across all syncs",
	})

	pocketFetchPages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pocket_fetch_pages",
		Help:    "Number of pages requested per fetch",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})

	pocketFetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pocket_fetch_failures_total",
		Help: "Total fetches aborted by a transport or decode error",
	})
)

// Notifier surfaces fetch failures to the embedding host's UI.
type Notifier interface {
	Notify(message string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string) {}

// fetchState models the pagination loop one page at a time.
type fetchState int

const (
	// stateAccumulating merges the page and fetches the next one.
	stateAccumulating fetchState = iota

	// stateDone merges the page, if it carried a list, and stops.
	stateDone

	// stateFailed aborts the fetch with no result.
	stateFailed
)

// transition decides the loop state after one page fetch. A page without a
// list field means the server has nothing further; a page shorter than
// PageSize is Pocket's end-of-results signal.
func transition(page *ListResponse, err error) fetchState {
	switch {
	case err != nil:
		return stateFailed
	case page.List == nil:
		return stateDone
	case len(page.List) < PageSize:
		return stateDone
	default:
		return stateAccumulating
	}
}

// Fetcher retrieves a user's saved items from Pocket.
type Fetcher struct {
	transport   api.Transport
	consumerKey string
	notifier    Notifier
	logger      zerolog.Logger
	now         func() time.Time
}

// NewFetcher creates an item fetcher for the given consumer key.
func NewFetcher(transport api.Transport, consumerKey string) *Fetcher {
	return &Fetcher{
		transport:   transport,
		consumerKey: consumerKey,
		notifier:    NopNotifier{},
		logger:      log.With().Str("component", "pocket-retrieve").Logger(),
		now:         time.Now,
	}
}

// SetNotifier sets the failure notification sink.
func (f *Fetcher) SetNotifier(n Notifier) {
	f.notifier = n
}

// SetClock sets the wall clock used for the sync watermark (for testing).
func (f *Fetcher) SetClock(now func() time.Time) {
	f.now = now
}

// Fetch retrieves all items matching opts, merging pages of PageSize until
// Pocket signals end-of-results. One request is in flight at a time; any
// transport or decode error aborts the whole fetch with no partial result
// and no retry. Result.Timestamp is captured before the first request so
// items modified during the fetch window are re-fetched on the next
// incremental sync rather than missed.
func (f *Fetcher) Fetch(ctx context.Context, accessToken string, opts Options) (*Result, error) {
	nextTimestamp := f.now().Unix()

	merged := ItemMap{}
	var last ListResponse
	offset := 0
	pages := 0

loop:
	for {
		page, err := f.fetchPage(ctx, accessToken, opts, offset)
		pages++

		switch transition(page, err) {
		case stateFailed:
			pocketFetchFailuresTotal.Inc()
			f.logger.Error().Err(err).Int("offset", offset).Msg("Item fetch aborted")
			f.notifier.Notify(fmt.Sprintf("Pocket sync failed: %v", err))
			return nil, err

		case stateDone:
			if page.List != nil {
				mergeInto(merged, page.List)
				last = *page
			}
			break loop

		case stateAccumulating:
			mergeInto(merged, page.List)
			last = *page
			offset += PageSize
		}
	}

	pocketItemsFetchedTotal.Add(float64(len(merged)))
	pocketFetchPages.Observe(float64(pages))

	f.logger.Info().
		Int("items", len(merged)).
		Int("pages", pages).
		Int64("since", opts.Since).
		Int64("timestamp", nextTimestamp).
		Msg("Item fetch complete")

	last.List = merged
	return &Result{Timestamp: nextTimestamp, Response: last}, nil
}

// fetchPage requests and decodes a single page at the given offset.
func (f *Fetcher) fetchPage(ctx context.Context, accessToken string, opts Options, offset int) (*ListResponse, error) {
	fields := url.Values{}
	fields.Set("consumer_key", f.consumerKey)
	fields.Set("access_token", accessToken)
	fields.Set("detailType", "complete")
	fields.Set("count", strconv.Itoa(PageSize))
	fields.Set("offset", strconv.Itoa(offset))
	if opts.Since > 0 {
		fields.Set("since", strconv.FormatInt(opts.Since, 10))
	}
	if opts.Tag != "" {
		fields.Set("tag", opts.Tag)
	}

	body, err := f.transport.PostForm(ctx, getEndpoint, fields)
	if err != nil {
		return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
	}

	var page ListResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode page at offset %d: %w", offset, err)
	}

	return &page, nil
}

// mergeInto performs a keyed union; colliding keys are overwritten by the
// newer page. Collisions should not occur in practice but are tolerated.
func mergeInto(dst, src ItemMap) {
	for id, item := range src {
		dst[id] = item
	}
}
