// Package metrics documents the Prometheus metrics exposed by the Pocket
// client. All metrics are defined in their respective packages (api,
// retrieve, ratelimit) to maintain modularity and avoid circular
// dependencies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the Pocket client.
// All metrics are automatically registered via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/api):
//   - pocket_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - pocket_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//
// Retrieval Metrics (pkg/retrieve):
//   - pocket_items_fetched_total (Counter): Items fetched across all syncs
//   - pocket_fetch_pages (Histogram): Pages requested per fetch
//   - pocket_fetch_failures_total (Counter): Fetches aborted by an error
//
// Rate Limit Metrics (pkg/ratelimit):
//   - pocket_user_limit_remaining (Gauge): Remaining per-user budget
//   - pocket_key_limit_remaining (Gauge): Remaining per-consumer-key budget
//   - pocket_rate_limit_warnings_total{window} (Counter): Low-budget warnings by window
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   sum(rate(pocket_requests_total{status!~"2.."}[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(pocket_request_duration_seconds_bucket[5m]))
//
//   # Rate Limit Headroom
//   min(pocket_user_limit_remaining)
