// Package metrics provides the Prometheus registry reference and the /metrics
// handler for the catalog service.
// All metrics are defined in their respective packages (cache, middleware,
// upstream) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the service.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry read by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler exposing all registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Catalog Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total (Counter): Requests served from a live snapshot
//   - catalog_cache_misses_total (Counter): Requests that found no live snapshot
//   - catalog_cache_load_errors_total (Counter): Failed catalog loads
//   - catalog_cache_load_duration_seconds (Histogram): Duration of catalog loads
//   - catalog_cache_items (Gauge): Items in the current snapshot
//
// HTTP Metrics (pkg/middleware):
//   - catalog_http_request_duration_seconds{method, status} (Histogram): Request latency
//   - catalog_http_unauthorized_total (Counter): Requests rejected by bearer auth
//   - catalog_http_unhandled_errors_total{kind} (Counter): Errors and panics translated to 500
//
// Upstream Metrics (pkg/upstream):
//   - catalog_upstream_requests_total{endpoint, status} (Counter): Page requests by status
//   - catalog_upstream_request_duration_seconds{endpoint} (Histogram): Page request duration
//   - catalog_upstream_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - catalog_upstream_retries_total{error_class} (Counter): Retry attempts by error class
//   - catalog_upstream_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - catalog_upstream_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(catalog_cache_hits_total[5m])) /
//   (sum(rate(catalog_cache_hits_total[5m])) + sum(rate(catalog_cache_misses_total[5m])))
//
//   # Unauthorized Rate
//   rate(catalog_http_unauthorized_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, sum by (le) (rate(catalog_http_request_duration_seconds_bucket[5m])))
//
//   # Catalog Load Failures
//   increase(catalog_cache_load_errors_total[15m]) > 0
