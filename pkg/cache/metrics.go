package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts Gets served from a live entry
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
	)

	// CacheMisses counts Gets that had to wait for a load
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
	)

	// LoadErrors counts failed loader calls
	LoadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_load_errors_total",
			Help: "Total number of failed catalog loads",
		},
	)

	// LoadDuration tracks loader latency
	LoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_cache_load_duration_seconds",
			Help:    "Catalog loader duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
	)

	// CachedItems tracks the size of the current snapshot
	CachedItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_cache_items",
			Help: "Number of items in the cached catalog snapshot",
		},
	)
)
