package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the request pipeline.
var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by method and status",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"method", "status"})

	unauthorizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_http_unauthorized_total",
		Help: "Total requests rejected for a missing or invalid bearer token",
	})

	unhandledErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_http_unhandled_errors_total",
		Help: "Total request failures translated into 500 responses by kind",
	}, []string{"kind"}) // "error", "panic"
)
