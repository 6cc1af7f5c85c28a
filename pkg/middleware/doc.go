// Package middleware implements the request pipeline that wraps every inbound
// request before it reaches an endpoint.
//
// A Pipeline runs an ordered list of stages, outermost first. Each stage
// receives the request and a continuation; it may call the continuation,
// answer the request itself and stop the chain, or return an error for an
// outer stage to deal with.
//
// The service wires the stages in this order:
//
//	pipeline := middleware.New(endpoint,
//		middleware.Correlation(logger),          // correlation id + request logger
//		middleware.Recover(),                    // errors and panics -> 500 JSON
//		middleware.Authorize("/api", tokens),    // bearer token on /api paths
//		middleware.Latency(),                    // per-request duration log
//	)
//
// Recover is the only stage that swallows errors; everything under it either
// handles its own well-known failure (Authorize answers 401) or lets errors
// pass through unchanged.
//
// # Metrics
//
//   - catalog_http_request_duration_seconds{method,status} - Request latency
//   - catalog_http_unauthorized_total - Requests rejected by Authorize
//   - catalog_http_unhandled_errors_total{kind} - Failures translated by Recover
package middleware
