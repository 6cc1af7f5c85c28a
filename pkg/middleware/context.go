package middleware

import "context"

// RequestContext is the per-request data every stage and log call can see.
// It is created by the Correlation stage. AuthHeader is filled in by
// Authorize, and only for protected paths.
type RequestContext struct {
	CorrelationID string
	Method        string
	Path          string
	AuthHeader    string
}

type requestContextKey struct{}

// WithRequestContext returns a copy of ctx carrying rc.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext returns the RequestContext stored in ctx, if any.
func FromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}

// CorrelationIDFromContext returns the request's correlation id or "".
func CorrelationIDFromContext(ctx context.Context) string {
	rc, _ := FromContext(ctx)
	return rc.CorrelationID
}
