package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/Sternrassler/catalog-api/pkg/logging"
)

// UnauthorizedMessage is the plain-text body of a 401 response.
const UnauthorizedMessage = "Unauthorized: Invalid or missing token."

// TokenSource supplies the currently accepted bearer token.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that never changes.
type StaticToken string

// Token returns t.
func (t StaticToken) Token() string {
	return string(t)
}

// RotatingToken is a TokenSource whose value can be replaced at runtime,
// e.g. when the configuration file is reloaded.
type RotatingToken struct {
	v atomic.Pointer[string]
}

// NewRotatingToken returns a RotatingToken holding token.
func NewRotatingToken(token string) *RotatingToken {
	t := &RotatingToken{}
	t.Set(token)
	return t
}

// Set replaces the accepted token.
func (t *RotatingToken) Set(token string) {
	t.v.Store(&token)
}

// Token returns the accepted token.
func (t *RotatingToken) Token() string {
	if p := t.v.Load(); p != nil {
		return *p
	}
	return ""
}

// Authorize rejects requests under prefix whose Authorization header is not
// exactly "Bearer <token>". Other paths pass through without any check.
// An empty token rejects every protected request.
func Authorize(prefix string, tokens TokenSource) Stage {
	prefix = "/" + strings.Trim(prefix, "/")

	return StageFunc(func(w http.ResponseWriter, r *http.Request, next Next) error {
		if !underPrefix(r.URL.Path, prefix) {
			return next(w, r)
		}

		header := r.Header.Get("Authorization")
		if rc, ok := FromContext(r.Context()); ok {
			rc.AuthHeader = header
			r = r.WithContext(WithRequestContext(r.Context(), rc))
		}

		if validBearer(header, tokens.Token()) {
			return next(w, r)
		}

		unauthorizedTotal.Inc()
		logging.FromContext(r.Context()).Warn().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Bool("auth_header_present", header != "").
			Msg("Unauthorized request")

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("WWW-Authenticate", "Bearer")
		w.WriteHeader(http.StatusUnauthorized)
		if _, err := w.Write([]byte(UnauthorizedMessage)); err != nil {
			return fmt.Errorf("write unauthorized response: %w", err)
		}
		return nil
	})
}

// underPrefix matches whole path segments, case-insensitively:
// "/api" and "/api/x" match "/api", "/apix" does not.
func underPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if len(path) < len(prefix) || !strings.EqualFold(path[:len(prefix)], prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func validBearer(header, token string) bool {
	if token == "" {
		return false
	}
	expected := "Bearer " + token
	return subtle.ConstantTimeCompare([]byte(header), []byte(expected)) == 1
}
