package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/catalog-api/pkg/logging"
)

const (
	// CorrelationIDHeader is the HTTP header used for request correlation.
	CorrelationIDHeader = "X-Correlation-ID"

	maxCorrelationIDLen = 128
)

// Correlation assigns the request its correlation id, taken from the
// X-Correlation-ID header or generated, and binds it to a request logger
// derived from base. The id is echoed on the response.
func Correlation(base zerolog.Logger) Stage {
	return StageFunc(func(w http.ResponseWriter, r *http.Request, next Next) error {
		id := r.Header.Get(CorrelationIDHeader)
		if !validCorrelationID(id) {
			id = uuid.NewString()
		}

		rc := RequestContext{
			CorrelationID: id,
			Method:        r.Method,
			Path:          r.URL.Path,
		}
		ctx := WithRequestContext(r.Context(), rc)
		ctx = logging.WithCorrelationID(ctx, base, id)

		w.Header().Set(CorrelationIDHeader, id)
		return next(w, r.WithContext(ctx))
	})
}

// validCorrelationID accepts short ids made of printable ASCII.
func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
