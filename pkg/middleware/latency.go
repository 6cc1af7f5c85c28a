package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/catalog-api/pkg/logging"
)

// Latency times the rest of the chain and logs method, path, status and
// duration for every request it sees, including failed and panicking ones.
func Latency() Stage {
	return StageFunc(func(w http.ResponseWriter, r *http.Request, next Next) (err error) {
		rw := wrapWriter(w)
		start := time.Now()
		completed := false

		defer func() {
			elapsed := time.Since(start)

			status := rw.Status()
			if !completed || (err != nil && !rw.Written()) {
				// Recover further out will answer with 500.
				status = http.StatusInternalServerError
			}

			requestDuration.WithLabelValues(r.Method, strconv.Itoa(status)).Observe(elapsed.Seconds())
			logging.FromContext(r.Context()).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", elapsed).
				Msg("Request completed")
		}()

		err = next(rw, r)
		completed = true
		return err
	})
}
