package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/Sternrassler/catalog-api/pkg/logging"
)

// ErrPanic wraps a value recovered from a panicking stage or endpoint.
var ErrPanic = errors.New("panic recovered")

// InternalErrorMessage is the only failure text clients ever see.
const InternalErrorMessage = "An unexpected error occurred."

// ErrorResponse is the body of every 500 response.
type ErrorResponse struct {
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId"`
}

// Recover turns any error returned, or panic raised, by the rest of the
// chain into a 500 JSON response and stops the failure from propagating.
// Failure detail goes to the log only.
func Recover() Stage {
	return StageFunc(func(w http.ResponseWriter, r *http.Request, next Next) (err error) {
		rw := wrapWriter(w)

		defer func() {
			var stack []byte
			kind := "error"
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				stack = debug.Stack()
				kind = "panic"
				if perr, ok := p.(error); ok {
					err = fmt.Errorf("%w: %w", ErrPanic, perr)
				} else {
					err = fmt.Errorf("%w: %v", ErrPanic, p)
				}
			}
			if err == nil {
				return
			}
			unhandledErrorsTotal.WithLabelValues(kind).Inc()
			writeInternalError(rw, r, err, stack)
			err = nil
		}()

		return next(rw, r)
	})
}

// writeInternalError logs err and answers with the fixed 500 body. When the
// response has already started, or writing fails, only the log remains.
func writeInternalError(rw *responseWriter, r *http.Request, err error, stack []byte) {
	logger := logging.FromContext(r.Context())
	correlationID := CorrelationIDFromContext(r.Context())

	event := logger.Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path)
	if stack != nil {
		event = event.Bytes("stack", stack)
	}
	event.Msg("Unhandled exception occurred")

	if rw.Written() {
		logger.Error().
			Int("status", rw.Status()).
			Msg("Response already started - cannot write error response")
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusInternalServerError)
	if encErr := json.NewEncoder(rw).Encode(ErrorResponse{
		Message:       InternalErrorMessage,
		CorrelationID: correlationID,
	}); encErr != nil {
		logger.Error().
			Err(encErr).
			AnErr("original_error", err).
			Msg("Failed to write error response")
	}
}
