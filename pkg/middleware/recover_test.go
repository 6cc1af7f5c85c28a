package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func serveWithRecover(t *testing.T, endpoint HandlerFunc) (*httptest.ResponseRecorder, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	p := New(endpoint, Correlation(zerolog.New(buf)), Recover())

	req := httptest.NewRequest("GET", "/api/productlist", nil)
	req.Header.Set(CorrelationIDHeader, "req-7")
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)
	return w, buf.String()
}

func TestRecover_TranslatesError(t *testing.T) {
	w, logs := serveWithRecover(t, func(w http.ResponseWriter, r *http.Request) error {
		return errors.New("connection refused: db-primary:5432")
	})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON body %q: %v", w.Body.String(), err)
	}
	if body.Message != InternalErrorMessage {
		t.Errorf("message = %q, want %q", body.Message, InternalErrorMessage)
	}
	if body.CorrelationID != "req-7" {
		t.Errorf("correlationId = %q, want req-7", body.CorrelationID)
	}
	if strings.Contains(w.Body.String(), "db-primary") {
		t.Error("Internal error detail leaked to client")
	}
	if !strings.Contains(logs, "db-primary") || !strings.Contains(logs, `"level":"error"`) {
		t.Errorf("Error detail should be logged, got %q", logs)
	}
}

func TestRecover_TranslatesPanic(t *testing.T) {
	w, logs := serveWithRecover(t, func(w http.ResponseWriter, r *http.Request) error {
		panic("nil map write")
	})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "nil map") {
		t.Error("Panic value leaked to client")
	}
	if !strings.Contains(logs, "nil map write") || !strings.Contains(logs, `"stack"`) {
		t.Errorf("Panic and stack should be logged, got %q", logs)
	}
}

func TestRecover_PassesThroughSuccess(t *testing.T) {
	w, logs := serveWithRecover(t, func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("fine"))
		return nil
	})

	if w.Code != http.StatusOK || w.Body.String() != "fine" {
		t.Errorf("Unexpected response %d %q", w.Code, w.Body.String())
	}
	if strings.Contains(logs, "Unhandled") {
		t.Errorf("No error should be logged, got %q", logs)
	}
}

func TestRecover_ResponseAlreadyStarted(t *testing.T) {
	w, logs := serveWithRecover(t, func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("[partial"))
		return errors.New("encoder failed mid-stream")
	})

	if w.Code != http.StatusOK {
		t.Errorf("Status must stay 200 once written, got %d", w.Code)
	}
	if !strings.Contains(logs, "encoder failed mid-stream") {
		t.Errorf("Original error should be logged, got %q", logs)
	}
	if !strings.Contains(logs, "Response already started") {
		t.Errorf("Double fault should be logged, got %q", logs)
	}
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	header http.Header
	status int
}

func (b *brokenWriter) Header() http.Header {
	if b.header == nil {
		b.header = http.Header{}
	}
	return b.header
}

func (b *brokenWriter) WriteHeader(code int) { b.status = code }

func (b *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRecover_WriteFailureIsLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	p := New(func(w http.ResponseWriter, r *http.Request) error {
		return errors.New("loader down")
	}, Correlation(zerolog.New(buf)), Recover())

	bw := &brokenWriter{}
	p.ServeHTTP(bw, httptest.NewRequest("GET", "/api/productlist", nil))

	if bw.status != http.StatusInternalServerError {
		t.Errorf("Expected status 500 to be attempted, got %d", bw.status)
	}
	if !strings.Contains(buf.String(), "Failed to write error response") {
		t.Errorf("Write failure should be logged, got %q", buf.String())
	}
}

func TestRecover_StopsPropagation(t *testing.T) {
	var outerErr error
	outer := StageFunc(func(w http.ResponseWriter, r *http.Request, next Next) error {
		outerErr = next(w, r)
		return outerErr
	})

	p := New(func(w http.ResponseWriter, r *http.Request) error {
		return errors.New("boom")
	}, outer, Recover())

	p.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if outerErr != nil {
		t.Errorf("Recover must swallow the error, outer stage saw %v", outerErr)
	}
}
