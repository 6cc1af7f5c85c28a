package middleware

import (
	"net/http"

	"github.com/Sternrassler/catalog-api/pkg/logging"
)

// HandlerFunc is an endpoint that reports failures instead of writing them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Next continues the pipeline with the remaining stages and the endpoint.
type Next func(w http.ResponseWriter, r *http.Request) error

// Stage intercepts a request on its way to the endpoint.
type Stage interface {
	Intercept(w http.ResponseWriter, r *http.Request, next Next) error
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(w http.ResponseWriter, r *http.Request, next Next) error

// Intercept calls f(w, r, next).
func (f StageFunc) Intercept(w http.ResponseWriter, r *http.Request, next Next) error {
	return f(w, r, next)
}

// Pipeline is an http.Handler running stages in order before the endpoint.
type Pipeline struct {
	stages   []Stage
	endpoint HandlerFunc
}

// New builds a pipeline. stages[0] is the outermost stage.
func New(endpoint HandlerFunc, stages ...Stage) *Pipeline {
	if endpoint == nil {
		panic("pipeline endpoint cannot be nil")
	}
	return &Pipeline{
		stages:   append([]Stage(nil), stages...),
		endpoint: endpoint,
	}
}

// ServeHTTP implements http.Handler.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := wrapWriter(w)

	err := p.next(0)(rw, r)
	if err == nil {
		return
	}

	// Nothing in the chain translated the error.
	logging.FromContext(r.Context()).Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Unhandled error escaped request pipeline")
	if !rw.Written() {
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// next returns the continuation that runs stages[i:] and then the endpoint.
func (p *Pipeline) next(i int) Next {
	if i == len(p.stages) {
		return Next(p.endpoint)
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		return p.stages[i].Intercept(w, r, p.next(i+1))
	}
}
