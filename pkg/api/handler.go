// Package api implements the product list endpoint.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Sternrassler/catalog-api/pkg/catalog"
	"github.com/Sternrassler/catalog-api/pkg/logging"
	"github.com/Sternrassler/catalog-api/pkg/query"
)

// ProductListPath is the route served by ProductListHandler.
const ProductListPath = "/api/productlist"

// SnapshotSource returns the current catalog snapshot and whether it came
// from cache. *cache.CatalogCache implements it.
type SnapshotSource interface {
	Get(ctx context.Context) (*catalog.Snapshot, bool, error)
}

// ProductListHandler serves GET /api/productlist.
type ProductListHandler struct {
	source SnapshotSource
}

// NewProductListHandler creates the handler reading from source.
func NewProductListHandler(source SnapshotSource) *ProductListHandler {
	if source == nil {
		panic("snapshot source cannot be nil")
	}
	return &ProductListHandler{source: source}
}

// ServeHTTP answers with one page of the filtered catalog as a JSON array.
// Failures are returned for the pipeline's error translator.
func (h *ProductListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		return jsonResp(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
	}

	logger := logging.FromContext(r.Context())
	q := query.Parse(r.URL.Query())

	snap, hit, err := h.source.Get(r.Context())
	if err != nil {
		return fmt.Errorf("get catalog snapshot: %w", err)
	}
	if hit {
		logger.Info().Bool("cache_hit", true).Msg("Cache hit - using cached product list")
	} else {
		logger.Info().Bool("cache_hit", false).Msg("Cache miss - loaded full product list")
	}

	page := query.Apply(snap.Items(), q)

	logger.Info().
		Int("count", len(page)).
		Int("page", q.Page).
		Int("page_size", q.PageSize).
		Bool("filtered", strings.TrimSpace(q.Search) != "").
		Msg("Returned products")

	return jsonResp(w, http.StatusOK, page)
}

// jsonResp writes v as JSON with the given status.
func jsonResp(w http.ResponseWriter, status int, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
