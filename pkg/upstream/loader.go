package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/catalog-api/pkg/catalog"
	"github.com/Sternrassler/catalog-api/pkg/pagination"
)

// DefaultEndpoint is the upstream path serving catalog pages.
const DefaultEndpoint = "/products"

// Loader is a catalog.Loader reading every page of the upstream catalog.
type Loader struct {
	fetcher  *pagination.BatchFetcher
	endpoint string
}

// NewLoader creates a loader fetching endpoint through client.
func NewLoader(client *Client, endpoint string, cfg pagination.Config) *Loader {
	if client == nil {
		panic("upstream client cannot be nil")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Loader{
		fetcher:  pagination.NewBatchFetcher(client, cfg),
		endpoint: endpoint,
	}
}

// LoadAll fetches all pages and concatenates them in page order.
func (l *Loader) LoadAll(ctx context.Context) ([]catalog.Item, error) {
	pages, err := l.fetcher.FetchAllPages(ctx, l.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: upstream %s: %w", catalog.ErrLoad, l.endpoint, err)
	}

	items := make([]catalog.Item, 0)
	for i, data := range pages {
		var page []catalog.Item
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("%w: decode upstream page %d: %w", catalog.ErrLoad, i+1, err)
		}
		items = append(items, page...)
	}
	return items, nil
}
