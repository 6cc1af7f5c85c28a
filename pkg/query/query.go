// Package query turns listing request parameters into a page of catalog items.
//
// Filtering runs before pagination. Invalid, zero or negative page and page
// size values fall back to the defaults instead of being rejected.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/catalog-api/pkg/catalog"
)

const (
	// DefaultPage is used when page is absent or invalid.
	DefaultPage = 1

	// DefaultPageSize is used when pageSize is absent or invalid.
	DefaultPageSize = 10
)

// PageQuery selects one page of the (optionally filtered) catalog.
type PageQuery struct {
	Page     int
	PageSize int
	Search   string
}

// Parse reads page, pageSize and search from request query parameters.
func Parse(values url.Values) PageQuery {
	q := PageQuery{
		Page:     parsePositive(values.Get("page")),
		PageSize: parsePositive(values.Get("pageSize")),
		Search:   values.Get("search"),
	}
	return q.Normalize()
}

// Normalize replaces non-positive Page and PageSize with their defaults.
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	return q
}

func parsePositive(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Apply filters items by q.Search and returns the requested page.
// items is never modified and the result never aliases it. A page past the
// end yields an empty, non-nil slice.
func Apply(items []catalog.Item, q PageQuery) []catalog.Item {
	q = q.Normalize()

	filtered := Filter(items, q.Search)

	// (Page-1)*PageSize can overflow for huge pages; compare by division first.
	if q.Page-1 > (len(filtered)-1)/q.PageSize || len(filtered) == 0 {
		return []catalog.Item{}
	}
	skip := (q.Page - 1) * q.PageSize
	end := skip + q.PageSize
	if end > len(filtered) || end < skip {
		end = len(filtered)
	}

	page := make([]catalog.Item, end-skip)
	copy(page, filtered[skip:end])
	return page
}

// Filter returns the items whose name contains search, compared
// case-insensitively rune by rune. A blank search returns items unchanged.
func Filter(items []catalog.Item, search string) []catalog.Item {
	if strings.TrimSpace(search) == "" {
		return items
	}

	needle := strings.ToUpper(search)
	out := make([]catalog.Item, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToUpper(item.Name), needle) {
			out = append(out, item)
		}
	}
	return out
}
