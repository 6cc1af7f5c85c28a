// Package pagination provides parallel batch fetching for paginated upstream endpoints.
//
// The upstream reports its total page count in the X-Pages header of every
// page. The batch fetcher reads page 1 to learn the total, then fetches the
// remaining pages with a bounded worker pool.
//
// Example usage:
//
//	config := pagination.DefaultConfig()
//	fetcher := pagination.NewBatchFetcher(upstreamClient, config)
//	pages, err := fetcher.FetchAllPages(ctx, "/products")
//
// The batch fetcher:
//   - Fetches first page to determine total pages
//   - Fetches remaining pages with at most MaxConcurrency in flight
//   - Returns pages in page order
//   - Fails as a whole when any page fails; partial results are never returned
package pagination
