// Package cache provides the cache-aside catalog cache that sits between the
// product list endpoint and the catalog loader.
//
// The cache holds one immutable catalog snapshot under a fixed key with
// sliding expiration:
//
// - A live entry is returned without calling the loader and its expiry clock is reset
// - An absent or expired entry triggers exactly one load, shared by all concurrent callers
// - A failed load is returned to every waiting caller and leaves the previous entry intact
// - A load is not tied to the request that started it; cancelled callers leave it running
//
// # Basic Usage
//
//	loader := catalog.NewFileLoader("products.json")
//	c := cache.New(loader, cache.DefaultConfig())
//
//	snap, hit, err := c.Get(ctx)
//	if err != nil {
//		// loader failed (errors.Is(err, catalog.ErrLoad))
//	}
//
// # Testing
//
// Config.Now replaces the wall clock so expiry can be driven deterministically.
//
// # Metrics
//
// The cache exports Prometheus metrics:
//
//   - catalog_cache_hits_total - Gets served from a live entry
//   - catalog_cache_misses_total - Gets that found no live entry
//   - catalog_cache_load_errors_total - Failed loader calls
//   - catalog_cache_load_duration_seconds - Loader latency
//   - catalog_cache_items - Items in the current snapshot
package cache
