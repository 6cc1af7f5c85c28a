package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/catalog-api/pkg/catalog"
	"github.com/Sternrassler/catalog-api/pkg/logging"
)

// DefaultSlidingExpiration is how long an unused snapshot stays cached.
const DefaultSlidingExpiration = 10 * time.Minute

// Config holds catalog cache configuration.
type Config struct {
	// SlidingExpiration is the idle time after which the snapshot is reloaded.
	SlidingExpiration time.Duration

	// Now returns the current time (default: time.Now).
	Now func() time.Time

	// Logger receives load events.
	Logger zerolog.Logger
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		SlidingExpiration: DefaultSlidingExpiration,
		Now:               time.Now,
		Logger:            logging.NewLogger("catalog-cache"),
	}
}

// CatalogCache holds the current catalog snapshot and reloads it from the
// loader when it is missing or has been idle longer than the sliding window.
type CatalogCache struct {
	loader  catalog.Loader
	window  time.Duration
	now     func() time.Time
	logger  zerolog.Logger
	current atomic.Pointer[entry]
	group   singleflight.Group

	// storeMu orders Invalidate against publishing a reload; gen counts
	// invalidations so a reload started before one is not published.
	storeMu sync.Mutex
	gen     uint64
}

// New creates a catalog cache in front of loader.
func New(loader catalog.Loader, cfg Config) *CatalogCache {
	if loader == nil {
		panic("catalog loader cannot be nil")
	}
	if cfg.SlidingExpiration <= 0 {
		cfg.SlidingExpiration = DefaultSlidingExpiration
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &CatalogCache{
		loader: loader,
		window: cfg.SlidingExpiration,
		now:    cfg.Now,
		logger: cfg.Logger,
	}
}

// Get returns the current catalog snapshot and whether it was served from a
// live entry. On a miss the caller waits for the shared reload; if ctx is
// cancelled first Get returns ctx.Err() and the reload keeps running.
func (c *CatalogCache) Get(ctx context.Context) (*catalog.Snapshot, bool, error) {
	logger := logging.FromContext(ctx)

	now := c.now()
	if e := c.current.Load(); e != nil && !e.expired(now, c.window) {
		e.touch(now)
		CacheHits.Inc()
		logger.Debug().
			Str("key", CatalogKey).
			Bool("cache_hit", true).
			Msg("Catalog cache hit")
		return e.snapshot, true, nil
	}

	CacheMisses.Inc()
	logger.Debug().
		Str("key", CatalogKey).
		Bool("cache_hit", false).
		Msg("Catalog cache miss")

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(CatalogKey, func() (interface{}, error) {
		return c.reload(loadCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*catalog.Snapshot), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Invalidate drops the cached snapshot so the next Get reloads. A reload
// already in flight still answers its waiters but is not cached.
func (c *CatalogCache) Invalidate() {
	c.storeMu.Lock()
	c.gen++
	c.current.Store(nil)
	c.storeMu.Unlock()

	c.group.Forget(CatalogKey)
	CachedItems.Set(0)
}

// reload runs inside the single flight. A reload that finished between the
// caller's check and joining the flight is reused instead of loading again.
func (c *CatalogCache) reload(ctx context.Context) (snap *catalog.Snapshot, err error) {
	if e := c.current.Load(); e != nil {
		if now := c.now(); !e.expired(now, c.window) {
			e.touch(now)
			return e.snapshot, nil
		}
	}

	c.storeMu.Lock()
	gen := c.gen
	c.storeMu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: loader panic: %v", catalog.ErrLoad, r)
		}
		LoadDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			LoadErrors.Inc()
			c.logger.Error().
				Err(err).
				Dur("duration", time.Since(start)).
				Msg("Catalog load failed")
		}
	}()

	items, err := c.loader.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	now := c.now()
	snap = catalog.NewSnapshot(items, now)

	c.storeMu.Lock()
	stale := gen != c.gen
	if !stale {
		c.current.Store(newEntry(snap, now))
		CachedItems.Set(float64(snap.Len()))
	}
	c.storeMu.Unlock()

	if stale {
		c.logger.Info().
			Int("items", snap.Len()).
			Msg("Cache invalidated during load - snapshot not cached")
		return snap, nil
	}

	c.logger.Info().
		Int("items", snap.Len()).
		Dur("duration", time.Since(start)).
		Dur("sliding_expiration", c.window).
		Msg("Catalog snapshot loaded")

	return snap, nil
}
