// Command catalog-api serves the product catalog over HTTP.
//
// Configuration is read from the environment (and an optional YAML file
// named by CONFIG_FILE); see pkg/config for the keys.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/catalog-api/pkg/api"
	"github.com/Sternrassler/catalog-api/pkg/cache"
	"github.com/Sternrassler/catalog-api/pkg/catalog"
	"github.com/Sternrassler/catalog-api/pkg/config"
	"github.com/Sternrassler/catalog-api/pkg/logging"
	"github.com/Sternrassler/catalog-api/pkg/metrics"
	"github.com/Sternrassler/catalog-api/pkg/middleware"
	"github.com/Sternrassler/catalog-api/pkg/pagination"
	"github.com/Sternrassler/catalog-api/pkg/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog-api: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	loader, redisClient, err := newLoader(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.SlidingExpiration = cfg.Cache.SlidingExpiration
	catalogCache := cache.New(loader, cacheCfg)

	tokens := middleware.NewRotatingToken(cfg.Auth.Token)
	if cfg.Auth.TokenFile != "" {
		go func() {
			if err := config.WatchToken(ctx, cfg.Auth.TokenFile, logger, tokens.Set); err != nil {
				logger.Error().Err(err).Msg("Token watcher stopped - token rotation disabled")
			}
		}()
	}

	// SIGHUP drops the cached catalog so the next request reloads it.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				catalogCache.Invalidate()
				logger.Info().Msg("Catalog cache invalidated")
			}
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(catalogCache, tokens, cfg.Auth.ProtectedPrefix, redisClient, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("catalog_source", cfg.Catalog.Source).
			Dur("sliding_expiration", cfg.Cache.SlidingExpiration).
			Msg("Starting catalog API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newLoader builds the catalog loader for the configured source. The Redis
// client is returned so /ready can ping it; it is nil for other sources.
func newLoader(ctx context.Context, cfg *config.Config) (catalog.Loader, *redis.Client, error) {
	switch cfg.Catalog.Source {
	case config.SourceFile:
		return catalog.NewFileLoader(cfg.Catalog.File), nil, nil

	case config.SourceRedis:
		redisClient, err := newRedisClient(cfg.Catalog.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Catalog.RedisURL, err)
		}
		return catalog.NewRedisLoader(redisClient, cfg.Catalog.RedisKey), redisClient, nil

	case config.SourceUpstream:
		client, err := upstream.New(upstream.DefaultConfig(cfg.Catalog.UpstreamURL))
		if err != nil {
			return nil, nil, fmt.Errorf("upstream client: %w", err)
		}
		pageCfg := pagination.DefaultConfig()
		pageCfg.MaxConcurrency = cfg.Catalog.UpstreamConcurrency
		return upstream.NewLoader(client, upstream.DefaultEndpoint, pageCfg), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
}

// newRedisClient accepts either a redis:// URL or a bare host:port.
func newRedisClient(addr string) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

// newRouter mounts every route behind the same middleware chain. Routes
// outside the protected prefix pass through authorization untouched.
func newRouter(source api.SnapshotSource, tokens middleware.TokenSource, protectedPrefix string, redisClient *redis.Client, logger zerolog.Logger) http.Handler {
	stages := []middleware.Stage{
		middleware.Correlation(logger),
		middleware.Recover(),
		middleware.Authorize(protectedPrefix, tokens),
		middleware.Latency(),
	}

	mux := http.NewServeMux()
	handle := func(pattern string, h middleware.HandlerFunc) {
		mux.Handle(pattern, middleware.New(h, stages...))
	}

	handle(api.ProductListPath, api.NewProductListHandler(source).ServeHTTP)
	handle("/health", healthHandler)
	handle("/ready", readyHandler(redisClient))
	handle("/metrics", adapt(metrics.Handler()))
	handle("/", notFoundHandler)

	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(http.StatusOK)
	_, err := fmt.Fprint(w, "OK")
	return err
}

func readyHandler(redisClient *redis.Client) middleware.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				logging.FromContext(r.Context()).Warn().Err(err).Msg("Readiness check failed - redis unavailable")
				http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
				return nil
			}
		}
		w.WriteHeader(http.StatusOK)
		_, err := fmt.Fprint(w, "OK")
		return err
	}
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) error {
	http.NotFound(w, r)
	return nil
}

// adapt runs a plain http.Handler as a pipeline endpoint.
func adapt(h http.Handler) middleware.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r)
		return nil
	}
}
