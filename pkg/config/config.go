// Package config loads the catalog service configuration from defaults, an
// optional YAML file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog sources.
const (
	SourceFile     = "file"
	SourceRedis    = "redis"
	SourceUpstream = "upstream"
)

// Default values.
const (
	DefaultPort              = "8080"
	DefaultProtectedPrefix   = "/api"
	DefaultSlidingExpiration = 10 * time.Minute
	DefaultCatalogFile       = "data/products.json"
	DefaultRedisURL          = "localhost:6379"
	DefaultRedisKey          = "catalog:products"
	DefaultTokenEnv          = "API_TOKEN"
	DefaultShutdownTimeout   = 10 * time.Second
)

// Config holds the service configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port string `yaml:"port"`

	// Auth configures bearer-token authorization.
	Auth AuthConfig `yaml:"auth"`

	// Cache configures the catalog cache.
	Cache CacheConfig `yaml:"cache"`

	// Catalog selects and configures the catalog loader.
	Catalog CatalogConfig `yaml:"catalog"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`

	// ShutdownTimeout bounds the graceful shutdown drain.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig controls bearer-token authorization.
type AuthConfig struct {
	// ProtectedPrefix is the path prefix that requires a token (default "/api").
	ProtectedPrefix string `yaml:"protected_prefix"`

	// TokenEnv is the name of the environment variable holding the API token.
	TokenEnv string `yaml:"token_env"`

	// TokenFile is a file holding the API token (e.g. a mounted secret).
	// It takes precedence over TokenEnv and is watched for rotation.
	TokenFile string `yaml:"token_file"`

	// Token is the resolved API token. It is never read from the YAML itself.
	Token string `yaml:"-"`
}

// CacheConfig controls the catalog cache.
type CacheConfig struct {
	// SlidingExpiration is the idle time after which the catalog is reloaded.
	SlidingExpiration time.Duration `yaml:"sliding_expiration"`
}

// CatalogConfig selects the catalog loader.
type CatalogConfig struct {
	// Source is one of: file | redis | upstream.
	Source string `yaml:"source"`

	// File is the JSON catalog path for the file source.
	File string `yaml:"file"`

	// RedisURL is the Redis address for the redis source.
	RedisURL string `yaml:"redis_url"`

	// RedisKey is the key holding the catalog JSON.
	RedisKey string `yaml:"redis_key"`

	// UpstreamURL is the base URL of the paginated upstream catalog.
	UpstreamURL string `yaml:"upstream_url"`

	// UpstreamConcurrency is the number of parallel upstream page fetches.
	UpstreamConcurrency int `yaml:"upstream_concurrency"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Port: DefaultPort,
		Auth: AuthConfig{
			ProtectedPrefix: DefaultProtectedPrefix,
			TokenEnv:        DefaultTokenEnv,
		},
		Cache: CacheConfig{
			SlidingExpiration: DefaultSlidingExpiration,
		},
		Catalog: CatalogConfig{
			Source:              SourceFile,
			File:                DefaultCatalogFile,
			RedisURL:            DefaultRedisURL,
			RedisKey:            DefaultRedisKey,
			UpstreamConcurrency: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment overrides. The result is validated.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ReadToken reads an API token file, trimming surrounding whitespace.
func ReadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file %q: %w", path, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %q is empty", path)
	}
	return token, nil
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Auth.TokenEnv = getEnv("API_TOKEN_ENV", cfg.Auth.TokenEnv)
	cfg.Auth.TokenFile = getEnv("API_TOKEN_FILE", cfg.Auth.TokenFile)
	if cfg.Auth.TokenFile != "" {
		token, err := ReadToken(cfg.Auth.TokenFile)
		if err != nil {
			return err
		}
		cfg.Auth.Token = token
	} else {
		cfg.Auth.Token = os.Getenv(cfg.Auth.TokenEnv)
	}
	cfg.Auth.ProtectedPrefix = getEnv("PROTECTED_PREFIX", cfg.Auth.ProtectedPrefix)
	cfg.Catalog.Source = getEnv("CATALOG_SOURCE", cfg.Catalog.Source)
	cfg.Catalog.File = getEnv("CATALOG_FILE", cfg.Catalog.File)
	cfg.Catalog.RedisURL = getEnv("REDIS_URL", cfg.Catalog.RedisURL)
	cfg.Catalog.RedisKey = getEnv("REDIS_KEY", cfg.Catalog.RedisKey)
	cfg.Catalog.UpstreamURL = getEnv("UPSTREAM_URL", cfg.Catalog.UpstreamURL)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	if v := os.Getenv("CACHE_SLIDING_EXPIRATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_SLIDING_EXPIRATION: %w", err)
		}
		cfg.Cache.SlidingExpiration = d
	}
	if v := os.Getenv("UPSTREAM_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UPSTREAM_CONCURRENCY: %w", err)
		}
		cfg.Catalog.UpstreamConcurrency = n
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		cfg.Log.Pretty = b
	}
	return nil
}

// Validate checks structural constraints on the configuration.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must be set")
	}
	if c.Auth.Token == "" {
		return fmt.Errorf("api token is empty: set %s or auth.token_file", c.Auth.TokenEnv)
	}
	if c.Cache.SlidingExpiration <= 0 {
		return fmt.Errorf("cache.sliding_expiration must be positive")
	}
	switch c.Catalog.Source {
	case SourceFile:
		if c.Catalog.File == "" {
			return fmt.Errorf("catalog.file is required for source %q", SourceFile)
		}
	case SourceRedis:
		if c.Catalog.RedisURL == "" {
			return fmt.Errorf("catalog.redis_url is required for source %q", SourceRedis)
		}
	case SourceUpstream:
		if c.Catalog.UpstreamURL == "" {
			return fmt.Errorf("catalog.upstream_url is required for source %q", SourceUpstream)
		}
		if c.Catalog.UpstreamConcurrency < 1 {
			return fmt.Errorf("catalog.upstream_concurrency must be >= 1")
		}
	default:
		return fmt.Errorf("catalog.source %q unknown: want file|redis|upstream", c.Catalog.Source)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
