package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key the catalog JSON is read from when none is configured.
const DefaultRedisKey = "catalog:products"

// RedisLoader reads the catalog as a JSON array stored under a single Redis key.
type RedisLoader struct {
	redis *redis.Client
	key   string
}

// NewRedisLoader creates a loader backed by redisClient.
func NewRedisLoader(redisClient *redis.Client, key string) *RedisLoader {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisLoader{
		redis: redisClient,
		key:   key,
	}
}

// LoadAll fetches and decodes the catalog stored at the loader's key.
func (l *RedisLoader) LoadAll(ctx context.Context) ([]Item, error) {
	data, err := l.redis.Get(ctx, l.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %w: redis key %q", ErrLoad, ErrCatalogNotFound, l.key)
		}
		return nil, fmt.Errorf("%w: redis get: %v", ErrLoad, err)
	}

	return decodeItems(data)
}
