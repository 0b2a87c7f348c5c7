package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/stanleyluong/stanslist/internal/domain"
)

// Compile-time check: RedisCache implements domain.CacheRepository.
var _ domain.CacheRepository = (*RedisCache)(nil)

// RedisCache keeps JSON-encoded values under a key prefix with a server-side TTL.
// It lets several runs share probe verdicts.
type RedisCache struct {
	client rueidis.Client
	prefix string
}

// NewRedisCache wraps an existing client
func NewRedisCache(client rueidis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Get retrieves a value, returning domain.ErrCacheMiss when absent
func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, error) {
	cmd := c.client.B().Get().Key(c.prefix + key).Build()
	data, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return value, nil
}

// Set stores a value with an expiration
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	cmd := c.client.B().Set().Key(c.prefix + key).Value(string(data)).Ex(ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
