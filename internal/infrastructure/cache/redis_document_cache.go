// Package cache stores generated invoice documents keyed by order fingerprint.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces invoice documents in a shared Redis.
const DefaultKeyPrefix = "invoicer:"

// RedisDocumentCache keeps documents in Redis so that several instances
// share generated output.
type RedisDocumentCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisDocumentCache wraps an existing client.
func NewRedisDocumentCache(client *redis.Client, keyPrefix string) *RedisDocumentCache {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisDocumentCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the cached document. A missing key is reported as found=false
// with a nil error.
func (c *RedisDocumentCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached document: %w", err)
	}
	return data, true, nil
}

// Set stores data under key with SET EX semantics.
func (c *RedisDocumentCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache document: %w", err)
	}
	return nil
}

// Ping checks that Redis is reachable
func (c *RedisDocumentCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisDocumentCache) Close() error {
	return c.client.Close()
}
