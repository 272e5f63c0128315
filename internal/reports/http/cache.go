// Package http exposes the report suite over JSON endpoints with a
// redis-backed view cache.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "reports:"

// ViewCache stores rendered report payloads in redis with a TTL. A nil
// cache is valid and caches nothing.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewViewCache wraps a redis client for report caching.
func NewViewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ViewCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewCache{client: client, ttl: ttl, logger: logger}
}

// Get unmarshals a cached payload into dst, reporting whether it was found.
func (c *ViewCache) Get(ctx context.Context, key string, dst any) bool {
	if c == nil || c.client == nil {
		return false
	}
	data, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("report cache decode", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return true
}

// Set stores a payload under the key. Failures are logged, never surfaced:
// the report was already computed.
func (c *ViewCache) Set(ctx context.Context, key string, v any) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("report cache encode", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("report cache set", slog.String("key", key), slog.Any("error", err))
	}
}

// Bust drops every cached report. Called after postings change the ledger.
func (c *ViewCache) Bust(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, cacheKeyPrefix+"*", 100).Result()
		if err != nil {
			c.logger.Warn("report cache bust", slog.Any("error", err))
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("report cache bust", slog.Any("error", err))
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
