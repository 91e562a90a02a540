// Package cache is a small JSON read cache over redis. A nil client disables it: reads miss and
// writes are dropped, so callers never branch on whether redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 5 * time.Minute

const keyPrefix = "foodgram:"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func New(client *redis.Client, ttl time.Duration, log *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{client: client, ttl: ttl, log: log}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes the cached value into dest and reports whether it was found.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if !c.Enabled() {
		return false
	}

	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.log.Warn("cache entry undecodable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = keyPrefix + key
	}
	return c.client.Del(ctx, prefixed...).Err()
}

// Stats parses the redis INFO stats section for the metrics endpoint.
func (c *Cache) Stats(ctx context.Context) any {
	if !c.Enabled() {
		return "redis not configured"
	}

	info, err := c.client.Info(ctx, "stats").Result()
	if err != nil {
		return "redis info unavailable: " + err.Error()
	}

	stats := make(map[string]string)
	for _, line := range strings.Split(info, "\r\n") {
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}
		if key, value, ok := strings.Cut(line, ":"); ok {
			stats[key] = value
		}
	}
	return stats
}

// GetOrLoad returns the cached value for key or calls load and caches its result.
// A failed cache write is logged, never returned.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, load func() (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if err := c.Set(ctx, key, value); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
	return value, nil
}
