package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through key-value cache in front of catalog reads. It is a
// pure optimization: every caller must behave correctly when the cache is
// nil, down, or cold.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis. Returns nil (no cache) when addr is empty.
func New(addr, password string, db int, ttl time.Duration) *Cache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Get unmarshals the cached value for key into dest. Returns false on miss
// or any error; a broken cache reads as a cold cache.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Set stores value under key with the configured TTL. Best effort.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, c.ttl)
}

// Invalidate removes keys matching the catalog patterns after a mutation.
func (c *Cache) Invalidate(ctx context.Context, patterns ...string) {
	if c == nil {
		return
	}
	for _, p := range patterns {
		_, _ = c.ClearPattern(ctx, p)
	}
}

// ClearPattern deletes all keys matching a glob pattern and returns how many
// were removed. SCAN-based so it never blocks redis on large keyspaces.
func (c *Cache) ClearPattern(ctx context.Context, pattern string) (int, error) {
	if c == nil {
		return 0, nil
	}
	var deleted int
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err == nil {
			deleted++
		}
	}
	return deleted, iter.Err()
}

// ClearAll flushes the whole cache database.
func (c *Cache) ClearAll(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.FlushDB(ctx).Err()
}

// Close releases the redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
