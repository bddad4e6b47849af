package cache_test

import (
	"context"
	"testing"
	"time"

	"datalake/internal/cache"
)

// A nil cache must behave as a permanently cold cache so callers never have
// to branch on whether caching is configured.
func TestNilCacheIsSafe(t *testing.T) {
	var c *cache.Cache
	ctx := context.Background()

	var dest string
	if c.Get(ctx, "k", &dest) {
		t.Error("nil cache must always miss")
	}
	c.Set(ctx, "k", "v")
	c.Invalidate(ctx, "k*")

	if n, err := c.ClearPattern(ctx, "*"); err != nil || n != 0 {
		t.Errorf("ClearPattern on nil cache = %d, %v", n, err)
	}
	if err := c.ClearAll(ctx); err != nil {
		t.Errorf("ClearAll on nil cache: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil cache: %v", err)
	}
}

func TestNewWithoutAddrReturnsNil(t *testing.T) {
	if c := cache.New("", "", 0, time.Minute); c != nil {
		t.Error("empty addr should disable caching entirely")
	}
}
