//go:build integration

package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/sakif/flavorai/internal/model"
)

// newIntegrationCache connects to REDIS_URL (default localhost) or skips.
func newIntegrationCache(t *testing.T, ttl time.Duration) *Redis {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	c, err := New(context.Background(), url, ttl)
	if err != nil {
		t.Skipf("Skipping integration test: Redis not available: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Client().FlushDB(context.Background()).Err()
		c.Close()
	})
	return c
}

func TestRedis_SetGetInvalidate(t *testing.T) {
	c := newIntegrationCache(t, time.Minute)
	ctx := context.Background()

	if _, err := c.GetRatingSummary(ctx, 7); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("GetRatingSummary() before set error = %v, want ErrCacheMiss", err)
	}

	want := model.RatingSummary{Average: 3.5, Count: 4}
	if err := c.FillRatingSummary(ctx, 7, 0, want); err != nil {
		t.Fatalf("FillRatingSummary() error = %v", err)
	}

	got, err := c.GetRatingSummary(ctx, 7)
	if err != nil {
		t.Fatalf("GetRatingSummary() error = %v", err)
	}
	if got != want {
		t.Errorf("GetRatingSummary() = %+v, want %+v", got, want)
	}

	if err := c.InvalidateRatingSummary(ctx, 7); err != nil {
		t.Fatalf("InvalidateRatingSummary() error = %v", err)
	}
	if _, err := c.GetRatingSummary(ctx, 7); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("GetRatingSummary() after invalidate error = %v, want ErrCacheMiss", err)
	}
}

func TestRedis_EntriesExpire(t *testing.T) {
	c := newIntegrationCache(t, time.Second)
	ctx := context.Background()

	if err := c.FillRatingSummary(ctx, 8, 0, model.RatingSummary{Average: 1, Count: 1}); err != nil {
		t.Fatalf("FillRatingSummary() error = %v", err)
	}

	ttl, err := c.Client().TTL(ctx, ratingKey(8)).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Second {
		t.Errorf("TTL = %v, want within (0, 1s]", ttl)
	}
}
