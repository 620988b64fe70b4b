package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/flavorai/internal/model"
)

func TestRatingKey(t *testing.T) {
	t.Parallel()

	if got := ratingKey(42); got != "rating:summary:42" {
		t.Errorf("ratingKey(42) = %q, want %q", got, "rating:summary:42")
	}
}

func TestDecodeSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    model.RatingSummary
		wantErr bool
	}{
		{"valid", `{"average":3.5,"count":2}`, model.RatingSummary{Average: 3.5, Count: 2}, false},
		{"empty summary", `{"average":0,"count":0}`, model.RatingSummary{}, false},
		{"garbage", `not json`, model.RatingSummary{}, true},
		{"negative count", `{"average":1,"count":-1}`, model.RatingSummary{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := decodeSummary([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeSummary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("decodeSummary() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewWithClient_DefaultTTL(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	if got := NewWithClient(client, 0).ttl; got != DefaultRatingTTL {
		t.Errorf("ttl = %v, want %v", got, DefaultRatingTTL)
	}
	if got := NewWithClient(client, time.Minute).ttl; got != time.Minute {
		t.Errorf("ttl = %v, want %v", got, time.Minute)
	}
}

func TestRedis_UnreachableServerErrors(t *testing.T) {
	t.Parallel()

	// Nothing listens on port 1; every command fails fast with a dial error.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewWithClient(client, time.Second)
	defer c.Close()

	ctx := context.Background()

	_, err := c.GetRatingSummary(ctx, 1)
	if err == nil || errors.Is(err, ErrCacheMiss) {
		t.Errorf("GetRatingSummary() error = %v, want a connection error", err)
	}
	if err := c.FillRatingSummary(ctx, 1, 0, model.RatingSummary{Average: 4, Count: 1}); err == nil {
		t.Error("FillRatingSummary() should fail when Redis is unreachable")
	}
	if _, err := c.Generation(ctx, 1); err == nil {
		t.Error("Generation() should fail when Redis is unreachable")
	}
	if err := c.InvalidateRatingSummary(ctx, 1); err == nil {
		t.Error("InvalidateRatingSummary() should fail when Redis is unreachable")
	}
	if err := c.Ping(ctx); err == nil {
		t.Error("Ping() should fail when Redis is unreachable")
	}
}

func TestNew_InvalidURL(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), "://not-a-url", time.Second); err == nil {
		t.Fatal("New() should reject an invalid Redis URL")
	}
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var c RatingCache = NewNoop()
	ctx := context.Background()

	if gen, err := c.Generation(ctx, 1); err != nil || gen != 0 {
		t.Fatalf("Generation() = %d, %v, want 0, nil", gen, err)
	}
	if err := c.FillRatingSummary(ctx, 1, 0, model.RatingSummary{Average: 5, Count: 1}); err != nil {
		t.Fatalf("FillRatingSummary() error = %v", err)
	}
	if _, err := c.GetRatingSummary(ctx, 1); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("GetRatingSummary() error = %v, want ErrCacheMiss", err)
	}
	if err := c.InvalidateRatingSummary(ctx, 1); err != nil {
		t.Errorf("InvalidateRatingSummary() error = %v", err)
	}
	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
