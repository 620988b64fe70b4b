package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/flavorai/internal/model"
)

const (
	ratingKeyPrefix     = "rating:summary:"
	generationKeyPrefix = "rating:gen:"
)

// generationTTL keeps a counter far longer than any read can take, so it
// can't expire and reset to zero under an in-flight reader.
const generationTTL = 24 * time.Hour

// fillScript sets KEYS[1] only while KEYS[2] (the generation, absent = 0)
// still equals ARGV[1]. Check and set run atomically inside Redis.
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// DefaultRatingTTL bounds how stale a summary can get if an invalidation is
// lost (e.g. Redis was briefly unreachable during a write).
const DefaultRatingTTL = 30 * time.Second

// Redis is a RatingCache backed by Redis string keys holding JSON.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// New parses redisURL, connects and pings.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client. A non-positive ttl selects
// DefaultRatingTTL.
func NewWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultRatingTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// GetRatingSummary reads a cached summary.
func (r *Redis) GetRatingSummary(ctx context.Context, recipeID int64) (model.RatingSummary, error) {
	raw, err := r.client.Get(ctx, ratingKey(recipeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.RatingSummary{}, ErrCacheMiss
		}
		return model.RatingSummary{}, fmt.Errorf("redis get failed: %w", err)
	}

	summary, err := decodeSummary(raw)
	if err != nil {
		// A corrupt entry is as good as none.
		return model.RatingSummary{}, ErrCacheMiss
	}
	return summary, nil
}

// Generation reads a recipe's invalidation counter. A missing counter is 0.
func (r *Redis) Generation(ctx context.Context, recipeID int64) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey(recipeID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

// FillRatingSummary caches a summary for the configured TTL, unless the
// recipe was invalidated after gen was read.
func (r *Redis) FillRatingSummary(ctx context.Context, recipeID, gen int64, summary model.RatingSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding rating summary: %w", err)
	}

	keys := []string{ratingKey(recipeID), generationKey(recipeID)}
	err = fillScript.Run(ctx, r.client, keys, strconv.FormatInt(gen, 10), raw, r.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("failed to cache rating summary: %w", err)
	}
	return nil
}

// InvalidateRatingSummary bumps the recipe's generation and drops its cached
// summary in one MULTI/EXEC, so a fill racing with it can't land afterwards.
func (r *Redis) InvalidateRatingSummary(ctx context.Context, recipeID int64) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(recipeID))
		pipe.Expire(ctx, generationKey(recipeID), generationTTL)
		pipe.Del(ctx, ratingKey(recipeID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate rating summary: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Client returns the underlying Redis client.
// Use sparingly - prefer adding methods to Redis.
func (r *Redis) Client() *redis.Client {
	return r.client
}

func ratingKey(recipeID int64) string {
	return ratingKeyPrefix + strconv.FormatInt(recipeID, 10)
}

func generationKey(recipeID int64) string {
	return generationKeyPrefix + strconv.FormatInt(recipeID, 10)
}

func decodeSummary(raw []byte) (model.RatingSummary, error) {
	var summary model.RatingSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return model.RatingSummary{}, err
	}
	if summary.Count < 0 {
		return model.RatingSummary{}, fmt.Errorf("negative count %d", summary.Count)
	}
	return summary, nil
}
