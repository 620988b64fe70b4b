// Package cache fronts the rating aggregate with a short-lived cache.
//
// The cache is an optimisation only: every write that changes a recipe's
// ratings invalidates its entry, and every cache error is treated by callers
// as a miss, so the database stays the source of truth.
//
// GENERATIONS:
// Plain cache-aside has a race. A reader loads an old summary from the
// database, a writer commits a rating and deletes the entry, and then the
// reader stores its old summary, which is served until the TTL runs out.
// Each recipe therefore has a generation counter that every invalidation
// bumps. A reader takes the generation before its database read and
// FillRatingSummary stores the summary only if it is unchanged.
package cache

import (
	"context"
	"errors"

	"github.com/sakif/flavorai/internal/model"
)

// ErrCacheMiss is returned when no entry exists for the key.
var ErrCacheMiss = errors.New("cache miss")

// RatingCache stores per-recipe rating summaries.
type RatingCache interface {
	// GetRatingSummary returns ErrCacheMiss when nothing is cached.
	GetRatingSummary(ctx context.Context, recipeID int64) (model.RatingSummary, error)
	// Generation returns the recipe's invalidation counter.
	Generation(ctx context.Context, recipeID int64) (int64, error)
	// FillRatingSummary caches summary unless the generation has moved past gen.
	FillRatingSummary(ctx context.Context, recipeID, gen int64, summary model.RatingSummary) error
	InvalidateRatingSummary(ctx context.Context, recipeID int64) error
	Ping(ctx context.Context) error
}

// Noop is a RatingCache that never stores anything. Used when REDIS_URL is
// unset.
type Noop struct{}

// NewNoop returns a cache that always misses.
func NewNoop() *Noop {
	return &Noop{}
}

// GetRatingSummary always misses.
func (Noop) GetRatingSummary(context.Context, int64) (model.RatingSummary, error) {
	return model.RatingSummary{}, ErrCacheMiss
}

// Generation is always zero.
func (Noop) Generation(context.Context, int64) (int64, error) { return 0, nil }

// FillRatingSummary discards the value.
func (Noop) FillRatingSummary(context.Context, int64, int64, model.RatingSummary) error { return nil }

// InvalidateRatingSummary is a no-op.
func (Noop) InvalidateRatingSummary(context.Context, int64) error { return nil }

// Ping always succeeds.
func (Noop) Ping(context.Context) error { return nil }
