package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/flavorai/internal/apperror"
	"github.com/sakif/flavorai/internal/metrics"
	"github.com/sakif/flavorai/internal/model"
)

// cacheCounter counts cache lookups and ignores every other metric.
type cacheCounter struct {
	metrics.NoopRecorder
	hits, misses int
}

func (c *cacheCounter) IncRatingCacheHit()  { c.hits++ }
func (c *cacheCounter) IncRatingCacheMiss() { c.misses++ }

func newTestRatingService(f *recipeFixture, recorder metrics.Recorder) *RatingService {
	return NewRatingService(f.store, f.store, f.cache, recorder, discardLogger())
}

func TestRate_ReturnsFreshAggregate(t *testing.T) {
	f := newRecipeFixture(t)
	svc := newTestRatingService(f, nil)
	ctx := context.Background()
	r := f.create(t, f.alice, "Pancakes", "flour")

	res, err := svc.Rate(ctx, f.alice, r.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, RateResult{Success: true, AverageRating: 3, TotalRatings: 1}, *res)

	res, err = svc.Rate(ctx, f.bob, r.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.AverageRating)
	assert.Equal(t, 2, res.TotalRatings)
}

func TestRate_SameUserOverwrites(t *testing.T) {
	f := newRecipeFixture(t)
	svc := newTestRatingService(f, nil)
	ctx := context.Background()
	r := f.create(t, f.alice, "Pancakes", "flour")

	_, err := svc.Rate(ctx, f.bob, r.ID, 5)
	require.NoError(t, err)
	res, err := svc.Rate(ctx, f.bob, r.ID, 2)
	require.NoError(t, err)

	assert.Equal(t, 2.0, res.AverageRating)
	assert.Equal(t, 1, res.TotalRatings, "a second rating by the same user replaces the first")
}

func TestRate_InvalidatesCache(t *testing.T) {
	f := newRecipeFixture(t)
	svc := newTestRatingService(f, nil)
	ctx := context.Background()
	r := f.create(t, f.alice, "Pancakes", "flour")
	f.cache.entries[r.ID] = model.RatingSummary{Average: 1, Count: 99}

	_, err := svc.Rate(ctx, f.bob, r.ID, 4)
	require.NoError(t, err)

	assert.Equal(t, []int64{r.ID}, f.cache.invalidated)
	summary, err := svc.Average(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RatingSummary{Average: 4, Count: 1}, summary)
}

func TestRate_Errors(t *testing.T) {
	f := newRecipeFixture(t)
	svc := newTestRatingService(f, nil)
	r := f.create(t, f.alice, "Pancakes", "flour")

	tests := []struct {
		name     string
		recipeID int64
		value    int
		wantErr  error
	}{
		{"zero", r.ID, 0, apperror.ErrValidation},
		{"six", r.ID, 6, apperror.ErrValidation},
		{"negative", r.ID, -1, apperror.ErrValidation},
		{"missing recipe", 999, 3, apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Rate(context.Background(), f.bob, tt.recipeID, tt.value)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, f.store.ratings, "no rating may be stored on failure")
}

func TestRate_RangeMessage(t *testing.T) {
	f := newRecipeFixture(t)
	svc := newTestRatingService(f, nil)

	_, err := svc.Rate(context.Background(), f.bob, 1, 9)
	require.Error(t, err)
	assert.Equal(t, "Rating must be between 1 and 5", err.Error())
}

func TestRate_StorageError(t *testing.T) {
	f := newRecipeFixture(t)
	f.store.upsertErr = errors.New("database is locked")
	svc := newTestRatingService(f, nil)
	r := f.create(t, f.alice, "Pancakes", "flour")

	_, err := svc.Rate(context.Background(), f.bob, r.ID, 4)
	require.Error(t, err)
	assert.Empty(t, f.cache.invalidated)
}

func TestRate_OwnRecipeAllowed(t *testing.T) {
	f := newRecipeFixture(t)
	svc := newTestRatingService(f, nil)
	r := f.create(t, f.alice, "Pancakes", "flour")

	_, err := svc.Rate(context.Background(), f.alice, r.ID, 5)
	assert.NoError(t, err)
}

// =========================================================================
// Average TESTS
// =========================================================================

func TestAverage_NoRatings(t *testing.T) {
	f := newRecipeFixture(t)
	svc := newTestRatingService(f, nil)
	r := f.create(t, f.alice, "Pancakes", "flour")

	summary, err := svc.Average(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RatingSummary{}, summary)

	// A recipe that doesn't exist has no ratings either.
	summary, err = svc.Average(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, model.RatingSummary{}, summary)
}

func TestAverage_CacheAside(t *testing.T) {
	f := newRecipeFixture(t)
	rec := &cacheCounter{}
	svc := newTestRatingService(f, rec)
	ctx := context.Background()
	r := f.create(t, f.alice, "Pancakes", "flour")
	require.NoError(t, f.store.UpsertRating(ctx, &model.Rating{UserID: f.bob, RecipeID: r.ID, Value: 3}))

	first, err := svc.Average(ctx, r.ID)
	require.NoError(t, err)
	second, err := svc.Average(ctx, r.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, model.RatingSummary{Average: 3, Count: 1}, f.cache.entries[r.ID])
	assert.Equal(t, 1, f.store.summaryCalls, "the second read is served from the cache")

	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
}

func TestAverage_ConcurrentRatingIsNotMaskedByCache(t *testing.T) {
	f := newRecipeFixture(t)
	svc := newTestRatingService(f, nil)
	ctx := context.Background()
	r := f.create(t, f.alice, "Pancakes", "flour")

	// Bob's rating commits after Average has read the (empty) ratings but
	// before it fills the cache.
	f.store.afterSummary = func() {
		_, err := svc.Rate(ctx, f.bob, r.ID, 5)
		require.NoError(t, err)
	}

	first, err := svc.Average(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RatingSummary{}, first, "the read saw the ratings before the write")

	_, cached := f.cache.entries[r.ID]
	assert.False(t, cached, "the older summary must not be cached")

	later, err := svc.Average(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RatingSummary{Average: 5, Count: 1}, later)
}

func TestAverage_CacheErrorFallsBackToDatabase(t *testing.T) {
	f := newRecipeFixture(t)
	f.cache.getErr = errors.New("connection refused")
	svc := newTestRatingService(f, nil)
	ctx := context.Background()
	r := f.create(t, f.alice, "Pancakes", "flour")
	require.NoError(t, f.store.UpsertRating(ctx, &model.Rating{UserID: f.bob, RecipeID: r.ID, Value: 5}))

	summary, err := svc.Average(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RatingSummary{Average: 5, Count: 1}, summary)
}
