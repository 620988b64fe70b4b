package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/flavorai/internal/apperror"
	"github.com/sakif/flavorai/internal/cache"
	"github.com/sakif/flavorai/internal/metrics"
	"github.com/sakif/flavorai/internal/model"
	"github.com/sakif/flavorai/internal/repository"
)

// RateResult is returned by Rate.
type RateResult struct {
	Success       bool    `json:"success"`
	AverageRating float64 `json:"averageRating"`
	TotalRatings  int     `json:"totalRatings"`
}

// RatingService records ratings and serves rating aggregates.
//
// CACHE-ASIDE:
// Average reads the cache first and fills it on a miss. Rate and recipe
// deletion invalidate the entry. The fill is guarded by the generation read
// before the database, so a summary loaded before a concurrent rating is
// never cached after it. Cache errors are logged and treated as a miss; they
// never fail a request.
type RatingService struct {
	recipes repository.RecipeRepository
	ratings repository.RatingRepository
	cache   cache.RatingCache
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewRatingService creates a RatingService. A nil cache or recorder is
// replaced with its no-op implementation.
func NewRatingService(
	recipes repository.RecipeRepository,
	ratings repository.RatingRepository,
	ratingCache cache.RatingCache,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *RatingService {
	if ratingCache == nil {
		ratingCache = cache.NewNoop()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &RatingService{
		recipes: recipes,
		ratings: ratings,
		cache:   ratingCache,
		metrics: recorder,
		logger:  logger,
	}
}

// Rate records userID's rating of recipeID, replacing any earlier rating by
// the same user, and returns the recipe's fresh aggregate (unrounded).
func (s *RatingService) Rate(ctx context.Context, userID, recipeID int64, value int) (*RateResult, error) {
	if value < model.MinRatingValue || value > model.MaxRatingValue {
		return nil, apperror.ValidationFailed("value",
			fmt.Sprintf("Rating must be between %d and %d", model.MinRatingValue, model.MaxRatingValue))
	}

	if _, err := s.recipes.GetRecipe(ctx, recipeID); err != nil {
		return nil, err
	}

	rating := &model.Rating{UserID: userID, RecipeID: recipeID, Value: value}
	if err := s.ratings.UpsertRating(ctx, rating); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to save rating",
			slog.Int64("userID", userID),
			slog.Int64("recipeID", recipeID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("saving rating: %w", err)
	}
	s.metrics.IncRatingSubmitted()

	s.invalidate(ctx, recipeID)

	summary, err := s.ratings.RatingSummary(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("summarising ratings of recipe %d: %w", recipeID, err)
	}

	s.logger.Info("recipe rated",
		slog.Int64("userID", userID),
		slog.Int64("recipeID", recipeID),
		slog.Int("value", value),
	)

	return &RateResult{
		Success:       true,
		AverageRating: summary.Average,
		TotalRatings:  summary.Count,
	}, nil
}

// Average returns the mean and count of a recipe's ratings; {0, 0} when it
// has none. Not rounded.
func (s *RatingService) Average(ctx context.Context, recipeID int64) (model.RatingSummary, error) {
	summary, err := s.cache.GetRatingSummary(ctx, recipeID)
	if err == nil {
		s.metrics.IncRatingCacheHit()
		return summary, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("rating cache read failed",
			slog.Int64("recipeID", recipeID),
			slog.String("error", err.Error()),
		)
	}
	s.metrics.IncRatingCacheMiss()

	// Must be read before the database. If it can't be read, skip the fill.
	gen, genErr := s.cache.Generation(ctx, recipeID)

	summary, err = s.ratings.RatingSummary(ctx, recipeID)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("summarising ratings of recipe %d: %w", recipeID, err)
	}

	if genErr != nil {
		s.logger.Warn("rating cache generation read failed, not caching",
			slog.Int64("recipeID", recipeID),
			slog.String("error", genErr.Error()),
		)
		return summary, nil
	}
	if err := s.cache.FillRatingSummary(ctx, recipeID, gen, summary); err != nil {
		s.logger.Warn("rating cache write failed",
			slog.Int64("recipeID", recipeID),
			slog.String("error", err.Error()),
		)
	}

	return summary, nil
}

func (s *RatingService) invalidate(ctx context.Context, recipeID int64) {
	if err := s.cache.InvalidateRatingSummary(ctx, recipeID); err != nil {
		s.logger.Warn("failed to invalidate rating cache",
			slog.Int64("recipeID", recipeID),
			slog.String("error", err.Error()),
		)
	}
}
