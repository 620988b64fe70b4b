// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → enforces ownership, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// Services accept plain Go values (ids, strings, patches), never
// *http.Request, and return apperror values, never HTTP status codes. The
// handler translates one into the other.
//
// DEPENDENCY INJECTION:
// Every service takes repository interfaces, not *sqlite.DB, so tests pass
// in-memory fakes (see *_test.go) and the service never imports the sqlite
// package.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sakif/flavorai/internal/apperror"
	"github.com/sakif/flavorai/internal/cache"
	"github.com/sakif/flavorai/internal/metrics"
	"github.com/sakif/flavorai/internal/model"
	"github.com/sakif/flavorai/internal/repository"
)

// Ownership messages. The web client displays these verbatim.
const (
	msgEditNotOwner     = "You can only edit your own recipes"
	msgDeleteNotAllowed = "Recipe not found or access denied"
)

// RecipeInput carries the fields of a new recipe.
type RecipeInput struct {
	Title        string
	Ingredients  string
	Instructions string
}

// RecipeService handles business logic for recipes.
type RecipeService struct {
	recipes repository.RecipeRepository
	cache   cache.RatingCache
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewRecipeService creates a new RecipeService. A nil cache or recorder is
// replaced with its no-op implementation.
func NewRecipeService(
	recipes repository.RecipeRepository,
	ratingCache cache.RatingCache,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *RecipeService {
	if ratingCache == nil {
		ratingCache = cache.NewNoop()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &RecipeService{
		recipes: recipes,
		cache:   ratingCache,
		metrics: recorder,
		logger:  logger,
	}
}

// Create saves a new recipe owned by authorID.
//
// Required fields are checked by the handler's request validation; the
// service stores what it is given. A missing ingredients list is "".
func (s *RecipeService) Create(ctx context.Context, authorID int64, in RecipeInput) (*model.Recipe, error) {
	recipe := &model.Recipe{
		Title:        strings.TrimSpace(in.Title),
		Ingredients:  in.Ingredients,
		Instructions: in.Instructions,
		AuthorID:     authorID,
	}

	if err := s.recipes.CreateRecipe(ctx, recipe); err != nil {
		// An unknown author id is bad input from the caller.
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to create recipe",
			slog.Int64("authorID", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating recipe: %w", err)
	}

	s.metrics.IncRecipeCreated()
	s.logger.Info("recipe created",
		slog.Int64("id", recipe.ID),
		slog.Int64("authorID", authorID),
	)

	return recipe, nil
}

// Update merges patch into the caller's recipe.
//
// STRATEGY: "Fetch then update"
//  1. Fetch the recipe (NotFound if absent)
//  2. Check the caller owns it (Forbidden otherwise)
//  3. Apply only the provided fields and save
func (s *RecipeService) Update(ctx context.Context, callerID, recipeID int64, patch model.RecipePatch) (*model.Recipe, error) {
	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	if recipe.AuthorID != callerID {
		return nil, apperror.Forbidden(msgEditNotOwner)
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "title must not be empty")
		}
		patch.Title = &title
	}
	if patch.Instructions != nil && strings.TrimSpace(*patch.Instructions) == "" {
		return nil, apperror.ValidationFailed("instructions", "instructions must not be empty")
	}

	patch.Apply(recipe)

	if err := s.recipes.UpdateRecipe(ctx, recipe); err != nil {
		s.logger.Error("failed to update recipe",
			slog.Int64("id", recipeID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating recipe: %w", err)
	}

	s.metrics.IncRecipeUpdated()
	s.logger.Info("recipe updated", slog.Int64("id", recipeID))

	return recipe, nil
}

// Remove deletes the caller's recipe together with its ratings and returns
// the deleted recipe.
//
// "Doesn't exist" and "belongs to someone else" produce the same error, so
// a caller can't probe which recipe ids exist by trying to delete them.
func (s *RecipeService) Remove(ctx context.Context, callerID, recipeID int64) (*model.Recipe, error) {
	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Forbidden(msgDeleteNotAllowed)
		}
		return nil, err
	}
	if recipe.AuthorID != callerID {
		return nil, apperror.Forbidden(msgDeleteNotAllowed)
	}

	// The repository re-checks ownership inside the transaction, so a recipe
	// deleted between the read above and this call is also reported here.
	if err := s.recipes.DeleteRecipe(ctx, recipeID, callerID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Forbidden(msgDeleteNotAllowed)
		}
		s.logger.Error("failed to delete recipe",
			slog.Int64("id", recipeID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("deleting recipe: %w", err)
	}

	if err := s.cache.InvalidateRatingSummary(ctx, recipeID); err != nil {
		s.logger.Warn("failed to invalidate rating cache",
			slog.Int64("recipeID", recipeID),
			slog.String("error", err.Error()),
		)
	}

	s.metrics.IncRecipeDeleted()
	s.logger.Info("recipe deleted", slog.Int64("id", recipeID))

	return recipe, nil
}

// GetAll returns every recipe with its author and rating aggregate, the
// average rounded to 2 decimals.
func (s *RecipeService) GetAll(ctx context.Context) ([]model.RatedRecipe, error) {
	recipes, err := s.recipes.ListRatedRecipes(ctx, "")
	if err != nil {
		s.logger.Error("failed to list recipes", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	return roundAll(recipes), nil
}

// GetOne returns a recipe with its author and rounded rating aggregate.
// Returns apperror.ErrNotFound if the recipe doesn't exist.
func (s *RecipeService) GetOne(ctx context.Context, recipeID int64) (*model.RatedRecipe, error) {
	recipe, err := s.recipes.GetRatedRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	recipe.AverageRating = roundRating(recipe.AverageRating)
	return recipe, nil
}

// GetUserRecipes returns the recipes authored by callerID.
func (s *RecipeService) GetUserRecipes(ctx context.Context, callerID int64) ([]model.Recipe, error) {
	recipes, err := s.recipes.ListRecipes(ctx, repository.RecipeFilter{AuthorID: callerID})
	if err != nil {
		s.logger.Error("failed to list user recipes",
			slog.Int64("authorID", callerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing recipes of user %d: %w", callerID, err)
	}
	return recipes, nil
}

// GetRecipeForEdit returns the caller's own recipe.
// NotFound if absent, Forbidden if someone else's.
func (s *RecipeService) GetRecipeForEdit(ctx context.Context, callerID, recipeID int64) (*model.Recipe, error) {
	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != callerID {
		return nil, apperror.Forbidden(msgEditNotOwner)
	}
	return recipe, nil
}

// Search returns recipes whose title or ingredients contain query, ignoring
// case, each with the rounded rating aggregate.
//
// A blank query returns an empty list without touching the database.
func (s *RecipeService) Search(ctx context.Context, query string) ([]model.RatedRecipe, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.RatedRecipe{}, nil
	}

	recipes, err := s.recipes.ListRatedRecipes(ctx, query)
	if err != nil {
		s.logger.Error("failed to search recipes",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("searching recipes: %w", err)
	}
	return roundAll(recipes), nil
}

func roundAll(recipes []model.RatedRecipe) []model.RatedRecipe {
	for i := range recipes {
		recipes[i].AverageRating = roundRating(recipes[i].AverageRating)
	}
	return recipes
}

// roundRating rounds to 2 decimal places, halves away from zero.
func roundRating(v float64) float64 {
	return math.Round(v*100) / 100
}
