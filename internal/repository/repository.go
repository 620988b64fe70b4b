// Package repository declares the storage interfaces the service layer
// depends on. Implementations live in subpackages (see repository/sqlite).
package repository

import (
	"context"

	"github.com/sakif/flavorai/internal/model"
)

// RecipeFilter narrows ListRecipes. The zero value lists everything.
type RecipeFilter struct {
	AuthorID int64
}

// UserRepository is the credential store.
type UserRepository interface {
	// CreateUser inserts the user and fills in ID and timestamps.
	// A duplicate email returns an apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// RecipeRepository persists recipes. Every read returns the author summary.
type RecipeRepository interface {
	CreateRecipe(ctx context.Context, recipe *model.Recipe) error
	GetRecipe(ctx context.Context, id int64) (*model.Recipe, error)
	UpdateRecipe(ctx context.Context, recipe *model.Recipe) error
	// DeleteRecipe removes the recipe's ratings and then the recipe in one
	// transaction. Nothing is deleted unless authorID owns the recipe.
	DeleteRecipe(ctx context.Context, id, authorID int64) error
	ListRecipes(ctx context.Context, filter RecipeFilter) ([]model.Recipe, error)
	// ListRatedRecipes returns recipes with their rating aggregate. A non-empty
	// query keeps only recipes whose title or ingredients contain it,
	// ignoring case.
	ListRatedRecipes(ctx context.Context, query string) ([]model.RatedRecipe, error)
	GetRatedRecipe(ctx context.Context, id int64) (*model.RatedRecipe, error)
}

// RatingRepository persists ratings.
type RatingRepository interface {
	// UpsertRating inserts or overwrites the (UserID, RecipeID) rating atomically.
	UpsertRating(ctx context.Context, rating *model.Rating) error
	RatingSummary(ctx context.Context, recipeID int64) (model.RatingSummary, error)
}
