package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/flavorai/internal/apperror"
	"github.com/sakif/flavorai/internal/model"
	"github.com/sakif/flavorai/internal/repository"
)

var _ repository.RatingRepository = (*DB)(nil)

// UpsertRating inserts the rating, or overwrites the value if the user has
// already rated this recipe.
//
// WHY ONE STATEMENT?
// A "SELECT, then INSERT or UPDATE" sequence races: two concurrent requests
// from the same user can both see "no rating" and both INSERT, and one of them
// fails on the primary key (or, without the key, leaves two rows). ON CONFLICT
// resolves the collision inside SQLite in a single atomic statement.
//
// created_at is only set on the INSERT branch; the UPDATE branch touches
// value and updated_at.
func (db *DB) UpsertRating(ctx context.Context, rating *model.Rating) error {
	now := time.Now().UTC()
	rating.CreatedAt = now
	rating.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO ratings (user_id, recipe_id, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, recipe_id)
		 DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		rating.UserID,
		rating.RecipeID,
		rating.Value,
		rating.CreatedAt,
		rating.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return db.missingRatingParent(ctx, rating)
		}
		return fmt.Errorf("sqlite: upserting rating (user=%d, recipe=%d): %w",
			rating.UserID, rating.RecipeID, err)
	}

	return nil
}

// missingRatingParent names which side of a rejected rating doesn't exist.
// SQLite reports a foreign key failure without saying which key failed.
func (db *DB) missingRatingParent(ctx context.Context, rating *model.Rating) error {
	var recipeExists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM recipes WHERE id = ?)`, rating.RecipeID,
	).Scan(&recipeExists)
	if err != nil {
		return fmt.Errorf("sqlite: checking recipe %d: %w", rating.RecipeID, err)
	}
	if !recipeExists {
		return apperror.NotFound("recipe", rating.RecipeID)
	}
	return apperror.NotFound("user", rating.UserID)
}

// RatingSummary returns the mean and count of a recipe's ratings.
// A recipe with no ratings (or no such recipe) yields {0, 0}.
func (db *DB) RatingSummary(ctx context.Context, recipeID int64) (model.RatingSummary, error) {
	var summary model.RatingSummary

	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(value), 0.0), COUNT(*) FROM ratings WHERE recipe_id = ?`,
		recipeID,
	).Scan(&summary.Average, &summary.Count)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("sqlite: summarising ratings of recipe %d: %w", recipeID, err)
	}

	return summary, nil
}
