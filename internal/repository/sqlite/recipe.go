package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/flavorai/internal/apperror"
	"github.com/sakif/flavorai/internal/model"
	"github.com/sakif/flavorai/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB ever stops satisfying RecipeRepository, the build fails here rather
// than at the distant call site in server.go.
var _ repository.RecipeRepository = (*DB)(nil)

// recipeSelect joins each recipe to its author. The column order must match
// scanRecipe.
const recipeSelect = `
	SELECT r.id, r.title, r.ingredients, r.instructions, r.author_id,
	       r.created_at, r.updated_at,
	       u.id, u.email, u.name
	FROM recipes r
	JOIN users u ON u.id = r.author_id`

// ratedRecipeSelect is recipeSelect plus the rating aggregate. LEFT JOIN keeps
// unrated recipes; AVG over no rows is NULL, which COALESCE turns into 0.
//
// Selecting r.* and u.* alongside aggregates with only GROUP BY r.id is legal
// in SQLite: the bare columns come from the group's single recipe/author row.
const ratedRecipeSelect = `
	SELECT r.id, r.title, r.ingredients, r.instructions, r.author_id,
	       r.created_at, r.updated_at,
	       u.id, u.email, u.name,
	       COALESCE(AVG(rt.value), 0.0), COUNT(rt.user_id)
	FROM recipes r
	JOIN users u ON u.id = r.author_id
	LEFT JOIN ratings rt ON rt.recipe_id = r.id`

// CreateRecipe inserts a new recipe and fills in ID, timestamps and Author.
//
// Author is re-read after the insert so the caller gets the same shape every
// other read path returns.
func (db *DB) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	now := time.Now().UTC()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO recipes (title, ingredients, instructions, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		recipe.Title,
		recipe.Ingredients,
		recipe.Instructions,
		recipe.AuthorID,
		recipe.CreatedAt,
		recipe.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", recipe.AuthorID)
		}
		return fmt.Errorf("sqlite: creating recipe: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new recipe id: %w", err)
	}
	recipe.ID = id

	author, err := db.GetUserByID(ctx, recipe.AuthorID)
	if err != nil {
		return fmt.Errorf("sqlite: loading author of recipe %d: %w", id, err)
	}
	summary := author.Summary()
	recipe.Author = &summary

	return nil
}

// GetRecipe retrieves a recipe and its author.
// Returns apperror.ErrNotFound if the recipe doesn't exist.
func (db *DB) GetRecipe(ctx context.Context, id int64) (*model.Recipe, error) {
	row := db.conn.QueryRowContext(ctx, recipeSelect+` WHERE r.id = ?`, id)

	recipe, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("recipe", id)
		}
		return nil, fmt.Errorf("sqlite: getting recipe %d: %w", id, err)
	}
	return recipe, nil
}

// GetRatedRecipe retrieves a recipe, its author and its rating aggregate.
func (db *DB) GetRatedRecipe(ctx context.Context, id int64) (*model.RatedRecipe, error) {
	row := db.conn.QueryRowContext(ctx,
		ratedRecipeSelect+` WHERE r.id = ? GROUP BY r.id`, id)

	rated, err := scanRatedRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("recipe", id)
		}
		return nil, fmt.Errorf("sqlite: getting rated recipe %d: %w", id, err)
	}
	return rated, nil
}

// ListRecipes returns recipes in insertion order, optionally only those by
// one author.
func (db *DB) ListRecipes(ctx context.Context, filter repository.RecipeFilter) ([]model.Recipe, error) {
	query := recipeSelect
	var args []any
	if filter.AuthorID != 0 {
		query += ` WHERE r.author_id = ?`
		args = append(args, filter.AuthorID)
	}
	query += ` ORDER BY r.id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recipes: %w", err)
	}
	defer rows.Close()

	recipes := []model.Recipe{}
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning recipe row: %w", err)
		}
		recipes = append(recipes, *recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating recipes: %w", err)
	}

	return recipes, nil
}

// ListRatedRecipes returns recipes with their rating aggregate. When query is
// non-empty only recipes whose title or ingredients contain it are returned.
//
// CASE-INSENSITIVE SUBSTRING MATCH:
// icontains (functions.go) folds case for any script, not just ASCII, and
// matches the query literally, so '%' and '_' are ordinary characters.
func (db *DB) ListRatedRecipes(ctx context.Context, query string) ([]model.RatedRecipe, error) {
	stmt := ratedRecipeSelect
	var args []any
	if query != "" {
		stmt += ` WHERE icontains(r.title, ?) OR icontains(r.ingredients, ?)`
		args = append(args, query, query)
	}
	stmt += ` GROUP BY r.id ORDER BY r.id`

	rows, err := db.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing rated recipes: %w", err)
	}
	defer rows.Close()

	recipes := []model.RatedRecipe{}
	for rows.Next() {
		rated, err := scanRatedRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning rated recipe row: %w", err)
		}
		recipes = append(recipes, *rated)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating rated recipes: %w", err)
	}

	return recipes, nil
}

// UpdateRecipe writes title, ingredients and instructions back.
// id, author_id and created_at are immutable.
func (db *DB) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	recipe.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE recipes
		 SET title = ?, ingredients = ?, instructions = ?, updated_at = ?
		 WHERE id = ?`,
		recipe.Title,
		recipe.Ingredients,
		recipe.Instructions,
		recipe.UpdatedAt,
		recipe.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating recipe %d: %w", recipe.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("recipe", recipe.ID)
	}

	return nil
}

// DeleteRecipe deletes the recipe's ratings and then the recipe, atomically.
//
// The recipe DELETE is guarded by author_id as well as id. If it matches no
// row (recipe gone, or owned by someone else) we return NotFound and the
// transaction rolls back, restoring the ratings deleted a statement earlier.
func (db *DB) DeleteRecipe(ctx context.Context, id, authorID int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM ratings WHERE recipe_id = ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: deleting ratings of recipe %d: %w", id, err)
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM recipes WHERE id = ? AND author_id = ?`, id, authorID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting recipe %d: %w", id, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("recipe", id)
		}
		return nil
	})
}

func scanRecipe(row rowScanner) (*model.Recipe, error) {
	var (
		r          model.Recipe
		a          model.Author
		authorName sql.NullString
	)
	if err := row.Scan(
		&r.ID, &r.Title, &r.Ingredients, &r.Instructions, &r.AuthorID,
		&r.CreatedAt, &r.UpdatedAt,
		&a.ID, &a.Email, &authorName,
	); err != nil {
		return nil, err
	}
	a.Name = stringPtr(authorName)
	r.Author = &a
	return &r, nil
}

func scanRatedRecipe(row rowScanner) (*model.RatedRecipe, error) {
	var (
		rr         model.RatedRecipe
		a          model.Author
		authorName sql.NullString
	)
	if err := row.Scan(
		&rr.ID, &rr.Title, &rr.Ingredients, &rr.Instructions, &rr.AuthorID,
		&rr.CreatedAt, &rr.UpdatedAt,
		&a.ID, &a.Email, &authorName,
		&rr.AverageRating, &rr.TotalRatings,
	); err != nil {
		return nil, err
	}
	a.Name = stringPtr(authorName)
	rr.Author = &a
	return &rr, nil
}
