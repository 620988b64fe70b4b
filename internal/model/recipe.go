package model

import "time"

// Recipe is a published recipe. Author is filled in by read paths that join
// the users table; it is nil on a bare row.
type Recipe struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Ingredients  string    `json:"ingredients"`
	Instructions string    `json:"instructions"`
	AuthorID     int64     `json:"authorId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Author       *Author   `json:"author,omitempty"`
}

// RecipePatch carries a partial update. A nil field means "leave unchanged";
// a non-nil empty string overwrites.
type RecipePatch struct {
	Title        *string
	Ingredients  *string
	Instructions *string
}

// Apply merges the provided fields over r.
func (p RecipePatch) Apply(r *Recipe) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Ingredients != nil {
		r.Ingredients = *p.Ingredients
	}
	if p.Instructions != nil {
		r.Instructions = *p.Instructions
	}
}

// RatedRecipe is a recipe annotated with its rating aggregate, as returned by
// the list and search endpoints.
//
// The embedded Recipe is flattened by encoding/json, so the JSON shape is the
// recipe's fields plus averageRating and totalRatings.
type RatedRecipe struct {
	Recipe
	AverageRating float64 `json:"averageRating"`
	TotalRatings  int     `json:"totalRatings"`
}
