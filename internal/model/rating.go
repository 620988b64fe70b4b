package model

import "time"

// Rating is one user's score for one recipe. (UserID, RecipeID) is unique.
type Rating struct {
	UserID    int64     `json:"userId"`
	RecipeID  int64     `json:"recipeId"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Rating bounds.
const (
	MinRatingValue = 1
	MaxRatingValue = 5
)

// RatingSummary is the aggregate of a recipe's ratings.
// Average is 0 (never NaN) when Count is 0.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
