package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/flavorai/internal/auth"
	"github.com/sakif/flavorai/internal/model"
	"github.com/sakif/flavorai/internal/service"
)

// RecipeHandler serves the /flavors endpoints.
//
// Protected routes run behind auth.RequireCaller, which has already put the
// caller's user id in the request context by the time these handlers run.
type RecipeHandler struct {
	recipes *service.RecipeService
	ratings *service.RatingService
	logger  *slog.Logger
}

// NewRecipeHandler creates a RecipeHandler.
func NewRecipeHandler(recipes *service.RecipeService, ratings *service.RatingService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, ratings: ratings, logger: logger}
}

type createRecipeRequest struct {
	Title        string `json:"title" validate:"required,notblank,max=200"`
	Ingredients  string `json:"ingredients" validate:"max=10000"`
	Instructions string `json:"instructions" validate:"required,notblank,max=20000"`
}

// updateRecipeRequest uses pointers so "field absent" (nil) and "field set"
// can be told apart.
type updateRecipeRequest struct {
	Title        *string `json:"title" validate:"omitempty,max=200"`
	Ingredients  *string `json:"ingredients" validate:"omitempty,max=10000"`
	Instructions *string `json:"instructions" validate:"omitempty,max=20000"`
}

type rateRequest struct {
	Value *int `json:"value" validate:"required,min=1,max=5"`
}

// caller returns the user id RequireCaller stored. Its absence means the
// route was wired without the middleware.
func caller(r *http.Request) (int64, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return 0, errors.New("handler: caller id missing from context")
	}
	return id, nil
}

// HandleCreate creates a recipe owned by the caller.
//
// HTTP: POST /flavors → 201
func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req createRecipeRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	recipe, err := h.recipes.Create(r.Context(), userID, service.RecipeInput{
		Title:        req.Title,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, recipe)
}

// HandleUpdate applies a partial update to the caller's recipe.
//
// HTTP: PATCH /flavors/{id}
func (h *RecipeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, err := recipeID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req updateRecipeRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	recipe, err := h.recipes.Update(r.Context(), userID, id, model.RecipePatch{
		Title:        req.Title,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, recipe)
}

// HandleList returns every recipe with its rating aggregate.
//
// HTTP: GET /flavors
func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.GetAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// HandleSearch matches ?q= against titles and ingredients.
//
// HTTP: GET /flavors/search?q=cake
func (h *RecipeHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// HandleMine returns the caller's recipes.
//
// HTTP: GET /flavors/my
func (h *RecipeHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	recipes, err := h.recipes.GetUserRecipes(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// HandleGet returns one recipe with its author and rating aggregate.
//
// HTTP: GET /flavors/{id}
func (h *RecipeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := recipeID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	recipe, err := h.recipes.GetOne(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// HandleDelete deletes the caller's recipe and responds with it.
//
// HTTP: DELETE /flavors/{id}
func (h *RecipeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, err := recipeID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	recipe, err := h.recipes.Remove(r.Context(), userID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// HandleRate records the caller's rating.
//
// HTTP: POST /flavors/{id}/rate
// REQUEST BODY: {"value": 4}
func (h *RecipeHandler) HandleRate(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, err := recipeID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req rateRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	res, err := h.ratings.Rate(r.Context(), userID, id, *req.Value)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRating returns a recipe's rating aggregate, {0, 0} when unrated.
//
// HTTP: GET /flavors/{id}/rating
func (h *RecipeHandler) HandleRating(w http.ResponseWriter, r *http.Request) {
	id, err := recipeID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	summary, err := h.ratings.Average(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleEdit returns the caller's own recipe for the edit form.
//
// HTTP: GET /flavors/{id}/edit
func (h *RecipeHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, err := recipeID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	recipe, err := h.recipes.GetRecipeForEdit(r.Context(), userID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}
