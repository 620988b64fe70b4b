package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/flavorai/internal/apperror"
	"github.com/sakif/flavorai/internal/cache"
	"github.com/sakif/flavorai/internal/model"
	"github.com/sakif/flavorai/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// WHY FAKES?
// A fake is a working in-memory implementation of a repository interface.
// Service tests run in microseconds, exercise only business rules, and can
// inject failures (the *Err fields) that are hard to trigger with SQLite.
// Hand-written fakes keep what the fake does visible in the test file.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserRepo implements repository.UserRepository.
type fakeUserRepo struct {
	byID    map[int64]*model.User
	byEmail map[string]*model.User
	nextID  int64

	createErr   error
	getEmailErr error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[int64]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byEmail[user.Email]; ok {
		return apperror.Conflict("User with this email already exists")
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	stored := *user
	f.byID[user.ID] = &stored
	f.byEmail[user.Email] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getEmailErr != nil {
		return nil, f.getEmailErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFoundMessage("user not found")
	}
	result := *u
	return &result, nil
}

// fakeStore implements repository.RecipeRepository and
// repository.RatingRepository over maps, mirroring the SQL semantics the
// services rely on (aggregates, upsert, owner-guarded delete).
type fakeStore struct {
	mu      sync.Mutex
	users   *fakeUserRepo
	recipes map[int64]*model.Recipe
	ratings map[[2]int64]int // (userID, recipeID) → value
	nextID  int64

	listRatedCalls int
	summaryCalls   int

	listErr   error
	deleteErr error
	upsertErr error

	// afterSummary, when set, runs once after RatingSummary has read the
	// ratings and before it returns.
	afterSummary func()
}

var (
	_ repository.RecipeRepository = (*fakeStore)(nil)
	_ repository.RatingRepository = (*fakeStore)(nil)
)

func newFakeStore(users *fakeUserRepo) *fakeStore {
	return &fakeStore{
		users:   users,
		recipes: make(map[int64]*model.Recipe),
		ratings: make(map[[2]int64]int),
	}
}

func (f *fakeStore) withAuthor(r model.Recipe) model.Recipe {
	if u, ok := f.users.byID[r.AuthorID]; ok {
		a := u.Summary()
		r.Author = &a
	}
	return r
}

func (f *fakeStore) CreateRecipe(_ context.Context, recipe *model.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	recipe.ID = f.nextID
	recipe.CreatedAt = time.Now()
	recipe.UpdatedAt = recipe.CreatedAt
	*recipe = f.withAuthor(*recipe)

	stored := *recipe
	f.recipes[recipe.ID] = &stored
	return nil
}

func (f *fakeStore) GetRecipe(_ context.Context, id int64) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.recipes[id]
	if !ok {
		return nil, apperror.NotFound("recipe", id)
	}
	result := f.withAuthor(*r)
	return &result, nil
}

func (f *fakeStore) UpdateRecipe(_ context.Context, recipe *model.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.recipes[recipe.ID]; !ok {
		return apperror.NotFound("recipe", recipe.ID)
	}
	recipe.UpdatedAt = time.Now()
	stored := *recipe
	f.recipes[recipe.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteRecipe(_ context.Context, id, authorID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	r, ok := f.recipes[id]
	if !ok || r.AuthorID != authorID {
		return apperror.NotFound("recipe", id)
	}
	for key := range f.ratings {
		if key[1] == id {
			delete(f.ratings, key)
		}
	}
	delete(f.recipes, id)
	return nil
}

func (f *fakeStore) ListRecipes(_ context.Context, filter repository.RecipeFilter) ([]model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	result := []model.Recipe{}
	for _, id := range f.sortedIDs() {
		r := f.recipes[id]
		if filter.AuthorID != 0 && r.AuthorID != filter.AuthorID {
			continue
		}
		result = append(result, f.withAuthor(*r))
	}
	return result, nil
}

func (f *fakeStore) ListRatedRecipes(_ context.Context, query string) ([]model.RatedRecipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listRatedCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	q := strings.ToLower(query)
	result := []model.RatedRecipe{}
	for _, id := range f.sortedIDs() {
		r := f.recipes[id]
		if q != "" &&
			!strings.Contains(strings.ToLower(r.Title), q) &&
			!strings.Contains(strings.ToLower(r.Ingredients), q) {
			continue
		}
		summary := f.summaryLocked(id)
		result = append(result, model.RatedRecipe{
			Recipe:        f.withAuthor(*r),
			AverageRating: summary.Average,
			TotalRatings:  summary.Count,
		})
	}
	return result, nil
}

func (f *fakeStore) GetRatedRecipe(_ context.Context, id int64) (*model.RatedRecipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.recipes[id]
	if !ok {
		return nil, apperror.NotFound("recipe", id)
	}
	summary := f.summaryLocked(id)
	return &model.RatedRecipe{
		Recipe:        f.withAuthor(*r),
		AverageRating: summary.Average,
		TotalRatings:  summary.Count,
	}, nil
}

func (f *fakeStore) UpsertRating(_ context.Context, rating *model.Rating) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.ratings[[2]int64{rating.UserID, rating.RecipeID}] = rating.Value
	return nil
}

func (f *fakeStore) RatingSummary(_ context.Context, recipeID int64) (model.RatingSummary, error) {
	f.mu.Lock()
	f.summaryCalls++
	summary := f.summaryLocked(recipeID)
	hook := f.afterSummary
	f.afterSummary = nil
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return summary, nil
}

func (f *fakeStore) summaryLocked(recipeID int64) model.RatingSummary {
	var sum, n int
	for key, v := range f.ratings {
		if key[1] == recipeID {
			sum += v
			n++
		}
	}
	if n == 0 {
		return model.RatingSummary{}
	}
	return model.RatingSummary{Average: float64(sum) / float64(n), Count: n}
}

func (f *fakeStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(f.recipes))
	for id := range f.recipes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// fakeCache is an in-memory cache.RatingCache that records invalidations
// and honours generations the way the Redis cache does.
type fakeCache struct {
	entries       map[int64]model.RatingSummary
	generations   map[int64]int64
	invalidated   []int64
	getErr        error
	invalidateErr error
}

var _ cache.RatingCache = (*fakeCache)(nil)

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries:     make(map[int64]model.RatingSummary),
		generations: make(map[int64]int64),
	}
}

func (c *fakeCache) GetRatingSummary(_ context.Context, recipeID int64) (model.RatingSummary, error) {
	if c.getErr != nil {
		return model.RatingSummary{}, c.getErr
	}
	s, ok := c.entries[recipeID]
	if !ok {
		return model.RatingSummary{}, cache.ErrCacheMiss
	}
	return s, nil
}

func (c *fakeCache) Generation(_ context.Context, recipeID int64) (int64, error) {
	return c.generations[recipeID], nil
}

func (c *fakeCache) FillRatingSummary(_ context.Context, recipeID, gen int64, s model.RatingSummary) error {
	if c.generations[recipeID] == gen {
		c.entries[recipeID] = s
	}
	return nil
}

func (c *fakeCache) InvalidateRatingSummary(_ context.Context, recipeID int64) error {
	c.invalidated = append(c.invalidated, recipeID)
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	c.generations[recipeID]++
	delete(c.entries, recipeID)
	return nil
}

func (c *fakeCache) Ping(context.Context) error { return nil }
