package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_HTTP(t *testing.T) {
	rec := NewPrometheus()

	rec.ObserveHTTPRequest(http.MethodGet, "/flavors/{id}", http.StatusOK, 20*time.Millisecond)
	rec.ObserveHTTPRequest(http.MethodGet, "/flavors/{id}", http.StatusOK, 10*time.Millisecond)
	rec.ObserveHTTPRequest(http.MethodGet, "/flavors/{id}", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(rec.httpRequests.WithLabelValues("GET", "/flavors/{id}", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.httpRequests.WithLabelValues("GET", "/flavors/{id}", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.httpDuration))
}

func TestPrometheusRecorder_DomainCounters(t *testing.T) {
	rec := NewPrometheus()

	rec.IncUserRegistered()
	rec.IncLogin(LoginSuccess)
	rec.IncLogin(LoginFailure)
	rec.IncLogin(LoginFailure)
	rec.IncRecipeCreated()
	rec.IncRecipeUpdated()
	rec.IncRecipeDeleted()
	rec.IncRatingSubmitted()
	rec.IncRatingCacheHit()
	rec.IncRatingCacheMiss()
	rec.IncRatingCacheMiss()

	assert.Equal(t, float64(1), testutil.ToFloat64(rec.usersRegistered))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.logins.WithLabelValues(LoginSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(rec.logins.WithLabelValues(LoginFailure)))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.recipeEvents.WithLabelValues("created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.recipeEvents.WithLabelValues("updated")))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.recipeEvents.WithLabelValues("deleted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.ratingsSubmitted))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.ratingCache.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(rec.ratingCache.WithLabelValues("miss")))
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	rec := NewPrometheus()
	rec.IncRecipeCreated()

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `flavorai_recipe_events_total{event="created"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewPrometheus_IndependentRegistries(t *testing.T) {
	// Two recorders must not collide on registration.
	a := NewPrometheus()
	b := NewPrometheus()

	a.IncUserRegistered()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.usersRegistered))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.usersRegistered))
}

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = NewNoop()

	// Must be safe to call everything.
	rec.ObserveHTTPRequest("GET", "/", 200, time.Second)
	rec.IncUserRegistered()
	rec.IncLogin(LoginSuccess)
	rec.IncRecipeCreated()
	rec.IncRecipeUpdated()
	rec.IncRecipeDeleted()
	rec.IncRatingSubmitted()
	rec.IncRatingCacheHit()
	rec.IncRatingCacheMiss()
}
