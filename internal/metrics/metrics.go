// Package metrics provides instrumentation hooks for the application.
//
// Services and middleware depend on the Recorder interface, never on
// Prometheus directly, so tests can pass NewNoop() and the server can run
// with metrics disabled.
package metrics

import "time"

// Login outcomes recorded by IncLogin.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Recorder captures metric events for the application.
type Recorder interface {
	// HTTP metrics. route is the chi route pattern (e.g. "/flavors/{id}"),
	// never the raw path, to keep label cardinality bounded.
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)

	// Account metrics
	IncUserRegistered()
	IncLogin(result string)

	// Recipe management metrics
	IncRecipeCreated()
	IncRecipeUpdated()
	IncRecipeDeleted()

	// Rating metrics
	IncRatingSubmitted()
	IncRatingCacheHit()
	IncRatingCacheMiss()
}
