package middleware

import (
	"net/http"
	"time"

	"github.com/sakif/flavorai/internal/metrics"
)

// Metrics records every request's method, route pattern, status and latency
// on recorder.
//
// The route pattern ("/flavors/{id}"), never the raw path, is used as the
// label so one series covers every recipe id.
func Metrics(recorder metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			recorder.ObserveHTTPRequest(r.Method, routePattern(r), wrapped.status, time.Since(start))
		})
	}
}
