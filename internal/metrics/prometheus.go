package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flavorai"

// PrometheusRecorder implements Recorder with Prometheus collectors.
//
// WHY A PRIVATE REGISTRY?
// The global prometheus.DefaultRegisterer panics on duplicate registration,
// so building two servers in one test binary would crash. Each recorder owns
// its registry and exposes it through Handler().
type PrometheusRecorder struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	usersRegistered prometheus.Counter
	logins          *prometheus.CounterVec

	recipeEvents *prometheus.CounterVec

	ratingsSubmitted prometheus.Counter
	ratingCache      *prometheus.CounterVec
}

// NewPrometheus creates a recorder registered on a fresh registry, together
// with the Go runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		usersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Successful registrations.",
		}),

		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),

		recipeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipe_events_total",
			Help:      "Recipe mutations by event (created, updated, deleted).",
		}, []string{"event"}),

		ratingsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratings_submitted_total",
			Help:      "Ratings created or overwritten.",
		}),

		ratingCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_cache_lookups_total",
			Help:      "Rating summary cache lookups by result.",
		}, []string{"result"}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// ObserveHTTPRequest records one served request.
func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncUserRegistered increments the registration counter.
func (p *PrometheusRecorder) IncUserRegistered() {
	p.usersRegistered.Inc()
}

// IncLogin increments the login counter for result.
func (p *PrometheusRecorder) IncLogin(result string) {
	p.logins.WithLabelValues(result).Inc()
}

// IncRecipeCreated increments the recipe "created" counter.
func (p *PrometheusRecorder) IncRecipeCreated() {
	p.recipeEvents.WithLabelValues("created").Inc()
}

// IncRecipeUpdated increments the recipe "updated" counter.
func (p *PrometheusRecorder) IncRecipeUpdated() {
	p.recipeEvents.WithLabelValues("updated").Inc()
}

// IncRecipeDeleted increments the recipe "deleted" counter.
func (p *PrometheusRecorder) IncRecipeDeleted() {
	p.recipeEvents.WithLabelValues("deleted").Inc()
}

// IncRatingSubmitted increments the rating counter.
func (p *PrometheusRecorder) IncRatingSubmitted() {
	p.ratingsSubmitted.Inc()
}

// IncRatingCacheHit increments the cache "hit" counter.
func (p *PrometheusRecorder) IncRatingCacheHit() {
	p.ratingCache.WithLabelValues("hit").Inc()
}

// IncRatingCacheMiss increments the cache "miss" counter.
func (p *PrometheusRecorder) IncRatingCacheMiss() {
	p.ratingCache.WithLabelValues("miss").Inc()
}
