// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → New() creates:
//	  sqlite.DB ─┬→ AuthService   → AuthHandler
//	  cache      ├→ RecipeService ─┬→ RecipeHandler
//	  metrics    └→ RatingService ─┘
//
// This is the "composition root" pattern: all dependencies are wired in
// one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/flavorai/internal/auth"
	"github.com/sakif/flavorai/internal/cache"
	"github.com/sakif/flavorai/internal/config"
	"github.com/sakif/flavorai/internal/handler"
	"github.com/sakif/flavorai/internal/metrics"
	"github.com/sakif/flavorai/internal/middleware"
	sqliteRepo "github.com/sakif/flavorai/internal/repository/sqlite"
	"github.com/sakif/flavorai/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database pool and, when configured, the Redis client.
// Close releases both; Start calls it after shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger

	db         *sqliteRepo.DB
	redis      *cache.Redis // nil when REDIS_URL is unset or unreachable
	prometheus *metrics.PrometheusRecorder
}

// New creates a Server from cfg: opens the database, connects the optional
// rating cache, and builds the router.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo so it can't be confused with
// the modernc.org/sqlite driver.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Redis is optional. A configured but unreachable Redis is logged and the
	// server runs uncached rather than refusing to start.
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
		rc, err := cache.New(ctx, cfg.RedisURL, cfg.RatingCacheTTL)
		cancel()
		if err != nil {
			logger.Warn("rating cache unavailable, continuing without it",
				slog.String("error", err.Error()),
			)
		} else {
			s.redis = rc
		}
	}

	if cfg.MetricsEnabled {
		s.prometheus = metrics.NewPrometheus()
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// redisConnectTimeout bounds the Redis connect and ping at startup.
const redisConnectTimeout = 3 * time.Second

func (s *Server) recorder() metrics.Recorder {
	if s.prometheus == nil {
		return metrics.NewNoop()
	}
	return s.prometheus
}

func (s *Server) ratingCache() cache.RatingCache {
	if s.redis == nil {
		return cache.NewNoop()
	}
	return s.redis
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /auth/register        → create account, returns token
//	POST   /auth/login           → returns token
//	GET    /flavors              → all recipes with rating aggregate
//	GET    /flavors/search?q=    → title/ingredient search
//	GET    /flavors/{id}         → one recipe with rating aggregate
//	GET    /flavors/{id}/rating  → rating aggregate only
//	POST   /flavors              → create            [caller]
//	GET    /flavors/my           → caller's recipes  [caller]
//	PATCH  /flavors/{id}         → partial update    [caller, owner]
//	DELETE /flavors/{id}         → delete            [caller, owner]
//	POST   /flavors/{id}/rate    → rate 1..5         [caller]
//	GET    /flavors/{id}/edit    → recipe for edit   [caller, owner]
//	GET    /healthz, /readyz     → probes
//	GET    /metrics              → Prometheus (METRICS_ENABLED)
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added:
// 1. RequestID: tag the request so every log line can be correlated. Ours,
//    not chi's: chi never writes the id back on the response, and
//    X-Request-ID is exposed to browsers through CORS
// 2. RealIP: take the client IP from X-Forwarded-For / X-Real-IP
// 3. Logger: log the request once it completes
// 4. Recoverer: inside Logger, so a recovered panic is logged as a 500
// 5. Metrics, CORS, BodyLimit
func (s *Server) setupRoutes() error {
	cfg := s.config
	recorder := s.recorder()
	ratingCache := s.ratingCache()

	// === Global Middleware ===
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Recoverer(s.logger))
	s.router.Use(middleware.Metrics(recorder))
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins())))
	s.router.Use(middleware.BodyLimit(cfg.MaxRequestBodySize))

	// === Auth building blocks ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret,
		auth.WithIssuer(cfg.JWTIssuer),
		auth.WithTTL(cfg.JWTTTL),
	)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordServiceWithCost(cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}

	// === Services ===
	// s.db implements UserRepository, RecipeRepository and RatingRepository;
	// each service only sees the interfaces it needs.
	authService := service.NewAuthService(s.db, tokens, passwords, recorder, s.logger)
	recipeService := service.NewRecipeService(s.db, ratingCache, recorder, s.logger)
	ratingService := service.NewRatingService(s.db, s.db, ratingCache, recorder, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, s.logger)
	recipeHandler := handler.NewRecipeHandler(recipeService, ratingService, s.logger)

	checks := map[string]handler.Pinger{"db": s.db}
	if s.redis != nil {
		checks["cache"] = s.redis
	}
	healthHandler := handler.NewHealthHandler(checks, s.logger)

	// === Probes and metrics ===
	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Get("/readyz", healthHandler.HandleReady)
	if s.prometheus != nil {
		s.router.Handle("/metrics", s.prometheus.Handler())
	}

	// === API Routes ===
	requireCaller := auth.RequireCaller(auth.Mode(cfg.AuthMode), tokens)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
	})

	s.router.Route("/flavors", func(r chi.Router) {
		// Public reads
		r.Get("/", recipeHandler.HandleList)
		r.Get("/search", recipeHandler.HandleSearch)
		r.Get("/{id}", recipeHandler.HandleGet)
		r.Get("/{id}/rating", recipeHandler.HandleRating)

		// Caller-scoped routes. Static "/my" wins over "/{id}" in chi's tree.
		r.Group(func(r chi.Router) {
			r.Use(requireCaller)
			r.Post("/", recipeHandler.HandleCreate)
			r.Get("/my", recipeHandler.HandleMine)
			r.Patch("/{id}", recipeHandler.HandleUpdate)
			r.Delete("/{id}", recipeHandler.HandleDelete)
			r.Post("/{id}/rate", recipeHandler.HandleRate)
			r.Get("/{id}/edit", recipeHandler.HandleEdit)
		})
	})

	s.logger.Info("routes configured",
		slog.String("auth_mode", cfg.AuthMode),
		slog.Bool("metrics", s.prometheus != nil),
		slog.Bool("rating_cache", s.redis != nil),
	)

	return nil
}

// Handler returns the fully wired router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and cache connections.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (SHUTDOWN_TIMEOUT)
// 3. Close the database (flushes WAL, releases file lock) and Redis
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.AppEnv),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
