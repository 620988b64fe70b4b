// Package main is the entry point for the FlavorAI API server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main"
// package. Keep it minimal. Its job is to:
// 1. Read configuration (environment variables, via internal/config)
// 2. Create the logger
// 3. Hand both to the server and start it
//
// All actual logic lives in imported packages (internal/server,
// internal/service, internal/handler, ...).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points. Each
// executable gets its own directory with its own main.go.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/flavorai/internal/config"
	"github.com/sakif/flavorai/internal/server"
)

const memoryPath = ":memory:"

func main() {
	// === 1. READ CONFIGURATION ===
	// Load fails on a missing JWT_SECRET or an invalid value. There is no
	// logger yet, so the error goes to the default one.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger := initLogger(cfg)

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll is `mkdir -p`. SQLite creates the file but not its parents.
	if cfg.DBPath != memoryPath {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	if cfg.AuthMode == config.AuthModeHeader && cfg.IsProduction() {
		logger.Warn("AUTH_MODE=header trusts the x-user-id header; use token mode in production")
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// initLogger builds the process logger from LOG_FORMAT and LOG_LEVEL and
// installs it as the slog default.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
