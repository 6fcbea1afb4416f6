// Package main is the entry point for the attendance tracker API.
//
// main only reads configuration, builds the logger and hands both to
// internal/server. Configuration comes from TRACKER_* environment variables
// and an optional .env file in the working directory.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/attendance-tracker/internal/config"
	"github.com/sakif/attendance-tracker/internal/server"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
