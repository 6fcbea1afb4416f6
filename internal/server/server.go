// Package server is the composition root: it builds the store, services,
// handlers and router from a config.Config, and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/attendance-tracker/internal/auth"
	"github.com/sakif/attendance-tracker/internal/config"
	"github.com/sakif/attendance-tracker/internal/handler"
	"github.com/sakif/attendance-tracker/internal/middleware"
	sqliteRepo "github.com/sakif/attendance-tracker/internal/repository/sqlite"
	"github.com/sakif/attendance-tracker/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it on shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every route.
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
//	POST   /api/register          → create account
//	POST   /api/login             → issue token (alias /api/authenticate)
//	GET    /api/profile           → caller profile + today's stats  [auth]
//	GET    /api/records           → list own records                [auth]
//	POST   /api/records           → create record                   [auth]
//	GET    /api/records/stats     → per-class counts for a day      [auth]
//	DELETE /api/records/{id}      → delete record                   [auth]
//	DELETE /api/records           → delete record, id in body/query [auth]
//	GET    /api/test-hash         → debug_endpoints only
//	GET    /api/verify-password   → debug_endpoints only
//	GET    /healthz               → database ping
//
// Middleware order: RequestID, RealIP, Logger, Recoverer. RealIP must
// precede the rate limiter, which keys on the client address.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(s.config.BCryptCost)

	policy := auth.OwnershipEnforced
	if !s.config.EnforceRecordOwnership {
		policy = auth.OwnershipNotEnforced
	}

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	recordService := service.NewRecordService(s.db, policy, s.config.Location(), s.logger)

	authHandler := handler.NewAuthHandler(authService, recordService, s.logger)
	recordHandler := handler.NewRecordHandler(recordService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	limiter := middleware.NewRateLimiter(s.config.AuthRatePerMinute, s.config.AuthRateBurst, s.logger)
	requireAuth := auth.RequireAuth(tokens, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/authenticate", authHandler.HandleLogin)
		})

		if s.config.DebugEndpoints {
			s.logger.Warn("password debug endpoints enabled")
			r.Get("/test-hash", authHandler.HandleTestHash)
			r.Get("/verify-password", authHandler.HandleVerifyPassword)
		}

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/profile", authHandler.HandleProfile)
			r.Get("/records", recordHandler.HandleList)
			r.Post("/records", recordHandler.HandleCreate)
			r.Get("/records/stats", recordHandler.HandleStats)
			r.Delete("/records", recordHandler.HandleDelete)
			r.Delete("/records/{id}", recordHandler.HandleDelete)
		})
	})

	s.logger.Info("routes configured",
		slog.String("ownership", policy.String()),
		slog.String("dayTimezone", s.config.Location().String()),
		slog.Bool("rateLimited", limiter != nil),
	)
	return nil
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// DB exposes the store, for tests that need to inspect state the API hides.
func (s *Server) DB() *sqliteRepo.DB {
	return s.db
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to ShutdownTimeout and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
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
