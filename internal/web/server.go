package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/brandsync/reconciler/internal/artifact"
	"github.com/brandsync/reconciler/internal/review"
	"github.com/brandsync/reconciler/internal/web/handlers"
	"github.com/brandsync/reconciler/internal/web/middleware"
)

// Server represents the review web server
type Server struct {
	config     Config
	book       *review.Book
	logger     zerolog.Logger
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a server over a review book and the artifacts next to it
func NewServer(config Config, book *review.Book, logger zerolog.Logger) (*Server, error) {
	if book == nil {
		return nil, fmt.Errorf("review book is required")
	}

	defaults := DefaultConfig()
	if config.Addr == "" {
		config.Addr = defaults.Addr
	}
	if config.ArtifactDir == "" {
		config.ArtifactDir = defaults.ArtifactDir
	}
	if config.Format == "" {
		config.Format = defaults.Format
	}

	server := &Server{
		config: config,
		book:   book,
		logger: logger.With().Str("component", "web").Logger(),
	}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      server.router,
		ReadTimeout:  orDefault(config.ReadTimeout, defaults.ReadTimeout),
		WriteTimeout: orDefault(config.WriteTimeout, defaults.WriteTimeout),
		IdleTimeout:  orDefault(config.IdleTimeout, defaults.IdleTimeout),
	}

	return server, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	apiHandler := &handlers.APIHandler{
		Book:      s.book,
		Artifacts: artifact.NewWriter(s.config.ArtifactDir, s.config.Format),
	}
	reviewHandler := &handlers.ReviewHandler{Book: s.book, Logger: s.logger}

	s.router.HandleFunc("/health", apiHandler.Health).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/review", reviewHandler.ListEntries).Methods("GET")
	api.HandleFunc("/review/{id}", reviewHandler.GetEntry).Methods("GET")
	api.HandleFunc("/review/{id}/decision", reviewHandler.Decide).Methods("POST")

	api.HandleFunc("/unmatched", apiHandler.ListUnmatched).Methods("GET")
	api.HandleFunc("/rejected", apiHandler.ListRejected).Methods("GET")
	api.HandleFunc("/plan", apiHandler.ListPlan).Methods("GET")
	api.HandleFunc("/stats", apiHandler.GetStats).Methods("GET")

	s.router.Use(middleware.RequestLogging(s.logger))
	api.Use(middleware.Authentication(s.config.APIKey))
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting review server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down review server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.logger.Info().Msg("Review server stopped")
	return nil
}
