// Package server provides the HTTP API for shorui.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/shorui/internal/config"
	"github.com/hyperjump/shorui/internal/detect"
	"github.com/hyperjump/shorui/internal/indexer"
	"github.com/hyperjump/shorui/internal/pipeline"
	"github.com/hyperjump/shorui/internal/registry"
	"github.com/hyperjump/shorui/internal/search"
	"github.com/hyperjump/shorui/internal/storage"
	"github.com/hyperjump/shorui/internal/watcher"
)

// maxUploadBytes caps multipart document uploads.
const maxUploadBytes = 50 << 20

// InboxLister lists watched inboxes.
type InboxLister interface {
	Inboxes() []watcher.Inbox
}

// Deps are the components the API serves.
type Deps struct {
	Search   *search.Engine
	Indexer  *indexer.Indexer
	Pipeline *pipeline.Service
	Detector *detect.Detector
	Registry *registry.Registry
	Jobs     storage.JobStore
	// Inboxes is optional; nil when no inbox is configured.
	Inboxes InboxLister
	// Storage is used to report disk usage; optional.
	Storage *config.StorageConfig
}

// Server is the HTTP server for the shorui API.
type Server struct {
	deps   Deps
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{deps: deps, config: cfg, logger: logger}
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/models", s.handleModels)
		r.Post("/detect", s.handleDetect)
		r.Post("/analyze", s.handleAnalyze)

		r.Post("/documents", s.handleSubmitDocument)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)

		r.Post("/search", s.handleSearch)
		r.Post("/suggest", s.handleSuggest)
		r.Post("/autocomplete", s.handleAutocomplete)

		r.Route("/index", func(r chi.Router) {
			r.Put("/documents", s.handleIndexEntry)
			r.Post("/batch", s.handleIndexBatch)
			r.Get("/documents/{id}", s.handleGetEntry)
			r.Patch("/documents/{id}", s.handleUpdateEntry)
			r.Delete("/documents/{id}", s.handleDeleteEntry)
		})

		r.Get("/stats", s.handleStats)
		r.Get("/inboxes", s.handleInboxes)
	})
	return r
}

func (s *Server) newHTTPServer() *http.Server {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("Starting server", zap.String("addr", addr))
	return &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = s.newHTTPServer()
	return s.server.ListenAndServe()
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = s.newHTTPServer()
	errc := make(chan error, 1)
	go func() { errc <- s.server.ListenAndServe() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.Stop(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
