// Package server provides the HTTP API for the policy retrieval service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/assistant"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/config"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/ingest"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/search"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/storage"
)

// Server is the HTTP server for the retrieval API. The assistant is optional;
// without it the ask/analyze endpoints report 501.
type Server struct {
	pipeline  *ingest.Pipeline
	searcher  *search.Searcher
	assistant *assistant.Assistant
	store     storage.Store
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	pipeline *ingest.Pipeline,
	searcher *search.Searcher,
	asst *assistant.Assistant,
	store storage.Store,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline:  pipeline,
		searcher:  searcher,
		assistant: asst,
		store:     store,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/documents", s.handleIngestDocument)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Delete("/api/v1/documents", s.handleDeleteAll)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/analyze", s.handleAnalyze)
	r.Get("/api/v1/stats", s.handleStats)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
