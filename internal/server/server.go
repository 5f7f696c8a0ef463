// Package server provides the HTTP API for docuchat.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/docuchat/docuchat/internal/catalog"
	"github.com/docuchat/docuchat/internal/config"
	"github.com/docuchat/docuchat/internal/ingest"
	"github.com/docuchat/docuchat/internal/registry"
	"github.com/docuchat/docuchat/internal/retrieval"
	"github.com/docuchat/docuchat/internal/vectorstore"
)

// Server is the HTTP server for the docuchat API.
type Server struct {
	pipeline  *ingest.Pipeline
	retrieval *retrieval.Service
	store     vectorstore.Store
	registry  registry.Registry
	catalog   *catalog.Catalog
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. The catalog may be
// nil, in which case document listing falls back to the registry only.
func NewServer(
	pipeline *ingest.Pipeline,
	ret *retrieval.Service,
	store vectorstore.Store,
	reg registry.Registry,
	cat *catalog.Catalog,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline:  pipeline,
		retrieval: ret,
		store:     store,
		registry:  reg,
		catalog:   cat,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleIngestDocument)
		r.Post("/documents/upload", s.handleUploadFile)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Delete("/documents", s.handleDeleteChunks)
		r.Post("/search", s.handleSearch)
		r.Get("/stats", s.handleStats)
		r.Delete("/namespaces/{namespace}", s.handleClearNamespace)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
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
