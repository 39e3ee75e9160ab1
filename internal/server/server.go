// Package server provides the HTTP API for kioku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/indexer"
	"github.com/hyperjump/kioku/internal/search"
	"github.com/hyperjump/kioku/internal/storage"
	"github.com/hyperjump/kioku/internal/vector"
)

// WatchService manages watched directories at runtime.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the kioku API.
type Server struct {
	pipeline  *indexer.Pipeline
	retriever *search.Retriever
	store     storage.Store
	index     vector.Index
	gateway   *embedding.Gateway
	config    *config.Config
	logger    *zap.Logger

	watch      WatchService
	configPath string
	configMu   sync.Mutex

	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithWatch enables the watch directory endpoints. When configPath is set, directory
// changes are persisted to the config file.
func WithWatch(watch WatchService, configPath string) Option {
	return func(s *Server) {
		s.watch = watch
		s.configPath = configPath
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	pipeline *indexer.Pipeline,
	retriever *search.Retriever,
	store storage.Store,
	index vector.Index,
	gateway *embedding.Gateway,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pipeline:  pipeline,
		retriever: retriever,
		store:     store,
		index:     index,
		gateway:   gateway,
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.handleUploadDocument)
			r.Get("/", s.handleListDocuments)
			r.Get("/{id}", s.handleGetDocument)
			r.Delete("/{id}", s.handleDeleteDocument)
		})
		r.Post("/retrieve", s.handleRetrieve)
		r.Get("/status", s.handleStatus)
		r.Route("/watch/directories", func(r chi.Router) {
			r.Get("/", s.handleWatchDirectoriesList)
			r.Post("/", s.handleWatchDirectoriesAdd)
			r.Delete("/", s.handleWatchDirectoriesRemove)
		})
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
