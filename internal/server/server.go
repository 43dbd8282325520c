// Package server provides the HTTP API for doctext.
package server

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/doctext/internal/config"
	"github.com/hyperjump/doctext/internal/convert"
	"github.com/hyperjump/doctext/internal/metrics"
	"go.uber.org/zap"
)

// ConvertPath is the conversion endpoint.
const ConvertPath = "/file-to-text"

// Server is the HTTP server for the doctext API.
type Server struct {
	service      *convert.Service
	config       *config.Config
	metrics      *metrics.Metrics
	logger       *zap.Logger
	maxBodyBytes atomic.Int64
	server       *http.Server
}

// NewServer creates a server with the given dependencies. m may be nil, in which
// case nothing is recorded and the metrics route is not mounted.
func NewServer(service *convert.Service, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: service,
		config:  cfg,
		metrics: m,
		logger:  logger,
	}
	s.maxBodyBytes.Store(cfg.Server.MaxBodyBytes)
	return s
}

// SetMaxBodyBytes changes the request body limit for subsequent requests.
func (s *Server) SetMaxBodyBytes(n int64) {
	if n <= 0 {
		return
	}
	s.maxBodyBytes.Store(n)
}

// MaxBodyBytes returns the current request body limit.
func (s *Server) MaxBodyBytes() int64 {
	return s.maxBodyBytes.Load()
}

// Handler builds the router with all middleware and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	r.Use(corsMiddleware(s.config.Server.CORSOrigins))
	r.Use(middleware.Compress(5))
	if rl := s.config.RateLimit; rl.Requests > 0 {
		r.Use(ipRateLimiter(rl.Requests, rl.Window))
	}

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Post(ConvertPath, s.handleFileToText)
	r.Get("/health", s.handleHealth)
	r.Get("/formats", s.handleFormats)
	if s.metrics != nil && s.config.Metrics.EnabledOrDefault() {
		r.Method(http.MethodGet, s.config.Metrics.Path, s.metrics.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
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
