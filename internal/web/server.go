// Package web provides the HTTP API for transaction records.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/ledger/internal/config"
	"github.com/JonMunkholm/ledger/internal/core"
	"github.com/JonMunkholm/ledger/internal/metrics"
	"github.com/JonMunkholm/ledger/internal/web/middleware"
)

// APIPrefix is the mount point of the transaction routes.
const APIPrefix = "/api/v1/transactions"

// Server is the HTTP server for the transaction API.
type Server struct {
	service *core.Service
	metrics *metrics.Metrics
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server. A nil m gets a fresh metrics registry.
func NewServer(service *core.Service, cfg *config.Config, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		service: service,
		metrics: m,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(s.metrics.Middleware)

	if s.cfg.Security.EnableCSP {
		s.router.Use(middleware.SecurityHeaders)
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Security.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.APIKeyHeader, chimw.RequestIDHeader},
		ExposedHeaders: []string{"Retry-After", chimw.RequestIDHeader},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route(APIPrefix, func(r chi.Router) {
		r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
		r.Use(middleware.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))
		if s.cfg.Rate.Enabled {
			r.Use(middleware.NewRateLimiter(s.cfg.Rate.RequestsPerMinute).Middleware)
		}
		r.Use(withClientMetadata)

		// Batch ingestion
		var uploadMW []func(http.Handler) http.Handler
		if s.cfg.Rate.Enabled {
			uploadMW = append(uploadMW, middleware.NewRateLimiter(s.cfg.Rate.UploadLimit).Middleware)
		}
		r.With(uploadMW...).Post("/upload", s.handleUpload)
		r.Post("/uploads/{uploadID}/rollback", s.handleRollbackUpload)

		// Single records
		r.Post("/add", s.handleAddTransaction)
		r.Put("/edit/{id}", s.handleEditTransaction)
		r.Delete("/delete/{id}", s.handleDeleteTransaction)
		r.Post("/delete-multiple", s.handleDeleteTransactions)

		// Queries
		r.Get("/get", s.handleListTransactions)
		r.Get("/get/{id}", s.handleGetTransaction)
	})
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
