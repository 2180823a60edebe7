// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/config"
	"github.com/vyrodovalexey/items-api/internal/handler"
	"github.com/vyrodovalexey/items-api/internal/middleware"
	"github.com/vyrodovalexey/items-api/internal/store"
	"github.com/vyrodovalexey/items-api/internal/validation"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
	config     *config.Config
	logger     *zap.Logger
	registry   *prometheus.Registry
	events     *handler.EventHub
}

// New creates a new Server instance serving itemStore.
func New(cfg *config.Config, logger *zap.Logger, itemStore store.Store) (*Server, error) {
	s := &Server{
		router:   mux.NewRouter(),
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	s.router.NotFoundHandler = handler.StatusHandler(http.StatusNotFound, logger)
	s.router.MethodNotAllowedHandler = handler.StatusHandler(http.StatusMethodNotAllowed, logger)

	if err := s.setupMetrics(); err != nil {
		return nil, err
	}
	if err := s.setupRoutes(itemStore); err != nil {
		return nil, err
	}
	s.setupMiddleware()
	s.setupHTTPServer()

	return s, nil
}

// setupMetrics registers the runtime collectors and the HTTP metrics middleware.
// HTTP metrics run inside the router so they can label by route template.
func (s *Server) setupMetrics() error {
	if !s.config.MetricsEnabled {
		return nil
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpMetrics, err := middleware.NewHTTPMetrics(s.registry)
	if err != nil {
		return fmt.Errorf("registering http metrics: %w", err)
	}
	s.router.Use(mux.MiddlewareFunc(httpMetrics.Middleware()))

	return nil
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes(itemStore store.Store) error {
	if s.config.MetricsEnabled {
		instrumented, err := store.NewInstrumentedStore(itemStore, s.registry)
		if err != nil {
			return fmt.Errorf("registering store metrics: %w", err)
		}
		itemStore = instrumented

		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
			Registry: s.registry,
		})).Methods(http.MethodGet)
	}

	validator, err := validation.NewValidator()
	if err != nil {
		return fmt.Errorf("compiling item schemas: %w", err)
	}

	var publisher handler.Publisher
	if s.config.EventsEnabled {
		s.events = handler.NewEventHub(s.logger)
		s.events.RegisterRoutes(s.router)
		publisher = s.events

		if s.config.MetricsEnabled {
			subscribers := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "websocket_subscribers",
				Help: "Number of connected event feed subscribers",
			}, func() float64 {
				return float64(s.events.ClientCount())
			})
			if err := s.registry.Register(subscribers); err != nil {
				return fmt.Errorf("registering event feed metrics: %w", err)
			}
		}
	}

	handler.NewRESTHandler(itemStore, validator, publisher, s.logger).RegisterRoutes(s.router)

	if s.config.DocsEnabled {
		doc, err := handler.LoadOpenAPI(context.Background())
		if err != nil {
			return fmt.Errorf("loading openapi document: %w", err)
		}
		docs, err := handler.NewDocsHandler(doc, s.logger)
		if err != nil {
			return fmt.Errorf("creating docs handler: %w", err)
		}
		docs.RegisterRoutes(s.router)
	}

	return nil
}

// setupMiddleware wraps the router in the middleware chain.
// The chain sits outside the router so that preflight and unmatched
// requests are also covered.
func (s *Server) setupMiddleware() {
	allowedMethods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowedHeaders := []string{
		"Content-Type",
		middleware.RequestIDHeader,
	}

	// First listed = outermost.
	s.handler = middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.CORS(s.config.CORSOrigins, allowedMethods, allowedHeaders),
	)(s.router)
}

// setupHTTPServer configures the HTTP server.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
		zap.Bool("events_enabled", s.config.EventsEnabled),
		zap.Bool("docs_enabled", s.config.DocsEnabled),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	// Hijacked connections are not tracked by http.Server.
	if s.events != nil {
		s.events.CloseAllConnections()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}
