// Package http provides the operational HTTP server exposing health,
// readiness, and metrics endpoints.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/doktor-sys/mietrecht-kms/internal/metrics"
)

// Pinger verifies the service's dependencies are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the operational endpoints. Key material never crosses this
// surface; the server exists for probes and scraping only.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new operational HTTP server.
func NewServer(
	host string,
	port int,
	logger *slog.Logger,
	pinger Pinger,
	metricsProvider *metrics.Provider,
) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(RequestLoggerMiddleware(logger))
	if metricsProvider != nil {
		router.Use(metrics.GinMiddleware(metricsProvider.MeterProvider(), "kms"))
		router.GET("/metrics", gin.WrapH(metricsProvider.Handler()))
	}

	router.GET("/healthz", HealthHandler())
	router.GET("/readyz", ReadinessHandler(pinger))

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting operational http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start operational http server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down operational http server")
	return s.server.Shutdown(ctx)
}
