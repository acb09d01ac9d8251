// Package server exposes the operator-facing HTTP API: health, on-demand
// sync, and Prometheus metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/magicorntech/gcp-secret-manager/internal/health"
)

// Trigger is the on-demand sync entry point.
type Trigger interface {
	RunOnce(ctx context.Context) health.SyncResult
}

// Config holds the HTTP server settings.
type Config struct {
	// Addr is the listen address.
	Addr string

	// APIToken guards POST /api/sync. Empty disables authentication.
	APIToken string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must exceed a full sync cycle.
	WriteTimeout time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig(addr, apiToken string) Config {
	return Config{
		Addr:         addr,
		APIToken:     apiToken,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
	}
}

// Server serves the HTTP API for one synchronizer process.
type Server struct {
	config  Config
	tracker *health.Tracker
	trigger Trigger
	logger  *zap.Logger
	server  *http.Server
}

// New builds the server; Start brings it up.
func New(config Config, tracker *health.Tracker, trigger Trigger, logger *zap.Logger) *Server {
	return &Server{
		config:  config,
		tracker: tracker,
		trigger: trigger,
		logger:  logger,
	}
}

// Handler returns the route mux, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/sync", s.handleSync)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start begins serving in a background goroutine. Errors other than a clean
// shutdown are reported on the returned channel.
func (s *Server) Start() <-chan error {
	health.InitMetrics()

	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.config.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
