// Package server provides the HTTP server hosting the proxy endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"toolgate/pkg/config"
	"toolgate/pkg/proxy/handlers"
	"toolgate/pkg/proxy/middleware"
	"toolgate/pkg/telemetry/health"
	"toolgate/pkg/telemetry/metrics"
	"toolgate/pkg/upstream"
)

// Server hosts the proxy's HTTP endpoints and manages graceful shutdown.
type Server struct {
	cfg       *config.Config
	client    *upstream.Client
	collector *metrics.Collector
	prober    *health.Prober
	version   string

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a proxy server. collector may be nil when metrics are
// disabled; prober may be nil in tests.
func New(cfg *config.Config, client *upstream.Client, collector *metrics.Collector, prober *health.Prober, version string) *Server {
	return &Server{
		cfg:       cfg,
		client:    client,
		collector: collector,
		prober:    prober,
		version:   version,
	}
}

// Start starts the HTTP server and blocks until shutdown is triggered by
// context cancellation, SIGINT/SIGTERM, or a listener error.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting proxy server",
			"address", s.cfg.Server.ListenAddress,
			"upstream", s.cfg.Upstream.BaseURL,
			"model", s.cfg.Upstream.Model,
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server and the background prober.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		slog.Info("initiating graceful shutdown",
			"timeout", s.cfg.Server.ShutdownTimeout.String(),
		)

		if s.prober != nil {
			s.prober.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("proxy server stopped")
	})

	return shutdownErr
}

// Handler builds the route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/v1/chat/completions",
		handlers.NewChatHandler(s.client, s.cfg.Defaults, s.collector))
	mux.Handle("/v1/models", handlers.NewModelsHandler(s.cfg.Upstream.Model))
	mux.Handle("/health", handlers.NewHealthHandler(s.client))
	mux.Handle("/", handlers.NewInfoHandler(s.cfg.Upstream.Model, s.version))

	if s.prober != nil {
		mux.Handle("/ready", handlers.NewReadyHandler(s.prober))
	}

	if s.collector != nil {
		mux.Handle("/metrics", s.collector.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)

	return handler
}

// IsRunning reports whether the server is currently serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
