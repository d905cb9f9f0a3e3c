package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sandboxlabs/sandboxd/internal/dockerengine"
	"github.com/sandboxlabs/sandboxd/internal/fileupload"
	"github.com/sandboxlabs/sandboxd/internal/logger"
	"github.com/sandboxlabs/sandboxd/internal/metrics"
)

// Config controls the HTTP server's listen address and timeouts.
type Config struct {
	ListenAddress   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AdapterAPIKey   string
}

// Server serves the sandbox HTTP API.
type Server struct {
	server       *http.Server
	config       Config
	shutdownOnce sync.Once
}

// NewServer builds a Server wired to engine and uploads. It is created in a
// stopped state; call Start to begin serving. prom may be nil to disable the
// /metrics endpoint.
func NewServer(config Config, engine *dockerengine.Engine, uploads *fileupload.Collaborator, prom *metrics.Recorder) *Server {
	router := NewRouter(engine, uploads, config.AdapterAPIKey, prom)

	return &Server{
		server: &http.Server{
			Addr:         config.ListenAddress,
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		},
		config: config,
	}
}

// Start listens and serves until ctx is cancelled, then gracefully shuts
// down within the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP API server listening", "address", s.config.ListenAddress)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("HTTP API server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("HTTP API server failed: %w", err)
	}
}

// Stop gracefully shuts down the server. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("HTTP API server shutdown error: %w", err)
			logger.Error("HTTP API server shutdown error", "error", err)
			return
		}
		logger.Info("HTTP API server stopped gracefully")
	})
	return shutdownErr
}
