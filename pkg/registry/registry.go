// Package registry serves a read-only HTTP API over a chain catalog: a
// directory listing of known chains, and the manifest sidecar and every
// file's user-block of each, so a remote host can fetch a manifest over the wire
// and call pkg/manifest.CreateStub locally instead of needing out-of-band
// file access to the storage host.
package registry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/metador-go/ih5/internal/logger"
	"github.com/metador-go/ih5/pkg/catalog"
	"github.com/metador-go/ih5/pkg/config"
)

// Server is the chain registry's HTTP server. It supports graceful shutdown
// with a configurable timeout, mirroring the teacher's control-plane API
// server.
type Server struct {
	server       *http.Server
	store        *catalog.Store
	config       config.RegistryConfig
	shutdownOnce sync.Once
}

// NewServer creates a registry HTTP server backed by store. The server is
// created in a stopped state; call Start to begin serving requests.
func NewServer(cfg config.RegistryConfig, store *catalog.Store) *Server {
	applyDefaults(&cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(store),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{server: server, store: store, config: cfg}
}

func applyDefaults(cfg *config.RegistryConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8090
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
}

// Start starts the server and blocks until ctx is cancelled or the server
// fails. A cancelled context triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("registry server listening", "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("registry server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("registry server failed: %w", err)
	}
}

// Stop initiates a graceful shutdown. It is safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("registry server shutdown error: %w", err)
			logger.Error("registry server shutdown error", "error", err)
		} else {
			logger.Info("registry server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int {
	return s.config.Port
}
