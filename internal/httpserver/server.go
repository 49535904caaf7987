package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/studybud/backend/internal/config"
)

// Server wraps the http.Server with sensible defaults.
type Server struct {
	inner *http.Server
}

// New constructs a server listening on cfg.AppPort. WriteTimeout follows cfg.Server
// so that large uploads are not cut off.
func New(cfg config.Config, handler http.Handler) *Server {
	writeTimeout := cfg.Server.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.AppPort),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       2 * time.Minute,
		},
	}
}

// Addr reports the listen address.
func (s *Server) Addr() string {
	return s.inner.Addr
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully terminates the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
