// Package core provides the API chassis for the portfolio backend. It owns
// the chi router and enforces cross-cutting concerns -- logging, panic
// recovery, request correlation, auth, and lazy plan reconciliation --
// before requests reach domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"craftfolio/internal/billing"
	"craftfolio/internal/config"
)

// Closer is anything holding resources the server must release on shutdown
// (connection pools, clients). pgxpool.Pool satisfies it.
type Closer interface {
	Close()
}

// Server encapsulates all dependencies for the API, allowing for easy
// injection during testing and distinct configuration per environment.
type Server struct {
	Config        *config.Config
	Logger        *slog.Logger
	Validator     *Validator
	Authenticator Authenticator    // Resolves tokens to Actors; injected for testability.
	Sweeper       *billing.Sweeper // Lazy plan-expiry reconciliation; nil disables the sweep.
	HealthProbes  []HealthProbe

	// V1RouteRegistrars are populated by the application entry point so
	// handler packages can register routes without core importing them.
	V1RouteRegistrars []func(chi.Router)

	// Closers are released in order during Shutdown.
	Closers []Closer

	router *chi.Mux
}

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. The caller is responsible for mounting routes
// (via MountRoutes) after construction; this separation allows tests to
// customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	for _, c := range s.Closers {
		c.Close()
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
