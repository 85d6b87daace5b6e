// Package core provides the HTTP chassis for the FixMyStreet API. It builds a
// chi router, applies the cross-cutting middleware (panic recovery, request
// IDs, logging, CORS, actor resolution) and leaves domain routes to the
// handler packages, which register themselves through V1RouteRegistrars.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fixmystreet/internal/config"
)

// Server encapsulates the dependencies for the API so tests can build one
// without a database.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// HealthProbes are run by GET /health.
	HealthProbes []HealthProbe

	// V1RouteRegistrars are mounted under /v1 by MountRoutes. The entry point
	// populates them so core never imports the handler packages.
	V1RouteRegistrars []func(chi.Router)

	// Closers are released by Shutdown in order.
	Closers []func()

	router *chi.Mux
}

// NewServer validates its arguments and prepares an empty router. The caller
// mounts routes with MountRoutes after filling in registrars and probes.
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

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases everything registered in Closers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")
	for _, c := range s.Closers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c()
	}
	s.Logger.Info("server shutdown complete")
	return nil
}
