package server

import (
	"context"
	"net/http"
	"time"

	"github.com/hongminglow/portfolio-be/internal/auth"
	"github.com/hongminglow/portfolio-be/internal/config"
	"github.com/hongminglow/portfolio-be/internal/events"
	"github.com/hongminglow/portfolio-be/internal/http/handlers"
	"github.com/hongminglow/portfolio-be/internal/logging"
	"github.com/hongminglow/portfolio-be/internal/middleware"
	"github.com/hongminglow/portfolio-be/internal/portfolio"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// Handler builds the full route tree. Everything under /api/ requires a
// bearer token.
func Handler(cfg config.Config, store storage.Store, publisher events.Publisher, log logging.Logger) http.Handler {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	repo := portfolio.NewRepository(store, publisher, log.With("component", "portfolio"))

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewAuthHandler(store, tokens, log).Register(mux)

	api := http.NewServeMux()
	handlers.NewUserHandler(store, log).Register(api)
	handlers.NewPortfolioHandler(repo, log).Register(api)
	mux.Handle("/api/", middleware.RequireAuth(tokens, api))

	return middleware.CORS(cfg.CORSOrigins, middleware.Logging(log, mux))
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.Store, publisher events.Publisher, log logging.Logger) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Handler(cfg, store, publisher, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
