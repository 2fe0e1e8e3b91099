package middleware

import (
	"log/slog"
	"net/http"

	"github.com/argobridge/argobridge/internal/config"
)

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware in order.
type Chain struct {
	middlewares []Middleware
}

func New(middlewares ...Middleware) Chain {
	return Chain{middlewares: middlewares}
}

// Then adds more middleware to the chain.
func (c Chain) Then(middlewares ...Middleware) Chain {
	return Chain{middlewares: append(c.middlewares, middlewares...)}
}

// Handler applies all middleware in the chain to the given handler.
func (c Chain) Handler(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}

	return handler
}

// Set holds the configured middleware for composition into route chains.
type Set struct {
	Logging Middleware
	Auth    Middleware
}

func NewSet(config *config.Manager, logger *slog.Logger) Set {
	return Set{
		Logging: NewLoggingMiddleware(logger),
		Auth:    NewAuthMiddleware(config, logger),
	}
}

// DefaultChain is the standard chain for API endpoints.
func (s Set) DefaultChain() Chain {
	return New(s.Logging, s.Auth)
}

// HealthChain skips authentication for liveness probes.
func (s Set) HealthChain() Chain {
	return New(s.Logging)
}
