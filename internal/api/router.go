// Package api provides the HTTP API for troski.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/troski/troski-backend/internal/api/handler"
	"github.com/troski/troski-backend/internal/api/middleware"
	"github.com/troski/troski-backend/internal/api/response"
	"github.com/troski/troski-backend/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string

	// Metrics records OpenTelemetry HTTP metrics (optional).
	Metrics *middleware.Metrics

	// MetricsHandler serves /metrics (optional).
	MetricsHandler http.Handler

	// RouteService backs /api/routes and /api/directions.
	RouteService handler.RouteService

	// Registry reports provider health on the ops endpoints.
	Registry *resilience.Registry

	// TokenValidator enables bearer authentication on the route endpoints
	// when set.
	TokenValidator middleware.TokenValidator

	// RequireTLS rejects plain-HTTP requests forwarded by a load balancer.
	RequireTLS bool

	// RoutesRateLimit applies to the route endpoints
	// (default: middleware.RoutesRateLimit).
	RoutesRateLimit middleware.RateLimitConfig
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "troski-api"
	}

	routesLimit := cfg.RoutesRateLimit
	if routesLimit.RequestLimit <= 0 || routesLimit.WindowLength <= 0 {
		routesLimit = middleware.RoutesRateLimit
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", http.MethodGet)
		response.MethodNotAllowed(w, r, r.Method+" is not supported on this endpoint")
	})

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
	})
	routeHandler := handler.NewRouteHandler(cfg.RouteService, cfg.Logger)

	r.Route("/api", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.StandardRateLimit))
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Route comparison - every request costs a provider call
		r.Group(func(r chi.Router) {
			if cfg.TokenValidator != nil {
				r.Use(middleware.Auth(cfg.TokenValidator))
			}
			r.Use(middleware.RateLimitByClient(routesLimit))
			r.Get("/routes", routeHandler.Routes)
			r.Get("/directions", routeHandler.Directions)
		})
	})

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	return r
}
