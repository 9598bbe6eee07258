// Package api provides the HTTP API of the admin console.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/api/handler"
	"github.com/mentionwatch/console/internal/api/middleware"
	"github.com/mentionwatch/console/internal/auth"
	"github.com/mentionwatch/console/internal/automation"
	"github.com/mentionwatch/console/internal/dashboard"
	"github.com/mentionwatch/console/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version    string
	BuildTime  string
	Logger     zerolog.Logger
	Metrics    *middleware.Metrics
	Verifier   *auth.Verifier
	Upstreams  *resilience.Registry
	Dashboards *dashboard.Registry

	// Automation serves the automation routes. They are not mounted when nil.
	Automation *automation.Service

	RequireTLS bool
}

// NewRouter creates the chi router with every console route.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Dashboards == nil {
		cfg.Dashboards = dashboard.NewRegistry()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:    cfg.Version,
		BuildTime:  cfg.BuildTime,
		Upstreams:  cfg.Upstreams,
		Dashboards: cfg.Dashboards,
	})
	dashboardHandler := handler.NewDashboardHandler(cfg.Dashboards, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.Verifier)
	standardRateLimit := middleware.RateLimitByPrincipal(middleware.StandardRateLimit)
	refreshRateLimit := middleware.RateLimitByPrincipal(middleware.RefreshRateLimit)
	runRateLimit := middleware.RateLimitByPrincipal(middleware.RunRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ops/health", opsHandler.HealthCheck)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.With(standardRateLimit).Get("/ops/status", opsHandler.SystemStatus)

			r.Route("/dashboards", func(r chi.Router) {
				r.With(standardRateLimit).Get("/", dashboardHandler.ListDashboards)
				r.Route("/{dashboardId}", func(r chi.Router) {
					r.With(standardRateLimit).Get("/", dashboardHandler.GetDashboard)
					r.With(standardRateLimit).Get("/alerts", dashboardHandler.ListAlerts)
					r.With(standardRateLimit).Get("/health", dashboardHandler.GetHealth)
					r.With(refreshRateLimit).Post("/refresh", dashboardHandler.Refresh)
				})
			})

			if cfg.Automation != nil {
				automationHandler := handler.NewAutomationHandler(cfg.Automation, cfg.Logger)
				r.Route("/automation/{userId}", func(r chi.Router) {
					r.With(standardRateLimit).Get("/", automationHandler.GetStatus)
					r.With(runRateLimit).Post("/runs", automationHandler.RequestRun)
					r.With(runRateLimit, middleware.RequireJSON).Put("/enabled", automationHandler.SetEnabled)
				})
			}
		})
	})

	return r
}
