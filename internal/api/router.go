package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/sentinela/internal/api/alerts"
	"github.com/good-yellow-bee/sentinela/internal/api/auth"
	"github.com/good-yellow-bee/sentinela/internal/api/jobs"
	"github.com/good-yellow-bee/sentinela/internal/api/middleware"
	"github.com/good-yellow-bee/sentinela/internal/api/rules"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.AccessTokenTTL)
	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		// Trigger endpoints for the scheduler and automation callers.
		// CORS answers preflight before the service-key check runs.
		r.Route("/jobs", func(r chi.Router) {
			r.Use(middleware.CORS)
			r.Use(middleware.ServiceKeyAuth(s.config.ServiceKey))

			jobsHandler := jobs.NewHandler(s.runner)
			r.Post("/alerts", jobsHandler.TriggerBusiness)
			r.Post("/security", jobsHandler.TriggerSecurity)
			r.Options("/alerts", func(http.ResponseWriter, *http.Request) {})
			r.Options("/security", func(http.ResponseWriter, *http.Request) {})
		})

		// Auth routes (public, IP rate limited)
		r.Route("/auth", func(r chi.Router) {
			authHandler := auth.NewHandler(s.storage.Users(), jwtService)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(ipLimiter))
				r.Post("/login", authHandler.Login)
			})
		})

		// Rule routes (protected; toggling is admin only)
		r.Route("/rules", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))

			rulesHandler := rules.NewHandler(s.storage.Rules())
			r.Get("/", rulesHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Patch("/{id}/enabled", rulesHandler.SetEnabled)
			})
		})

		// Alert routes (protected, own alerts only)
		r.Route("/alerts", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))

			alertsHandler := alerts.NewHandler(s.storage.Alerts())
			r.Get("/", alertsHandler.List)
			r.Post("/{id}/read", alertsHandler.MarkRead)
			r.Post("/{id}/snooze", alertsHandler.Snooze)
			r.Post("/{id}/archive", alertsHandler.Archive)
		})
	})

	// Health check (public, no rate limit)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		OK(w, map[string]string{"status": "ok"})
	})

	return r
}
