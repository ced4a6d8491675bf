package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Abhishek8108/uk-stock-analyzer/config"
)

// RequestTimeout bounds every API request. Runs started through the API
// execute in the background and are not subject to it.
const RequestTimeout = 30 * time.Second

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware)

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.HandleGetRuns)
			r.Post("/", h.HandleStartRun)
			r.Get("/latest", h.HandleGetLatestRun)
			r.Get("/{id}", h.HandleGetRun)
		})
	})

	return r
}
