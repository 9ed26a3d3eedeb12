package routes

import (
	"net/http"

	"browsekit/browsekit/config"
	"browsekit/browsekit/controllers"
	"browsekit/browsekit/middlewares"
	httputils "browsekit/browsekit/utils/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the HTTP API. gatherer backs /metrics; nil uses the
// default registry.
func NewRouter(cfg config.Config, health *controllers.HealthController, scrape *controllers.ScrapeController, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.RequestLogger)
	r.Use(middlewares.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputils.WriteError(w, http.StatusNotFound, "Endpoint not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputils.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	r.Mount("/health", HealthRoutes(health))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Batches hold the request open for N items plus delays; no blanket timeout here.
	r.Mount("/api", ScrapeRoutes(scrape, cfg))

	return r
}
