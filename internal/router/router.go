// Package router wires the ranking engine's handlers onto a chi mux.
package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/connexus-ai/companion-rank/internal/handler"
	"github.com/connexus-ai/companion-rank/internal/middleware"
)

// Dependencies holds everything the router needs to wire the ranking
// engine's HTTP surface.
type Dependencies struct {
	DB          handler.DBPinger
	Version     string
	FrontendURL string
	Metrics     *middleware.Metrics
	MetricsReg  *prometheus.Registry

	Recommender handler.Recommender
	Feedback    handler.FeedbackApplier
	MainLister  handler.MainProductLister

	// RateLimiter is nil when the engine runs without a limiter
	// configured.
	RateLimiter *middleware.RateLimiter
}

// New creates and configures the chi router with every route of the
// ranking engine's HTTP surface.
func New(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.CORS(deps.FrontendURL))
	if deps.Metrics != nil {
		r.Use(middleware.Monitoring(deps.Metrics))
	}

	r.Get("/healthz", handler.Health(deps.DB, deps.Version))
	if deps.MetricsReg != nil {
		r.Handle("/metrics", middleware.MetricsHandler(deps.MetricsReg))
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(middleware.RateLimit(deps.RateLimiter))
		}
		r.Use(middleware.Timeout(10 * time.Second))

		r.Get("/recommendations/{product_id}", handler.Recommendations(deps.Recommender))
		r.Post("/feedback", handler.Feedback(deps.Feedback))
		r.Get("/main-products", handler.MainProducts(deps.MainLister))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "route not found"})
	})

	return r
}
