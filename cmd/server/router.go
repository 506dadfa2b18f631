package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-review/internal/api"
	apiMiddleware "github.com/phrazzld/scry-review/internal/api/middleware"
	"github.com/phrazzld/scry-review/internal/api/shared"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gobreaker "github.com/sony/gobreaker/v2"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(apiMiddleware.Metrics)

	reviewHandler := api.NewReviewHandler(app.progress, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(apiMiddleware.CORS(app.config.Server.CORSOrigins))
		r.Use(apiMiddleware.RateLimit(app.config.Server.RateLimit))

		r.Route("/learners/{learnerID}", func(r chi.Router) {
			r.Post("/items/{itemID}/grades", reviewHandler.RecordGrade)
			r.Delete("/items/{itemID}", reviewHandler.ResetItem)
			r.Get("/queue", reviewHandler.GetQueue)
			r.Get("/stats", reviewHandler.GetStats)
		})
	})

	r.Get("/health", app.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// handleHealth reports 503 while the storage circuit is open.
func (app *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{Status: "ok", Storage: "closed"}
	status := http.StatusOK

	if app.breaker != nil {
		state := app.breaker.State()
		resp.Storage = state.String()
		if state == gobreaker.StateOpen {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	shared.RespondWithJSON(w, r, status, resp)
}
