package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/oliviaenjoyslife2025/weather-data-analysis/internal/api/middleware"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler    http.HandlerFunc
	UploadHandler    http.HandlerFunc
	StatusHandler    http.HandlerFunc
	ListJobsHandler  http.HandlerFunc
	DeleteJobHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Health check is never rate limited
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/upload", orNotImplemented(deps.UploadHandler))
		r.Get("/api/v1/status/{fingerprint}", orNotImplemented(deps.StatusHandler))

		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobsHandler))
		r.Delete("/api/v1/jobs/{fingerprint}", orNotImplemented(deps.DeleteJobHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
