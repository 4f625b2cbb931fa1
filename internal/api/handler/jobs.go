package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/api/response"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/dataset"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/store"
)

const (
	defaultListWindow = 24 * time.Hour
	maxListWindow     = 30 * 24 * time.Hour
)

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
func NewListJobsHandler(svc StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window := defaultListWindow
		if v := r.URL.Query().Get("window"); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil || parsed <= 0 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"window must be a positive duration like 24h", nil)
				return
			}
			if parsed > maxListWindow {
				parsed = maxListWindow
			}
			window = parsed
		}

		jobs, err := svc.ListRecent(r.Context(), window)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Could not list jobs", nil)
			return
		}

		response.List(w, jobs, response.ListMeta{
			Count:  len(jobs),
			Window: window.String(),
		})
	}
}

// NewDeleteJobHandler returns an http.HandlerFunc for
// DELETE /api/v1/jobs/{fingerprint}.
func NewDeleteJobHandler(svc StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fp := chi.URLParam(r, "fingerprint")
		if !dataset.ValidFingerprint(fp) {
			response.Error(w, http.StatusBadRequest, "INVALID_FINGERPRINT",
				"Fingerprint must be 64 lowercase hex characters", nil)
			return
		}

		outcome, err := svc.Delete(r.Context(), fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND",
					"No job for fingerprint", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Could not delete the job", nil)
			return
		}

		if len(outcome.Failures) > 0 {
			response.Error(w, http.StatusInternalServerError, "DELETE_PARTIAL",
				"Some resources were not removed", outcome.Failures)
			return
		}

		response.JSON(w, map[string]any{
			"fingerprint": outcome.Fingerprint,
			"deleted":     true,
		})
	}
}
