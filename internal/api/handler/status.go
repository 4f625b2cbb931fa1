package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/api/response"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/dataset"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/dispatch"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/store"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/pkg/models"
)

// StatusService defines the resolver interface the status and jobs handlers
// depend on.
type StatusService interface {
	Resolve(ctx context.Context, fingerprint string, timeout time.Duration, wait bool) (*dispatch.JobState, error)
	ListRecent(ctx context.Context, window time.Duration) ([]models.JobSummary, error)
	Delete(ctx context.Context, fingerprint string) (*dispatch.DeleteOutcome, error)
}

type statusResponse struct {
	Fingerprint string         `json:"fingerprint"`
	Status      string         `json:"status"`
	Progress    int            `json:"progress"`
	Detail      string         `json:"detail,omitempty"`
	Report      *models.Report `json:"report,omitempty"`
}

// NewStatusHandler returns an http.HandlerFunc for
// GET /api/v1/status/{fingerprint}.
func NewStatusHandler(svc StatusService, defaultTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fp := chi.URLParam(r, "fingerprint")
		if !dataset.ValidFingerprint(fp) {
			response.Error(w, http.StatusBadRequest, "INVALID_FINGERPRINT",
				"Fingerprint must be 64 lowercase hex characters", nil)
			return
		}

		wait := true
		if v := r.URL.Query().Get("wait"); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"wait must be a boolean", nil)
				return
			}
			wait = parsed
		}

		timeout := defaultTimeout
		if v := r.URL.Query().Get("timeout"); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil || parsed < 0 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"timeout must be a duration like 10s", nil)
				return
			}
			timeout = parsed
		}

		state, err := svc.Resolve(r.Context(), fp, timeout, wait)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND",
					"No job for fingerprint", nil)
			case errors.Is(err, dispatch.ErrResultMissing):
				response.Error(w, http.StatusInternalServerError, "RESULT_MISSING",
					"The job succeeded but its result could not be loaded", nil)
			case errors.Is(err, dispatch.ErrHandleLost):
				response.Error(w, http.StatusInternalServerError, "HANDLE_LOST",
					"The computation is no longer tracked", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		body := statusResponse{
			Fingerprint: state.Fingerprint,
			Status:      state.Status,
			Progress:    state.Progress,
			Detail:      state.Detail,
			Report:      state.Report,
		}
		if models.IsTerminal(state.Status) {
			response.JSON(w, body)
			return
		}
		response.Accepted(w, body)
	}
}
