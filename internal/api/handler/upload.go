package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/api/response"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/dataset"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/dispatch"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/pkg/models"
)

// Submitter defines the dispatch interface the upload handler depends on.
type Submitter interface {
	Submit(ctx context.Context, raw []byte, filename string) (*dispatch.Submission, error)
}

type uploadResponse struct {
	Fingerprint string         `json:"fingerprint"`
	Status      string         `json:"status"`
	FromCache   bool           `json:"from_cache"`
	Report      *models.Report `json:"report,omitempty"`
}

// NewUploadHandler returns an http.HandlerFunc for POST /api/v1/upload.
// All validation happens before the dispatcher is touched, so a rejected
// upload leaves no trace in any backing store.
func NewUploadHandler(svc Submitter, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Generous slack for multipart framing around the file itself.
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
					fmt.Sprintf("File exceeds the %d byte limit", maxBytes), nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Multipart field 'file' is required", nil)
			return
		}
		defer file.Close()

		if !dataset.AllowedExtension(header.Filename) {
			response.Error(w, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE",
				"Only .csv and .xlsx files are accepted", nil)
			return
		}

		raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Could not read uploaded file", nil)
			return
		}
		if len(raw) == 0 {
			response.Error(w, http.StatusBadRequest, "EMPTY_FILE",
				"Uploaded file is empty", nil)
			return
		}
		if int64(len(raw)) > maxBytes {
			response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
				fmt.Sprintf("File exceeds the %d byte limit", maxBytes), nil)
			return
		}

		sub, err := svc.Submit(r.Context(), raw, header.Filename)
		if err != nil {
			if errors.Is(err, dataset.ErrEmptyInput) {
				response.Error(w, http.StatusBadRequest, "EMPTY_FILE",
					"Uploaded file is empty", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Could not dispatch the analysis", nil)
			return
		}

		body := uploadResponse{
			Fingerprint: sub.Fingerprint,
			Status:      sub.Status,
			FromCache:   sub.FromCache,
			Report:      sub.Report,
		}
		if sub.FromCache {
			response.JSON(w, body)
			return
		}
		response.Accepted(w, body)
	}
}
