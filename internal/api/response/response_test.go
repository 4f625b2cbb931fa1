package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/api/response"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSON_WrapsInDataEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	response.JSON(rec, map[string]string{"fingerprint": "abc"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "abc", data["fingerprint"])
}

func TestAccepted_Status202(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Accepted(rec, map[string]string{"status": "PENDING"})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body, "data")
}

func TestList_IncludesMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	response.List(rec, []string{"a", "b"}, response.ListMeta{Count: 2, Window: "24h0m0s"})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	meta, ok := body["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), meta["count"])
	assert.Equal(t, "24h0m0s", meta["window"])
}

func TestError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Error(rec, http.StatusNotFound, "JOB_NOT_FOUND", "No job for fingerprint", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "JOB_NOT_FOUND", errObj["code"])
	assert.Equal(t, "No job for fingerprint", errObj["message"])

	_, hasDetails := errObj["details"]
	assert.False(t, hasDetails)
}

func TestError_WithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Error(rec, http.StatusInternalServerError, "DELETE_PARTIAL",
		"Some resources were not removed", []string{"blob: timeout"})

	body := decode(t, rec)
	errObj := body["error"].(map[string]any)
	details, ok := errObj["details"].([]any)
	require.True(t, ok)
	assert.Len(t, details, 1)
}
