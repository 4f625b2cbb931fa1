package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// IsTerminal reports whether a job status is a final state.
func IsTerminal(status string) bool {
	return status == StatusSuccess || status == StatusFailure
}

// Job tracks one dispatched analysis per dataset fingerprint. The API returns
// the fingerprint on POST /api/v1/upload; the client polls
// GET /api/v1/status/{fingerprint} until status is SUCCESS or FAILURE.
// The computation handle never leaves the server.
type Job struct {
	Fingerprint  string    `db:"fingerprint"   json:"fingerprint"`
	Handle       uuid.UUID `db:"handle"        json:"-"`
	Status       string    `db:"status"        json:"status"`
	BlobKey      string    `db:"blob_key"      json:"blob_key"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

// JobSummary is the listing projection returned by GET /api/v1/jobs.
type JobSummary struct {
	Fingerprint string `json:"fingerprint"`
	Status      string `json:"status"`
	Timestamp   int64  `json:"timestamp"`
}
