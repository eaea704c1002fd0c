package catalog

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the ledger status of one sync run.
type RunStatus string

// RunStatus values.
const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusError   RunStatus = "error"
)

// SyncRun is one persisted run ledger row.
type SyncRun struct {
	ID           uuid.UUID  `json:"id"`
	TriggeredBy  string     `json:"triggeredBy"`
	Status       RunStatus  `json:"status"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	Fetched      int        `json:"fetched"`
	Upserted     int        `json:"upserted"`
	Failed       int        `json:"failed"`
	StaleMarked  int        `json:"staleMarked"`
	DurationMs   int64      `json:"durationMs"`
	ErrorSummary string     `json:"errorSummary,omitempty"`
}

// SyncFailure is one sanitized per-row failure entry attached to a run.
type SyncFailure struct {
	Slug   string `json:"slug,omitempty"`
	Reason string `json:"reason"`
}
