package domain

import "time"

// Run status constants.
const (
	RunStatusPending   = "PENDING"
	RunStatusRunning   = "RUNNING"
	RunStatusSuccess   = "SUCCESS"
	RunStatusFailed    = "FAILED"
	RunStatusSkipped   = "SKIPPED"
	RunStatusCancelled = "CANCELLED"

	TriggerTypeManual    = "MANUAL"
	TriggerTypeScheduled = "SCHEDULED"
	TriggerTypeQueue     = "QUEUE"
)

// Run represents one processing attempt of one dropped file.
type Run struct {
	ID           string
	DatasetID    string
	DatasetName  string
	ObjectKey    string
	FolderTS     string
	Status       string
	TriggerType  string
	TriggeredBy  string
	RowsLoaded   int64
	RowsDropped  int64
	RetryAttempt int
	ErrorMessage *string
	StartedAt    *time.Time
	FinishedAt   *time.Time
	CreatedAt    time.Time
}

// RunEvent is one append-only step record within a run.
type RunEvent struct {
	ID      string
	RunID   string
	Step    string // e.g. "validate", "infer", "ddl", "transform", "load", "watermark", "notify"
	Level   string // "INFO", "WARN", "ERROR"
	Message string
	At      time.Time
}

// Run event levels.
const (
	EventLevelInfo  = "INFO"
	EventLevelWarn  = "WARN"
	EventLevelError = "ERROR"
)

// RunFilter holds filter parameters for querying runs.
type RunFilter struct {
	DatasetName *string
	Status      *string
	Page        PageRequest
}

// Terminal reports whether the run has reached a final status.
func (r *Run) Terminal() bool {
	switch r.Status {
	case RunStatusSuccess, RunStatusFailed, RunStatusSkipped, RunStatusCancelled:
		return true
	}
	return false
}
