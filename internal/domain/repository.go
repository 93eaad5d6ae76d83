package domain

import (
	"context"
	"time"
)

// DatasetRepository provides CRUD operations for dataset registrations.
type DatasetRepository interface {
	Create(ctx context.Context, d *Dataset) error
	GetByName(ctx context.Context, name string) (*Dataset, error)
	GetByID(ctx context.Context, id string) (*Dataset, error)
	List(ctx context.Context, page PageRequest) ([]Dataset, int64, error)
	ListActive(ctx context.Context) ([]Dataset, error)
	Update(ctx context.Context, name string, req UpdateDatasetRequest) (*Dataset, error)
	Delete(ctx context.Context, name string) error
}

// RunRepository records pipeline run history and per-run events.
type RunRepository interface {
	Create(ctx context.Context, r *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, filter RunFilter) ([]Run, int64, error)
	SetStatus(ctx context.Context, id, status string, errMsg *string) error
	SetCounts(ctx context.Context, id string, loaded, dropped int64) error
	SetRetryAttempt(ctx context.Context, id string, attempt int) error
	AddEvent(ctx context.Context, e *RunEvent) error
	ListEvents(ctx context.Context, runID string) ([]RunEvent, error)
	LatestForDataset(ctx context.Context, datasetName string) (*Run, error)
}

// AuditFilter holds filter parameters for querying audit logs.
type AuditFilter struct {
	PrincipalName *string
	Action        *string
	Status        *string
	Since         *time.Time
	Page          PageRequest
}

// AuditRepository provides operations for audit log entries.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, int64, error)
}

// APIKeyRepository provides operations for API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, k *APIKey) error
	List(ctx context.Context, page PageRequest) ([]APIKey, int64, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
