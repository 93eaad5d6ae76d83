// Package api implements the admin HTTP API: dataset registration, scan
// triggers, run inspection, watermark control, API keys, audit queries and
// the file validation report. Handlers are thin adapters over the service
// layer; authentication and rate limiting are applied by the middleware
// package when the routes are mounted.
package api

import (
	"context"
	"log/slog"

	"driftline/internal/domain"
	"driftline/internal/profile"
	"driftline/internal/service/ingest"
)

// DatasetService defines the dataset operations used by the API handler.
type DatasetService interface {
	Create(ctx context.Context, req domain.CreateDatasetRequest) (*domain.Dataset, error)
	Get(ctx context.Context, name string) (*domain.Dataset, error)
	List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error)
	Update(ctx context.Context, name string, req domain.UpdateDatasetRequest) (*domain.Dataset, error)
	Delete(ctx context.Context, name string) error
}

// IngestService defines the scan and trigger operations used by the API handler.
type IngestService interface {
	Scan(ctx context.Context, triggerType string) (*ingest.ScanReport, error)
	TriggerDataset(ctx context.Context, name string, force bool) (*ingest.DatasetScan, error)
}

// RunService defines the run query operations used by the API handler.
type RunService interface {
	List(ctx context.Context, filter domain.RunFilter) ([]domain.Run, int64, error)
	Get(ctx context.Context, id string) (*domain.Run, error)
	Events(ctx context.Context, runID string) ([]domain.RunEvent, error)
}

// WatermarkService defines the watermark operations used by the API handler.
type WatermarkService interface {
	Get(ctx context.Context, source string) (*domain.Watermark, error)
	List(ctx context.Context) ([]domain.Watermark, error)
	Reset(ctx context.Context, source, folderTS string) (*domain.Watermark, error)
}

// APIKeyService defines the API key operations used by the API handler.
type APIKeyService interface {
	Create(ctx context.Context, req domain.CreateAPIKeyRequest) (string, *domain.APIKey, error)
	List(ctx context.Context, page domain.PageRequest) ([]domain.APIKey, int64, error)
	Delete(ctx context.Context, id string) error
}

// AuditService defines the audit query operations used by the API handler.
type AuditService interface {
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error)
}

// Profiler produces a deep per-column profile of a CSV file on disk.
// Optional; a nil Profiler omits profiles from validation reports.
type Profiler interface {
	Profile(ctx context.Context, path string) (*profile.FileProfile, error)
}

// Handler serves the admin API.
type Handler struct {
	datasets   DatasetService
	ingest     IngestService
	runs       RunService
	watermarks WatermarkService
	keys       APIKeyService
	audit      AuditService
	profiler   Profiler
	maxUpload  int64
	logger     *slog.Logger
}

// defaultMaxUpload caps validation report bodies when no limit is configured.
const defaultMaxUpload = 512 << 20

// NewHandler creates the API handler. profiler may be nil (validation reports
// then carry only the pure-Go checks); maxUpload <= 0 applies the default cap.
func NewHandler(
	datasets DatasetService,
	ingestSvc IngestService,
	runs RunService,
	watermarks WatermarkService,
	keys APIKeyService,
	audit AuditService,
	profiler Profiler,
	maxUpload int64,
	logger *slog.Logger,
) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		datasets:   datasets,
		ingest:     ingestSvc,
		runs:       runs,
		watermarks: watermarks,
		keys:       keys,
		audit:      audit,
		profiler:   profiler,
		maxUpload:  maxUpload,
		logger:     logger.With("component", "api"),
	}
}
