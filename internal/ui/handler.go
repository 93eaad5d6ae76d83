// Package ui serves the server-rendered operator console under /ui.
// Pages are read-only views over datasets, runs and watermarks, with a
// single mutating action (triggering a dataset scan).
package ui

import (
	"context"
	"net/http"
	"strconv"

	"driftline/internal/config"
	"driftline/internal/domain"
	"driftline/internal/service/ingest"

	gomponents "maragu.dev/gomponents"
)

// DatasetService is the dataset read surface the console needs.
type DatasetService interface {
	List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error)
	Get(ctx context.Context, name string) (*domain.Dataset, error)
}

// RunService reads run history and per-run step events.
type RunService interface {
	List(ctx context.Context, filter domain.RunFilter) ([]domain.Run, int64, error)
	Get(ctx context.Context, id string) (*domain.Run, error)
	Events(ctx context.Context, runID string) ([]domain.RunEvent, error)
}

// WatermarkService reads per-source load positions.
type WatermarkService interface {
	List(ctx context.Context) ([]domain.Watermark, error)
	Get(ctx context.Context, source string) (*domain.Watermark, error)
}

// IngestService starts on-demand dataset scans.
type IngestService interface {
	TriggerDataset(ctx context.Context, name string, force bool) (*ingest.DatasetScan, error)
}

type Handler struct {
	Datasets   DatasetService
	Runs       RunService
	Watermarks WatermarkService
	Ingest     IngestService
	Auth       config.AuthConfig
	Production bool
}

func NewHandler(
	datasets DatasetService,
	runs RunService,
	watermarks WatermarkService,
	ingestSvc IngestService,
	auth config.AuthConfig,
	production bool,
) *Handler {
	return &Handler{
		Datasets:   datasets,
		Runs:       runs,
		Watermarks: watermarks,
		Ingest:     ingestSvc,
		Auth:       auth,
		Production: production,
	}
}

func pageFromRequest(r *http.Request, defaultPageSize int) domain.PageRequest {
	maxResults := defaultPageSize
	if maxResults <= 0 {
		maxResults = 25
	}
	if raw := r.URL.Query().Get("max_results"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			maxResults = parsed
		}
	}
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > 200 {
		maxResults = 200
	}
	return domain.PageRequest{
		MaxResults: maxResults,
		PageToken:  r.URL.Query().Get("page_token"),
	}
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func principalFromContext(ctx context.Context) domain.ContextPrincipal {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ContextPrincipal{Name: "unknown", Type: "user"}
	}
	return p
}
