package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftline/internal/domain"
	"driftline/internal/profile"
	"driftline/internal/service/ingest"
)

// === Fakes ===

type fakeDatasetService struct {
	createFn func(ctx context.Context, req domain.CreateDatasetRequest) (*domain.Dataset, error)
	getFn    func(ctx context.Context, name string) (*domain.Dataset, error)
	listFn   func(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error)
	updateFn func(ctx context.Context, name string, req domain.UpdateDatasetRequest) (*domain.Dataset, error)
	deleteFn func(ctx context.Context, name string) error
}

func (f *fakeDatasetService) Create(ctx context.Context, req domain.CreateDatasetRequest) (*domain.Dataset, error) {
	if f.createFn == nil {
		panic("fakeDatasetService.Create called but not configured")
	}
	return f.createFn(ctx, req)
}

func (f *fakeDatasetService) Get(ctx context.Context, name string) (*domain.Dataset, error) {
	if f.getFn == nil {
		panic("fakeDatasetService.Get called but not configured")
	}
	return f.getFn(ctx, name)
}

func (f *fakeDatasetService) List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	if f.listFn == nil {
		panic("fakeDatasetService.List called but not configured")
	}
	return f.listFn(ctx, page)
}

func (f *fakeDatasetService) Update(ctx context.Context, name string, req domain.UpdateDatasetRequest) (*domain.Dataset, error) {
	if f.updateFn == nil {
		panic("fakeDatasetService.Update called but not configured")
	}
	return f.updateFn(ctx, name, req)
}

func (f *fakeDatasetService) Delete(ctx context.Context, name string) error {
	if f.deleteFn == nil {
		panic("fakeDatasetService.Delete called but not configured")
	}
	return f.deleteFn(ctx, name)
}

type fakeIngestService struct {
	scanFn    func(ctx context.Context, triggerType string) (*ingest.ScanReport, error)
	triggerFn func(ctx context.Context, name string, force bool) (*ingest.DatasetScan, error)
}

func (f *fakeIngestService) Scan(ctx context.Context, triggerType string) (*ingest.ScanReport, error) {
	if f.scanFn == nil {
		panic("fakeIngestService.Scan called but not configured")
	}
	return f.scanFn(ctx, triggerType)
}

func (f *fakeIngestService) TriggerDataset(ctx context.Context, name string, force bool) (*ingest.DatasetScan, error) {
	if f.triggerFn == nil {
		panic("fakeIngestService.TriggerDataset called but not configured")
	}
	return f.triggerFn(ctx, name, force)
}

type fakeRunService struct {
	listFn   func(ctx context.Context, filter domain.RunFilter) ([]domain.Run, int64, error)
	getFn    func(ctx context.Context, id string) (*domain.Run, error)
	eventsFn func(ctx context.Context, runID string) ([]domain.RunEvent, error)
}

func (f *fakeRunService) List(ctx context.Context, filter domain.RunFilter) ([]domain.Run, int64, error) {
	if f.listFn == nil {
		panic("fakeRunService.List called but not configured")
	}
	return f.listFn(ctx, filter)
}

func (f *fakeRunService) Get(ctx context.Context, id string) (*domain.Run, error) {
	if f.getFn == nil {
		panic("fakeRunService.Get called but not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeRunService) Events(ctx context.Context, runID string) ([]domain.RunEvent, error) {
	if f.eventsFn == nil {
		panic("fakeRunService.Events called but not configured")
	}
	return f.eventsFn(ctx, runID)
}

type fakeWatermarkService struct {
	getFn   func(ctx context.Context, source string) (*domain.Watermark, error)
	listFn  func(ctx context.Context) ([]domain.Watermark, error)
	resetFn func(ctx context.Context, source, folderTS string) (*domain.Watermark, error)
}

func (f *fakeWatermarkService) Get(ctx context.Context, source string) (*domain.Watermark, error) {
	if f.getFn == nil {
		panic("fakeWatermarkService.Get called but not configured")
	}
	return f.getFn(ctx, source)
}

func (f *fakeWatermarkService) List(ctx context.Context) ([]domain.Watermark, error) {
	if f.listFn == nil {
		panic("fakeWatermarkService.List called but not configured")
	}
	return f.listFn(ctx)
}

func (f *fakeWatermarkService) Reset(ctx context.Context, source, folderTS string) (*domain.Watermark, error) {
	if f.resetFn == nil {
		panic("fakeWatermarkService.Reset called but not configured")
	}
	return f.resetFn(ctx, source, folderTS)
}

type fakeAPIKeyService struct {
	createFn func(ctx context.Context, req domain.CreateAPIKeyRequest) (string, *domain.APIKey, error)
	listFn   func(ctx context.Context, page domain.PageRequest) ([]domain.APIKey, int64, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakeAPIKeyService) Create(ctx context.Context, req domain.CreateAPIKeyRequest) (string, *domain.APIKey, error) {
	if f.createFn == nil {
		panic("fakeAPIKeyService.Create called but not configured")
	}
	return f.createFn(ctx, req)
}

func (f *fakeAPIKeyService) List(ctx context.Context, page domain.PageRequest) ([]domain.APIKey, int64, error) {
	if f.listFn == nil {
		panic("fakeAPIKeyService.List called but not configured")
	}
	return f.listFn(ctx, page)
}

func (f *fakeAPIKeyService) Delete(ctx context.Context, id string) error {
	if f.deleteFn == nil {
		panic("fakeAPIKeyService.Delete called but not configured")
	}
	return f.deleteFn(ctx, id)
}

type fakeAuditService struct {
	listFn func(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error)
}

func (f *fakeAuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	if f.listFn == nil {
		panic("fakeAuditService.List called but not configured")
	}
	return f.listFn(ctx, filter)
}

type fakeProfiler struct {
	profileFn func(ctx context.Context, path string) (*profile.FileProfile, error)
}

func (f *fakeProfiler) Profile(ctx context.Context, path string) (*profile.FileProfile, error) {
	if f.profileFn == nil {
		panic("fakeProfiler.Profile called but not configured")
	}
	return f.profileFn(ctx, path)
}

// === Helpers ===

// testServices bundles the fakes behind a mounted router. Unset services
// panic when reached, which points straight at the missing configuration.
type testServices struct {
	datasets   *fakeDatasetService
	ingest     *fakeIngestService
	runs       *fakeRunService
	watermarks *fakeWatermarkService
	keys       *fakeAPIKeyService
	audit      *fakeAuditService
	profiler   Profiler
	maxUpload  int64
}

func newTestRouter(s testServices) http.Handler {
	if s.datasets == nil {
		s.datasets = &fakeDatasetService{}
	}
	if s.ingest == nil {
		s.ingest = &fakeIngestService{}
	}
	if s.runs == nil {
		s.runs = &fakeRunService{}
	}
	if s.watermarks == nil {
		s.watermarks = &fakeWatermarkService{}
	}
	if s.keys == nil {
		s.keys = &fakeAPIKeyService{}
	}
	if s.audit == nil {
		s.audit = &fakeAuditService{}
	}
	h := NewHandler(s.datasets, s.ingest, s.runs, s.watermarks, s.keys, s.audit, s.profiler, s.maxUpload, nil)
	r := chi.NewRouter()
	h.Mount(r, nil)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), "body: %s", rec.Body.String())
}

var apiFixedTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func apiStrPtr(s string) *string { return &s }

// === Tests ===

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newTestRouter(testServices{}), http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestHTTPStatusFromDomainError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.ErrNotFound("dataset %q not found", "orders"), http.StatusNotFound},
		{"access denied", domain.ErrAccessDenied("admin required"), http.StatusForbidden},
		{"validation", domain.ErrValidation("bucket is required"), http.StatusBadRequest},
		{"conflict", domain.ErrConflict("dataset %q already exists", "orders"), http.StatusConflict},
		{"wrapped not found", &domain.NotFoundError{Message: "gone"}, http.StatusNotFound},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, httpStatusFromDomainError(tt.err))
		})
	}
}

func TestInternalErrorsAreNotEchoed(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testServices{
		datasets: &fakeDatasetService{
			getFn: func(context.Context, string) (*domain.Dataset, error) {
				return nil, errors.New("dial tcp 10.0.0.9:5432: connection refused")
			},
		},
	})

	rec := doRequest(t, router, http.MethodGet, "/v1/datasets/orders", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, http.StatusInternalServerError, body.Code)
	assert.Equal(t, "internal error", body.Message)
	assert.NotContains(t, rec.Body.String(), "10.0.0.9")
}
