package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftline/internal/domain"
)

func TestListWatermarks(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testServices{
		watermarks: &fakeWatermarkService{
			listFn: func(context.Context) ([]domain.Watermark, error) {
				return []domain.Watermark{
					{Source: "orders", FolderTS: "2025-06-01-11-30-00", UpdatedAt: apiFixedTime},
					{Source: "customers"}, // registered but never loaded
				}, nil
			},
		},
	})

	rec := doRequest(t, router, http.MethodGet, "/v1/watermarks", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp watermarkListJSON
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Watermarks, 2)
	assert.Equal(t, "2025-06-01-11-30-00", resp.Watermarks[0].FolderTS)
	assert.Empty(t, resp.Watermarks[1].FolderTS)
}

func TestGetWatermark(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testServices{
		watermarks: &fakeWatermarkService{
			getFn: func(_ context.Context, source string) (*domain.Watermark, error) {
				if source != "orders" {
					return nil, domain.ErrNotFound("dataset %q not found", source)
				}
				return &domain.Watermark{Source: "orders", FolderTS: "2025-06-01-11-30-00", UpdatedAt: apiFixedTime}, nil
			},
		},
	})

	rec := doRequest(t, router, http.MethodGet, "/v1/watermarks/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp watermarkJSON
	decodeBody(t, rec, &resp)
	assert.Equal(t, "orders", resp.Source)
	assert.Equal(t, "2025-06-01-11-30-00", resp.FolderTS)

	rec = doRequest(t, router, http.MethodGet, "/v1/watermarks/ghost", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetWatermark(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		resetFn    func(ctx context.Context, source, folderTS string) (*domain.Watermark, error)
		wantStatus int
		wantTS     string
	}{
		{
			name: "rewind to folder",
			body: `{"folder_ts": "2025-05-01-00-00-00"}`,
			resetFn: func(_ context.Context, source, folderTS string) (*domain.Watermark, error) {
				assert.Equal(t, "orders", source)
				assert.Equal(t, "2025-05-01-00-00-00", folderTS)
				return &domain.Watermark{Source: source, FolderTS: folderTS, UpdatedAt: apiFixedTime}, nil
			},
			wantStatus: http.StatusOK,
			wantTS:     "2025-05-01-00-00-00",
		},
		{
			name: "clear forces full reload",
			body: `{"folder_ts": ""}`,
			resetFn: func(_ context.Context, source, folderTS string) (*domain.Watermark, error) {
				assert.Empty(t, folderTS)
				return &domain.Watermark{Source: source, UpdatedAt: apiFixedTime}, nil
			},
			wantStatus: http.StatusOK,
			wantTS:     "",
		},
		{
			name: "invalid timestamp",
			body: `{"folder_ts": "june 1st"}`,
			resetFn: func(_ context.Context, _, folderTS string) (*domain.Watermark, error) {
				return nil, domain.ErrValidation("folder %q is not a %s timestamp", folderTS, domain.FolderTSLayout)
			},
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := newTestRouter(testServices{
				watermarks: &fakeWatermarkService{resetFn: tt.resetFn},
			})

			rec := doRequest(t, router, http.MethodPost, "/v1/watermarks/orders/reset", strings.NewReader(tt.body))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				var resp watermarkJSON
				decodeBody(t, rec, &resp)
				assert.Equal(t, tt.wantTS, resp.FolderTS)
			}
		})
	}
}

func TestResetWatermark_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newTestRouter(testServices{}), http.MethodPost, "/v1/watermarks/orders/reset",
		strings.NewReader(`{"folder": "2025-05-01-00-00-00"}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp.Message, "folder")
}
