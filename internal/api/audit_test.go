package api

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftline/internal/domain"
)

func TestListAuditEntries_Filters(t *testing.T) {
	t.Parallel()

	var gotFilter domain.AuditFilter
	router := newTestRouter(testServices{
		audit: &fakeAuditService{
			listFn: func(_ context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
				gotFilter = filter
				return []domain.AuditEntry{
					{
						ID:            "audit-1",
						PrincipalName: "alice@example.com",
						Action:        "dataset.trigger",
						ResourceType:  apiStrPtr("dataset"),
						ResourceName:  apiStrPtr("orders"),
						Status:        "OK",
						CreatedAt:     apiFixedTime,
					},
				}, 1, nil
			},
		},
	})

	since := apiFixedTime.Add(-24 * time.Hour)
	target := "/v1/audit?principal=alice@example.com&action=dataset.trigger&status=OK&since=" +
		url.QueryEscape(since.Format(time.RFC3339))
	rec := doRequest(t, router, http.MethodGet, target, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, gotFilter.PrincipalName)
	assert.Equal(t, "alice@example.com", *gotFilter.PrincipalName)
	require.NotNil(t, gotFilter.Action)
	assert.Equal(t, "dataset.trigger", *gotFilter.Action)
	require.NotNil(t, gotFilter.Status)
	assert.Equal(t, "OK", *gotFilter.Status)
	require.NotNil(t, gotFilter.Since)
	assert.Equal(t, since, gotFilter.Since.UTC())

	var resp auditListJSON
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "dataset.trigger", resp.Entries[0].Action)
	require.NotNil(t, resp.Entries[0].ResourceName)
	assert.Equal(t, "orders", *resp.Entries[0].ResourceName)
}

func TestListAuditEntries_BadSince(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newTestRouter(testServices{}), http.MethodGet, "/v1/audit?since=yesterday", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp.Message, "RFC 3339")
}

func TestListAuditEntries_NoFilters(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testServices{
		audit: &fakeAuditService{
			listFn: func(_ context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
				assert.Nil(t, filter.PrincipalName)
				assert.Nil(t, filter.Action)
				assert.Nil(t, filter.Status)
				assert.Nil(t, filter.Since)
				return nil, 0, nil
			},
		},
	})

	rec := doRequest(t, router, http.MethodGet, "/v1/audit", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp auditListJSON
	decodeBody(t, rec, &resp)
	assert.Empty(t, resp.Entries)
}
