package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftline/internal/profile"
)

func TestValidateFile_Accepted(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testServices{})

	body := "Order ID,Customer Name,Total\n1,Ada,10.50\n2,,20.00\n"
	rec := doRequest(t, router, http.MethodPost, "/v1/validate?filename=orders.csv", strings.NewReader(body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp validationReportJSON
	decodeBody(t, rec, &resp)
	assert.Equal(t, "orders.csv", resp.Filename)
	assert.Equal(t, int64(len(body)), resp.SizeBytes)
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.OK)
	assert.Equal(t, []string{"order_id", "customer_name", "total"}, resp.Result.Header)
	assert.Equal(t, 2, resp.Result.RowCount)
	assert.Equal(t, []int{2}, resp.Result.NullRows)
	assert.Equal(t, 1, resp.Result.NullsByColumn["customer_name"])
	assert.Nil(t, resp.Profile)
}

func TestValidateFile_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     string
		body       string
		wantReason string
	}{
		{
			name:       "wrong extension",
			target:     "/v1/validate?filename=orders.parquet",
			body:       "a,b\n1,2\n",
			wantReason: "not a .csv",
		},
		{
			name:       "empty file",
			target:     "/v1/validate?filename=orders.csv",
			body:       "",
			wantReason: "is empty",
		},
		{
			name:       "ragged row",
			target:     "/v1/validate?filename=orders.csv",
			body:       "a,b,c\n1,2\n",
			wantReason: "cells",
		},
		{
			name:       "duplicate header",
			target:     "/v1/validate?filename=orders.csv",
			body:       "id,Total,total\n1,2,3\n",
			wantReason: "both normalize",
		},
		{
			name:       "unparsable csv",
			target:     "/v1/validate?filename=orders.csv",
			body:       "a,b\n\"unterminated,1\n",
			wantReason: "csv parse",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doRequest(t, newTestRouter(testServices{}), http.MethodPost, tt.target, strings.NewReader(tt.body))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var resp validationReportJSON
			decodeBody(t, rec, &resp)
			require.NotNil(t, resp.Result)
			assert.False(t, resp.Result.OK)
			assert.Contains(t, resp.Result.Reason, tt.wantReason)
		})
	}
}

func TestValidateFile_TooLarge(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testServices{maxUpload: 16})

	rec := doRequest(t, router, http.MethodPost, "/v1/validate?filename=orders.csv",
		strings.NewReader("a,b\n1,2\n3,4\n5,6\n7,8\n"))

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp.Message, "16 byte limit")
}

func TestValidateFile_WithProfile(t *testing.T) {
	t.Parallel()

	var profiledPath string
	router := newTestRouter(testServices{
		profiler: &fakeProfiler{
			profileFn: func(_ context.Context, path string) (*profile.FileProfile, error) {
				profiledPath = path
				// The staged temp file must hold the posted payload.
				data, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Equal(t, "a,b\n1,2\n", string(data))
				return &profile.FileProfile{
					Path: path,
					Rows: 1,
					Columns: []profile.ColumnProfile{
						{Name: "a", Type: "BIGINT", Nulls: 0, Distinct: 1, Min: "1", Max: "1"},
						{Name: "b", Type: "BIGINT", Nulls: 0, Distinct: 1, Min: "2", Max: "2"},
					},
				}, nil
			},
		},
	})

	rec := doRequest(t, router, http.MethodPost, "/v1/validate?filename=orders.csv", strings.NewReader("a,b\n1,2\n"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp validationReportJSON
	decodeBody(t, rec, &resp)
	require.NotNil(t, resp.Profile)
	require.Len(t, resp.Profile.Columns, 2)
	assert.Equal(t, "BIGINT", resp.Profile.Columns[0].Type)
	assert.Empty(t, resp.ProfileError)

	// The staged file is cleaned up after the response.
	_, err := os.Stat(profiledPath)
	assert.True(t, os.IsNotExist(err))
}

func TestValidateFile_ProfilerFailureDegrades(t *testing.T) {
	t.Parallel()

	router := newTestRouter(testServices{
		profiler: &fakeProfiler{
			profileFn: func(context.Context, string) (*profile.FileProfile, error) {
				return nil, errors.New("duckdb: unable to open database")
			},
		},
	})

	rec := doRequest(t, router, http.MethodPost, "/v1/validate?filename=orders.csv", strings.NewReader("a,b\n1,2\n"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp validationReportJSON
	decodeBody(t, rec, &resp)
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.OK)
	assert.Nil(t, resp.Profile)
	assert.Contains(t, resp.ProfileError, "duckdb")
}

func TestValidateFile_DefaultFilename(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newTestRouter(testServices{}), http.MethodPost, "/v1/validate", strings.NewReader("a,b\n1,2\n"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp validationReportJSON
	decodeBody(t, rec, &resp)
	assert.Equal(t, "upload.csv", resp.Filename)
	assert.True(t, resp.Result.OK)
}
