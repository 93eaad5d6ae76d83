package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	var capturedID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, capturedID)
	assert.Equal(t, capturedID, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_InboundHeader(t *testing.T) {
	tests := []struct {
		name     string
		headerID string
		keep     bool
	}{
		{
			name:     "plain alphanumeric with separators",
			headerID: "abc-123_DEF",
			keep:     true,
		},
		{
			name:     "max length",
			headerID: strings.Repeat("a", 128),
			keep:     true,
		},
		{
			name:     "over max length",
			headerID: strings.Repeat("a", 129),
		},
		{
			name:     "newline",
			headerID: "fake-id\nlevel=ERROR forged",
		},
		{
			name:     "carriage return",
			headerID: "fake-id\rforged",
		},
		{
			name:     "spaces",
			headerID: "id with spaces",
		},
		{
			name:     "markup",
			headerID: "id<script>alert(1)</script>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedID string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedID = RequestIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", tt.headerID)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.NotEmpty(t, capturedID)
			if tt.keep {
				assert.Equal(t, tt.headerID, capturedID)
			} else {
				assert.NotEqual(t, tt.headerID, capturedID, "unsafe ID should be replaced")
			}
		})
	}
}

func TestRequestIDFromContext_EmptyWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, RequestIDFromContext(req.Context()))
}
