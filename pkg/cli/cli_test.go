package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturedRequest holds details captured from an incoming HTTP request.
type capturedRequest struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    string
}

// requestRecorder is a thread-safe recorder for HTTP requests received by httptest servers.
type requestRecorder struct {
	mu       sync.Mutex
	requests []capturedRequest
}

func (r *requestRecorder) record(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	body, _ := io.ReadAll(req.Body)
	defer func() { _ = req.Body.Close() }()

	r.requests = append(r.requests, capturedRequest{
		Method:  req.Method,
		Path:    req.URL.Path,
		Query:   req.URL.RawQuery,
		Headers: req.Header.Clone(),
		Body:    string(body),
	})
}

func (r *requestRecorder) last() capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return capturedRequest{}
	}
	return r.requests[len(r.requests)-1]
}

func (r *requestRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// newTestRootCmd creates a fresh root command pointed at the given httptest
// server. It isolates HOME so no real config is loaded.
func newTestRootCmd(t *testing.T, srv *httptest.Server, args ...string) *cobra.Command {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	rootCmd := newRootCmd()
	rootCmd.SetArgs(append([]string{"--host", srv.URL}, args...))
	return rootCmd
}

// jsonHandler returns an http.HandlerFunc that records the request and responds
// with the given status code and JSON body.
func jsonHandler(rec *requestRecorder, status int, respBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}
}

// === Error propagation ===

func TestCLI_ErrorPropagation(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantSubstr string
	}{
		{
			name:       "HTTP 403 forbidden",
			status:     403,
			body:       `{"code":403,"message":"admin required"}`,
			wantSubstr: "API error (HTTP 403): admin required",
		},
		{
			name:       "HTTP 404 not found",
			status:     404,
			body:       `{"code":404,"message":"dataset not found"}`,
			wantSubstr: "API error (HTTP 404): dataset not found",
		},
		{
			name:       "HTTP 500 internal error",
			status:     500,
			body:       `{"code":500,"message":"internal server error"}`,
			wantSubstr: "API error (HTTP 500): internal server error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &requestRecorder{}
			srv := httptest.NewServer(jsonHandler(rec, tc.status, tc.body))
			defer srv.Close()

			rootCmd := newTestRootCmd(t, srv, "datasets", "get", "orders")

			err := rootCmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantSubstr)
		})
	}
}

func TestCLI_ConnectionRefused(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"--host", "http://127.0.0.1:1", "datasets", "list"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute request")
}

func TestCLI_MissingRequiredArg(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{}`))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv, "datasets", "get")

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
	assert.Zero(t, rec.count(), "no request should be sent when args are missing")
}

func TestCLI_UnsupportedOutputFormat(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{}`))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv, "-o", "yaml", "datasets", "list")

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestCLI_UnknownProfile(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{}`))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv, "-p", "nonexistent", "datasets", "list")

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "nonexistent" not found`)
}

// === Configuration precedence ===

func TestCLI_EnvCredentials(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"datasets":[]}`))
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("DRIFTLINE_HOST", srv.URL)
	t.Setenv("DRIFTLINE_TOKEN", "env-token")

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"datasets", "list"})
	require.NoError(t, rootCmd.Execute())

	last := rec.last()
	assert.Equal(t, "/v1/datasets", last.Path)
	assert.Equal(t, "Bearer env-token", last.Headers.Get("Authorization"))
}

func TestCLI_ProfileCredentials(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"datasets":[]}`))
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Host: srv.URL, APIKey: "dlk_profile"},
		},
	}))

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"datasets", "list"})
	require.NoError(t, rootCmd.Execute())

	last := rec.last()
	assert.Equal(t, "/v1/datasets", last.Path)
	assert.Equal(t, "dlk_profile", last.Headers.Get("X-API-Key"))
}

func TestCLI_FlagBeatsEnv(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"datasets":[]}`))
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("DRIFTLINE_TOKEN", "env-token")

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"--host", srv.URL, "--token", "flag-token", "datasets", "list"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "Bearer flag-token", rec.last().Headers.Get("Authorization"))
}

// === Root helpers ===

func TestExecute_JSONErrorEnvelope(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 404, `{"code":404,"message":"dataset not found"}`))
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("HOME", dir)

	oldArgs := os.Args
	os.Args = []string{"driftctl", "--host", srv.URL, "-o", "json", "datasets", "get", "missing"}
	defer func() { os.Args = oldArgs }()

	restore := captureStdout(t)
	code := Execute()
	out := restore()

	assert.Equal(t, 1, code)

	var errObj map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &errObj))
	assert.Contains(t, errObj["error"], "dataset not found")
	assert.Equal(t, float64(404), errObj["http_status"])
	assert.Equal(t, float64(404), errObj["code"])
}

func TestVersionCmd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"version"})

	restore := captureStdout(t)
	err := rootCmd.Execute()
	out := restore()

	require.NoError(t, err)
	assert.Equal(t, "driftctl version dev (commit: none)\n", out)
}

func TestScanCmd(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 202,
		`{"datasets":2,"folders":5,"dispatched":3,"skipped_folders":2,"errors":0}`))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv, "scan")

	restore := captureStdout(t)
	err := rootCmd.Execute()
	out := restore()

	require.NoError(t, err)
	last := rec.last()
	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/v1/scan", last.Path)
	assert.Contains(t, out, "dispatched:")
	assert.Contains(t, out, "3")
}

func TestAuditListCmd_Filters(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200,
		`{"entries":[{"id":"a1","principal_name":"etl_admin","action":"dataset.delete","status":"success","created_at":"2024-03-01T10:00:00Z"}]}`))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv,
		"audit", "list", "--principal", "etl_admin", "--action", "dataset.delete", "--since", "2024-03-01T00:00:00Z")

	restore := captureStdout(t)
	err := rootCmd.Execute()
	out := restore()

	require.NoError(t, err)
	last := rec.last()
	assert.Equal(t, "/v1/audit", last.Path)
	values := parseQuery(t, last.Query)
	assert.Equal(t, "etl_admin", values.Get("principal"))
	assert.Equal(t, "dataset.delete", values.Get("action"))
	assert.Equal(t, "2024-03-01T00:00:00Z", values.Get("since"))
	assert.Contains(t, out, "PRINCIPAL_NAME")
	assert.Contains(t, out, "dataset.delete")
}

func TestAuditListCmd_SinceDuration(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"entries":[]}`))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv, "audit", "list", "--since", "24h")
	require.NoError(t, rootCmd.Execute())

	// A duration is converted to an absolute RFC 3339 timestamp.
	since := parseQuery(t, rec.last().Query).Get("since")
	require.NotEmpty(t, since)
	assert.NotEqual(t, "24h", since)
	assert.Contains(t, since, "T")
}
