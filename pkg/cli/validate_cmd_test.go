package cli

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validationPassedBody = `{
	"filename": "orders.csv",
	"size_bytes": 29,
	"result": {"header": ["order_id","amount"], "row_count": 2, "null_rows": [2], "nulls_by_column": {"amount": 1}, "ok": true},
	"profile": {"rows": 2, "columns": [
		{"name":"order_id","type":"BIGINT","nulls":0,"distinct":2,"min":"1","max":"2"},
		{"name":"amount","type":"BIGINT","nulls":1,"distinct":1,"min":"10","max":"10"}
	]}
}`

func TestValidateCmd(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, validationPassedBody))
	defer srv.Close()

	csv := "order_id,amount\n1,10\n2,\n"
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	rootCmd := newTestRootCmd(t, srv, "validate", path)

	restore := captureStdout(t)
	err := rootCmd.Execute()
	out := restore()

	require.NoError(t, err)
	last := rec.last()
	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/v1/validate", last.Path)
	assert.Equal(t, "text/csv", last.Headers.Get("Content-Type"))
	assert.Equal(t, "orders.csv", parseQuery(t, last.Query).Get("filename"))
	assert.Equal(t, csv, last.Body)

	assert.Contains(t, out, "orders.csv (29 bytes)")
	assert.Contains(t, out, "Validation passed: 2 rows, 2 columns.")
	assert.Contains(t, out, "1 row(s) would be dropped by the null gate.")
	assert.Contains(t, out, "COLUMN")
	assert.Contains(t, out, "BIGINT")
}

func TestValidateCmd_FilenameOverride(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, validationPassedBody))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "upload.tmp")
	require.NoError(t, os.WriteFile(path, []byte("order_id\n1\n"), 0o600))

	rootCmd := newTestRootCmd(t, srv, "validate", path, "--filename", "orders.csv")

	restore := captureStdout(t)
	err := rootCmd.Execute()
	restore()

	require.NoError(t, err)
	assert.Equal(t, "orders.csv", parseQuery(t, rec.last().Query).Get("filename"))
}

func TestValidateCmd_MissingFile(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, validationPassedBody))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv, "validate", filepath.Join(t.TempDir(), "nope.csv"))

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open file")
	assert.Zero(t, rec.count())
}
