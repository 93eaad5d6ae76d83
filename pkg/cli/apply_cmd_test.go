package cli

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDefinition(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

const clientsDefinition = `apiVersion: driftline/v1
kind: Dataset
metadata:
  name: clients
spec:
  table: raw.clients
  bucket: etl-landing
  prefix: clients/
  key_columns:
    - client_id
`

const ordersDefinition = `apiVersion: driftline/v1
kind: Dataset
metadata:
  name: orders
spec:
  table: raw.orders
  bucket: etl-landing
  prefix: orders/
  key_columns:
    - order_id
`

func TestApplyCmd(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200,
		`{"results":[{"name":"clients","action":"created"},{"name":"orders","action":"updated"}]}`))
	defer srv.Close()

	dir := t.TempDir()
	writeDefinition(t, dir, "10-clients.yaml", clientsDefinition)
	writeDefinition(t, dir, "20-orders.yaml", ordersDefinition)

	rootCmd := newTestRootCmd(t, srv, "apply", "--dir", dir, "--auto-approve")

	restore := captureStdout(t)
	err := rootCmd.Execute()
	out := restore()

	require.NoError(t, err)
	last := rec.last()
	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/v1/datasets/apply", last.Path)
	assert.Equal(t, "application/yaml", last.Headers.Get("Content-Type"))

	// Both files go up as one multi-document stream, in filename order.
	assert.Contains(t, last.Body, "name: clients")
	assert.Contains(t, last.Body, "name: orders")
	assert.Contains(t, last.Body, "\n---\n")
	assert.Less(t, strings.Index(last.Body, "name: clients"), strings.Index(last.Body, "name: orders"))

	assert.Contains(t, out, `created "clients" ... ok`)
	assert.Contains(t, out, `updated "orders" ... ok`)
	assert.Contains(t, out, "Apply complete: 2 succeeded, 0 failed.")
}

func TestApplyCmd_LocalValidationFailure(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"results":[]}`))
	defer srv.Close()

	dir := t.TempDir()
	writeDefinition(t, dir, "bad.yaml", "apiVersion: v2\nkind: Dataset\nmetadata:\n  name: broken\n")

	rootCmd := newTestRootCmd(t, srv, "apply", "--dir", dir, "--auto-approve")

	restore := captureStdout(t)
	err := rootCmd.Execute()
	restore()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load definitions")
	assert.Contains(t, err.Error(), "unsupported apiVersion")
	// Nothing is submitted when local validation fails.
	assert.Zero(t, rec.count())
}

func TestApplyCmd_EmptyDir(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"results":[]}`))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv, "apply", "--dir", t.TempDir(), "--auto-approve")

	restore := captureStdout(t)
	err := rootCmd.Execute()
	out := restore()

	require.NoError(t, err)
	assert.Contains(t, out, "No dataset definitions found")
	assert.Zero(t, rec.count())
}

func TestApplyCmd_RequiresApproveWithoutTTY(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"results":[]}`))
	defer srv.Close()

	dir := t.TempDir()
	writeDefinition(t, dir, "clients.yaml", clientsDefinition)

	rootCmd := newTestRootCmd(t, srv, "apply", "--dir", dir)

	restore := captureStdout(t)
	err := rootCmd.Execute()
	restore()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--auto-approve")
	assert.Zero(t, rec.count())
}
