package declarative

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersYAML = `apiVersion: driftline/v1
kind: Dataset
metadata:
  name: orders
spec:
  bucket: s3://landing
  key_columns: [order_id]
  schedule_cron: "0 * * * *"
`

const refundsYAML = `apiVersion: driftline/v1
kind: Dataset
metadata:
  name: refunds
spec:
  bucket: gs://finance-landing
  key_columns: [refund_id]
  paused: true
`

func TestParse_MultiDocument(t *testing.T) {
	data := []byte(`apiVersion: driftline/v1
kind: Dataset
metadata:
  name: orders
spec:
  table: orders_raw
  bucket: s3://landing
  prefix: exports/orders
  key_columns: [order_id, region]
  schedule_cron: "0 * * * *"
  notify_on_success: true
---
` + refundsYAML)

	docs, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	orders := docs[0]
	assert.Equal(t, "orders", orders.Metadata.Name)
	assert.Equal(t, "orders_raw", orders.Spec.Table)
	assert.Equal(t, "s3://landing", orders.Spec.Bucket)
	assert.Equal(t, "exports/orders", orders.Spec.Prefix)
	assert.Equal(t, []string{"order_id", "region"}, orders.Spec.KeyColumns)
	require.NotNil(t, orders.Spec.ScheduleCron)
	assert.Equal(t, "0 * * * *", *orders.Spec.ScheduleCron)
	assert.True(t, orders.Spec.NotifyOnSuccess)

	refunds := docs[1]
	assert.Equal(t, "refunds", refunds.Metadata.Name)
	assert.True(t, refunds.Spec.Paused)
	assert.Nil(t, refunds.Spec.ScheduleCron)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "wrong apiVersion",
			yaml:    "apiVersion: v99\nkind: Dataset\nmetadata:\n  name: orders\n",
			wantErr: "unsupported apiVersion",
		},
		{
			name:    "wrong kind",
			yaml:    "apiVersion: driftline/v1\nkind: Pipeline\nmetadata:\n  name: orders\n",
			wantErr: "unexpected kind",
		},
		{
			name:    "missing name",
			yaml:    "apiVersion: driftline/v1\nkind: Dataset\nspec:\n  bucket: s3://landing\n",
			wantErr: "metadata.name is required",
		},
		{
			name:    "unknown field rejected",
			yaml:    "apiVersion: driftline/v1\nkind: Dataset\nmetadata:\n  name: orders\nspec:\n  bucket: s3://landing\n  retries: 3\n",
			wantErr: "field retries not found",
		},
		{
			name:    "duplicate name",
			yaml:    ordersYAML + "---\n" + ordersYAML,
			wantErr: `dataset "orders" already declared`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_SkipsBlankDocuments(t *testing.T) {
	data := []byte("---\n" + ordersYAML + "---\n")
	docs, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "orders", docs[0].Metadata.Name)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read")
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.yaml"), []byte(ordersYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "refunds.yml"), []byte(refundsYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("not yaml"), 0o644))

	docs, err := LoadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "orders", docs[0].Metadata.Name)
	assert.Equal(t, "refunds", docs[1].Metadata.Name)
}

func TestLoadDirectory_Missing(t *testing.T) {
	docs, err := LoadDirectory(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoadDirectory_DuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(ordersYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(ordersYAML), 0o644))

	_, err := LoadDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `dataset "orders" already declared`)
	assert.Contains(t, err.Error(), "a.yaml")
}
