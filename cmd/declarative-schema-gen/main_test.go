package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTightenDatasetSchema(t *testing.T) {
	defs := map[string]map[string]any{
		"DatasetSpec": {
			"properties": map[string]any{
				"table": map[string]any{"type": "string"},
				"key_columns": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
				"schedule_cron": map[string]any{"type": "string"},
			},
			"required": []string{"bucket"},
		},
		"ObjectMeta": {
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
			},
		},
	}

	tightenDatasetSchema(defs)

	assert.ElementsMatch(t, []string{"bucket", "key_columns"}, defs["DatasetSpec"]["required"])

	keyCols := defProperty(defs, "DatasetSpec", "key_columns")
	require.NotNil(t, keyCols)
	assert.Equal(t, 1, keyCols["minItems"])
	items, ok := keyCols["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, identifierPattern, items["pattern"])

	name := defProperty(defs, "ObjectMeta", "name")
	require.NotNil(t, name)
	assert.Equal(t, identifierPattern, name["pattern"])
}

func TestTightenDatasetSchema_Idempotent(t *testing.T) {
	defs := map[string]map[string]any{
		"DatasetSpec": {
			"properties": map[string]any{"key_columns": map[string]any{"type": "array"}},
			"required":   []string{"bucket", "key_columns"},
		},
	}

	tightenDatasetSchema(defs)

	assert.Equal(t, []string{"bucket", "key_columns"}, defs["DatasetSpec"]["required"])
}

func TestYamlName(t *testing.T) {
	type sample struct {
		Plain    string
		Tagged   string  `yaml:"renamed"`
		Optional *string `yaml:"opt,omitempty"`
		Skipped  string  `yaml:"-"`
	}
	st := reflect.TypeOf(sample{})

	name, omitEmpty := yamlName(st.Field(0))
	assert.Equal(t, "plain", name)
	assert.False(t, omitEmpty)

	name, omitEmpty = yamlName(st.Field(1))
	assert.Equal(t, "renamed", name)
	assert.False(t, omitEmpty)

	name, omitEmpty = yamlName(st.Field(2))
	assert.Equal(t, "opt", name)
	assert.True(t, omitEmpty)

	name, _ = yamlName(st.Field(3))
	assert.Empty(t, name)
}

func TestGenerate_DatasetArtifacts(t *testing.T) {
	outDir := t.TempDir()
	require.NoError(t, generate(outDir))

	raw, err := os.ReadFile(filepath.Join(outDir, "kinds", "dataset.schema.json"))
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	assert.Equal(t, "Driftline declarative Dataset", schema["title"])

	defs, ok := schema["$defs"].(map[string]any)
	require.True(t, ok)

	doc, ok := defs["DatasetDoc"].(map[string]any)
	require.True(t, ok)
	docRequired, ok := doc["required"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"apiVersion", "kind", "metadata", "spec"}, docRequired)

	docProps, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	apiVersion, ok := docProps["apiVersion"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"driftline/v1"}, apiVersion["enum"])
	kind, ok := docProps["kind"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"Dataset"}, kind["enum"])

	spec, ok := defs["DatasetSpec"].(map[string]any)
	require.True(t, ok)
	specRequired, ok := spec["required"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"bucket", "key_columns"}, specRequired)
	assert.Equal(t, false, spec["additionalProperties"])

	specProps, ok := spec["properties"].(map[string]any)
	require.True(t, ok)
	keyCols, ok := specProps["key_columns"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, keyCols["minItems"])
}

func TestGenerate_ManifestChecksums(t *testing.T) {
	outDir := t.TempDir()
	require.NoError(t, generate(outDir))

	raw, err := os.ReadFile(filepath.Join(outDir, "index.json"))
	require.NoError(t, err)

	var manifest struct {
		Version    string            `json:"version"`
		APIVersion string            `json:"apiVersion"`
		Files      map[string]string `json:"files"`
	}
	require.NoError(t, json.Unmarshal(raw, &manifest))

	assert.Equal(t, "v1", manifest.Version)
	assert.Equal(t, "driftline/v1", manifest.APIVersion)
	assert.Contains(t, manifest.Files, "kinds/dataset.schema.json")
	assert.Contains(t, manifest.Files, "driftline.declarative.schema.json")
	for file, sum := range manifest.Files {
		assert.Len(t, sum, 64, "checksum for %s", file)
	}
}
