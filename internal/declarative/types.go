// Package declarative parses dataset registrations from YAML files and
// applies them by upserting through the dataset service. The same loader
// feeds `driftctl apply` and the server's bootstrap directory.
package declarative

import "reflect"

// SupportedAPIVersion is the accepted apiVersion for YAML documents.
const SupportedAPIVersion = "driftline/v1"

// KindNameDataset is the accepted kind for YAML documents.
const KindNameDataset = "Dataset"

// ObjectMeta holds common metadata for named resources.
type ObjectMeta struct {
	Name string `yaml:"name"`
}

// DatasetDoc is one Dataset document in a declarative file.
type DatasetDoc struct {
	APIVersion string      `yaml:"apiVersion"`
	Kind       string      `yaml:"kind"`
	Metadata   ObjectMeta  `yaml:"metadata"`
	Spec       DatasetSpec `yaml:"spec"`
}

// DatasetSpec mirrors the dataset registration fields. The document is the
// source of truth: optional fields omitted here are cleared on apply.
type DatasetSpec struct {
	Table           string   `yaml:"table,omitempty"`
	Bucket          string   `yaml:"bucket"`
	Prefix          string   `yaml:"prefix,omitempty"`
	KeyColumns      []string `yaml:"key_columns"`
	ScheduleCron    *string  `yaml:"schedule_cron,omitempty"`
	TransformHook   *string  `yaml:"transform_hook,omitempty"`
	Paused          bool     `yaml:"paused,omitempty"`
	NotifyOnSuccess bool     `yaml:"notify_on_success,omitempty"`
}

// SchemaDocument describes one document kind for schema generation.
type SchemaDocument struct {
	Kind     string
	FileName string
	Type     reflect.Type
}

// SchemaDocumentTypes lists every document kind the loader accepts, in the
// shape cmd/declarative-schema-gen turns into JSON Schema artifacts.
func SchemaDocumentTypes() []SchemaDocument {
	return []SchemaDocument{
		{Kind: KindNameDataset, FileName: "dataset", Type: reflect.TypeOf(DatasetDoc{})},
	}
}
