// Command declarative-schema-gen emits JSON Schema artifacts for the
// declarative YAML documents `driftctl apply` accepts, so editors and CI can
// validate definition files without a running server. The schemas are derived
// from the loader's own document structs; regenerate after changing them.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"driftline/internal/declarative"
)

// identifierPattern mirrors the server-side dataset name rule.
const identifierPattern = "^[a-zA-Z_][a-zA-Z0-9_]*$"

type generator struct {
	defs map[string]map[string]any
}

func newGenerator() *generator {
	return &generator{defs: map[string]map[string]any{}}
}

// schemaFor maps a Go type onto its JSON Schema fragment, registering named
// struct definitions under $defs as it descends.
func (g *generator) schemaFor(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": g.schemaFor(t.Elem())}
	case reflect.Map:
		return map[string]any{"type": "object", "additionalProperties": g.schemaFor(t.Elem())}
	case reflect.Struct:
		name := t.Name()
		if name == "" {
			return map[string]any{"type": "object", "additionalProperties": true}
		}
		if _, seen := g.defs[name]; !seen {
			g.defs[name] = g.structDef(t)
		}
		return map[string]any{"$ref": "#/$defs/" + name}
	default:
		return map[string]any{}
	}
}

func (g *generator) structDef(t reflect.Type) map[string]any {
	properties := map[string]any{}
	required := []string{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitEmpty := yamlName(field)
		if name == "" {
			continue
		}

		properties[name] = g.schemaFor(field.Type)

		// A scalar field without omitempty cannot be left out of the document
		// (the zero value would be ambiguous), so the schema requires it.
		kind := field.Type.Kind()
		if !omitEmpty && kind != reflect.Pointer && kind != reflect.Slice && kind != reflect.Map {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	def := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		def["required"] = required
	}
	return def
}

// yamlName resolves the document key for a struct field from its yaml tag,
// defaulting to the lower-cased field name the way yaml.v3 does.
func yamlName(field reflect.StructField) (name string, omitEmpty bool) {
	tag := field.Tag.Get("yaml")
	if tag == "-" {
		return "", false
	}
	if tag == "" {
		return strings.ToLower(field.Name[:1]) + field.Name[1:], false
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty
}

func defProperty(defs map[string]map[string]any, defName, propName string) map[string]any {
	def, ok := defs[defName]
	if !ok {
		return nil
	}
	props, ok := def["properties"].(map[string]any)
	if !ok {
		return nil
	}
	prop, ok := props[propName].(map[string]any)
	if !ok {
		return nil
	}
	return prop
}

func appendRequired(def map[string]any, name string) {
	switch existing := def["required"].(type) {
	case []string:
		for _, r := range existing {
			if r == name {
				return
			}
		}
		def["required"] = append(existing, name)
	default:
		def["required"] = []string{name}
	}
}

// tightenDatasetSchema layers the server-side validation rules the reflection
// pass cannot see: key_columns must be present and non-empty, and identifiers
// follow the dataset name pattern.
func tightenDatasetSchema(defs map[string]map[string]any) {
	if spec, ok := defs["DatasetSpec"]; ok {
		appendRequired(spec, "key_columns")
	}
	if keyCols := defProperty(defs, "DatasetSpec", "key_columns"); keyCols != nil {
		keyCols["minItems"] = 1
		if items, ok := keyCols["items"].(map[string]any); ok {
			items["pattern"] = identifierPattern
		}
	}
	if table := defProperty(defs, "DatasetSpec", "table"); table != nil {
		table["pattern"] = identifierPattern
	}
	if name := defProperty(defs, "ObjectMeta", "name"); name != nil {
		name["pattern"] = identifierPattern
	}
	if cron := defProperty(defs, "DatasetSpec", "schedule_cron"); cron != nil {
		cron["minLength"] = 1
	}
}

func writeCanonicalJSON(path string, content any) (checksum string, err error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func generate(outDir string) error {
	kindsDir := filepath.Join(outDir, "kinds")
	if err := os.MkdirAll(kindsDir, 0o750); err != nil {
		return fmt.Errorf("create output directories: %w", err)
	}

	checksums := map[string]string{}
	union := []map[string]any{}

	for _, doc := range declarative.SchemaDocumentTypes() {
		gen := newGenerator()
		rootRef := gen.schemaFor(doc.Type)

		// Pin apiVersion and kind to the values the loader accepts.
		if root, ok := gen.defs[doc.Type.Name()]; ok {
			if props, ok := root["properties"].(map[string]any); ok {
				if apiVersion, ok := props["apiVersion"].(map[string]any); ok {
					apiVersion["enum"] = []string{declarative.SupportedAPIVersion}
				}
				if kind, ok := props["kind"].(map[string]any); ok {
					kind["enum"] = []string{doc.Kind}
				}
			}
		}
		if doc.Kind == declarative.KindNameDataset {
			tightenDatasetSchema(gen.defs)
		}

		schema := map[string]any{
			"$schema": "https://json-schema.org/draft/2020-12/schema",
			"$id":     "schemas/declarative/v1/kinds/" + doc.FileName + ".schema.json",
			"title":   "Driftline declarative " + doc.Kind,
			"allOf":   []map[string]any{rootRef},
			"$defs":   gen.defs,
		}

		relPath := filepath.ToSlash(filepath.Join("kinds", doc.FileName+".schema.json"))
		hash, err := writeCanonicalJSON(filepath.Join(outDir, relPath), schema)
		if err != nil {
			return err
		}
		checksums[relPath] = hash
		union = append(union, map[string]any{"$ref": relPath})
	}

	rootSchema := map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         "schemas/declarative/v1/driftline.declarative.schema.json",
		"title":       "Driftline declarative document",
		"description": "Union schema for all declarative driftline/v1 YAML documents.",
		"oneOf":       union,
	}
	rootHash, err := writeCanonicalJSON(filepath.Join(outDir, "driftline.declarative.schema.json"), rootSchema)
	if err != nil {
		return err
	}
	checksums["driftline.declarative.schema.json"] = rootHash

	manifest := map[string]any{
		"version":    "v1",
		"apiVersion": declarative.SupportedAPIVersion,
		"files":      checksums,
	}
	_, err = writeCanonicalJSON(filepath.Join(outDir, "index.json"), manifest)
	return err
}

func main() {
	var outDir string
	flag.StringVar(&outDir, "outdir", "schemas/declarative/v1", "Output schema directory")
	flag.Parse()

	if err := generate(outDir); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
