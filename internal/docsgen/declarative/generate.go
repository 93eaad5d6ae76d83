// Package declarative renders markdown reference pages for the declarative
// definition kinds from the JSON Schema artifacts cmd/declarative-schema-gen
// emits.
package declarative

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type manifest struct {
	Version    string            `json:"version"`
	APIVersion string            `json:"apiVersion"`
	Files      map[string]string `json:"files"`
}

type kindPage struct {
	Kind   string
	Fields []specField
}

type specField struct {
	Name        string
	Type        string
	Required    bool
	Constraints string
}

// Generate reads the schema manifest at indexPath, parses each kind schema
// under schemaDir, and writes one reference page per kind plus an index with
// artifact checksums into outDir.
func Generate(indexPath, schemaDir, outDir string) error {
	raw, err := os.ReadFile(indexPath)
	if err != nil {
		return fmt.Errorf("read schema manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("parse schema manifest: %w", err)
	}

	if err := os.RemoveAll(outDir); err != nil {
		return fmt.Errorf("clean output dir: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := make([]string, 0, len(m.Files))
	for name := range m.Files {
		if strings.HasPrefix(name, "kinds/") && strings.HasSuffix(name, ".schema.json") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	pages := make([]kindPage, 0, len(files))
	for _, name := range files {
		page, err := loadKindSchema(filepath.Join(schemaDir, name))
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		pages = append(pages, page)
	}

	for _, page := range pages {
		path := filepath.Join(outDir, strings.ToLower(page.Kind)+".md")
		if err := writeKindPage(path, m.APIVersion, page); err != nil {
			return err
		}
	}
	return writeIndexPage(filepath.Join(outDir, "index.md"), m, pages)
}

// loadKindSchema pulls the document shape back out of a generated kind
// schema: the root doc definition comes from allOf, the kind name from the
// pinned enum, and the field table from the spec definition it references.
func loadKindSchema(path string) (kindPage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return kindPage{}, err
	}
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return kindPage{}, err
	}

	defs := asMap(root["$defs"])
	docName := rootDocName(root, defs)
	if docName == "" {
		return kindPage{}, fmt.Errorf("no document definition found")
	}
	docDef := asMap(defs[docName])
	docProps := asMap(docDef["properties"])

	kind := docName
	if enum := asSlice(asMap(docProps["kind"])["enum"]); len(enum) > 0 {
		kind = asString(enum[0])
	}

	specDef := asMap(defs[defName(asString(asMap(docProps["spec"])["$ref"]))])
	specProps := asMap(specDef["properties"])
	required := map[string]bool{}
	for _, f := range asSlice(specDef["required"]) {
		required[asString(f)] = true
	}

	names := make([]string, 0, len(specProps))
	for name := range specProps {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]specField, 0, len(names))
	for _, name := range names {
		prop := asMap(specProps[name])
		fields = append(fields, specField{
			Name:        name,
			Type:        fieldType(prop),
			Required:    required[name],
			Constraints: fieldConstraints(prop),
		})
	}
	return kindPage{Kind: kind, Fields: fields}, nil
}

// rootDocName resolves the definition the schema's allOf points at, falling
// back to the single *Doc definition when the reference is missing.
func rootDocName(root, defs map[string]any) string {
	for _, entry := range asSlice(root["allOf"]) {
		if ref := asString(asMap(entry)["$ref"]); ref != "" {
			return defName(ref)
		}
	}
	for name := range defs {
		if strings.HasSuffix(name, "Doc") {
			return name
		}
	}
	return ""
}

func defName(ref string) string {
	parts := strings.Split(ref, "/")
	return parts[len(parts)-1]
}

func fieldType(prop map[string]any) string {
	if ref := asString(prop["$ref"]); ref != "" {
		return defName(ref)
	}
	t := asString(prop["type"])
	if t == "array" {
		items := asMap(prop["items"])
		if inner := fieldType(items); inner != "" {
			return "array[" + inner + "]"
		}
		return "array"
	}
	return t
}

// fieldConstraints summarizes the validation the schema applies beyond the
// plain type, so the page shows what apply will reject.
func fieldConstraints(prop map[string]any) string {
	var parts []string
	if p := asString(prop["pattern"]); p != "" {
		parts = append(parts, "pattern `"+p+"`")
	}
	if n, ok := prop["minItems"].(float64); ok {
		parts = append(parts, fmt.Sprintf("min items %d", int(n)))
	}
	if n, ok := prop["minLength"].(float64); ok {
		parts = append(parts, fmt.Sprintf("min length %d", int(n)))
	}
	if items := asMap(prop["items"]); len(items) > 0 {
		if p := asString(items["pattern"]); p != "" {
			parts = append(parts, "item pattern `"+p+"`")
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func writeIndexPage(path string, m manifest, pages []kindPage) error {
	var b strings.Builder
	b.WriteString(generatedHeader())
	b.WriteString("# Declarative Definitions\n\n")
	fmt.Fprintf(&b, "Documents accepted by `driftctl apply`, all under `apiVersion: %s`.\n", m.APIVersion)
	b.WriteString("Editors that validate any document can point at the combined `driftline.declarative.schema.json`.\n\n")

	b.WriteString("## Kinds\n\n")
	for _, page := range pages {
		fmt.Fprintf(&b, "- [%s](./%s.md) (%d spec fields)\n", page.Kind, strings.ToLower(page.Kind), len(page.Fields))
	}

	b.WriteString("\n## Artifact Checksums\n\n")
	b.WriteString("| File | SHA-256 |\n")
	b.WriteString("| --- | --- |\n")
	files := make([]string, 0, len(m.Files))
	for name := range m.Files {
		files = append(files, name)
	}
	sort.Strings(files)
	for _, name := range files {
		fmt.Fprintf(&b, "| `%s` | `%s` |\n", name, m.Files[name])
	}
	b.WriteString("\n")
	return writeFile(path, b.String())
}

func writeKindPage(path, apiVersion string, page kindPage) error {
	var b strings.Builder
	b.WriteString(generatedHeader())
	fmt.Fprintf(&b, "# Kind: `%s`\n\n", page.Kind)
	fmt.Fprintf(&b, "```yaml\napiVersion: %s\nkind: %s\n```\n\n", apiVersion, page.Kind)

	b.WriteString("## Spec Fields\n\n")
	b.WriteString("| Field | Type | Required | Constraints |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, f := range page.Fields {
		fmt.Fprintf(&b, "| `%s` | `%s` | `%t` | %s |\n", f.Name, f.Type, f.Required, f.Constraints)
	}
	b.WriteString("\n")
	return writeFile(path, b.String())
}

func generatedHeader() string {
	return "<!-- Code generated by cmd/docsgen. DO NOT EDIT. -->\n\n"
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
