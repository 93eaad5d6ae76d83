// Package openapi renders a markdown API reference from the OpenAPI document.
package openapi

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// The spec carries no tags; operations group by their first path segment
// after the /v1 prefix. groupTitles maps segments to page headings, and
// groupBlurbs gives each index entry one line of context.
var groupTitles = map[string]string{
	"datasets":   "Datasets",
	"scan":       "Scans",
	"runs":       "Runs",
	"watermarks": "Watermarks",
	"keys":       "API Keys",
	"audit":      "Audit",
	"validate":   "Validation",
	"healthz":    "Health",
}

var groupBlurbs = map[string]string{
	"datasets":   "Dataset registration and lifecycle.",
	"scan":       "Landing-zone sweeps across registered datasets.",
	"runs":       "Folder load attempts and their step events.",
	"watermarks": "Per-source incremental load positions.",
	"keys":       "API key issuance and revocation.",
	"audit":      "Administrative action log.",
	"validate":   "Standalone file checks without loading.",
	"healthz":    "Liveness probe.",
}

type operationDoc struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Description string
	PathParams  []paramDoc
	QueryParams []paramDoc
	RequestBody *requestBodyDoc
	Responses   []responseDoc
}

type paramDoc struct {
	Name        string
	Required    bool
	Type        string
	Description string
}

type requestBodyDoc struct {
	Required     bool
	ContentTypes []string
}

type responseDoc struct {
	Code        string
	Description string
}

// Generate renders the reference into outDir: one page per endpoint group,
// one per component schema, and an index tying them together. The output
// directory is replaced wholesale.
func Generate(specData []byte, outDir string) error {
	loader := &openapi3.Loader{}
	spec, err := loader.LoadFromData(specData)
	if err != nil {
		return fmt.Errorf("load spec: %w", err)
	}

	if err := os.RemoveAll(outDir); err != nil {
		return fmt.Errorf("clean output dir: %w", err)
	}
	for _, dir := range []string{"endpoints", "schemas"} {
		if err := os.MkdirAll(filepath.Join(outDir, dir), 0o750); err != nil {
			return fmt.Errorf("create %s dir: %w", dir, err)
		}
	}

	grouped := map[string][]operationDoc{}
	for path, pathItem := range spec.Paths.Map() {
		for method, op := range pathItem.Operations() {
			g := groupFor(path)
			grouped[g] = append(grouped[g], buildOperationDoc(path, method, pathItem, op))
		}
	}

	groups := sortedKeys(grouped)
	for _, g := range groups {
		ops := grouped[g]
		sortOperations(ops)
		page := filepath.Join(outDir, "endpoints", g+".md")
		if err := writeGroupPage(page, g, ops); err != nil {
			return err
		}
	}

	schemaNames := sortedKeys(spec.Components.Schemas)
	for _, name := range schemaNames {
		page := filepath.Join(outDir, "schemas", fileSlug(name)+".md")
		if err := writeSchemaPage(page, name, spec.Components.Schemas[name]); err != nil {
			return err
		}
	}

	return writeIndex(filepath.Join(outDir, "index.md"), groups, grouped, schemaNames)
}

// groupFor buckets an operation by its first path segment, ignoring the
// version prefix.
func groupFor(path string) string {
	trimmed := strings.TrimPrefix(path, "/v1")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if i := strings.IndexByte(trimmed, '/'); i > 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "root"
	}
	return trimmed
}

func groupTitle(g string) string {
	if t, ok := groupTitles[g]; ok {
		return t
	}
	return strings.ToUpper(g[:1]) + g[1:]
}

func buildOperationDoc(path, method string, pathItem *openapi3.PathItem, op *openapi3.Operation) operationDoc {
	params := append([]*openapi3.ParameterRef{}, pathItem.Parameters...)
	params = append(params, op.Parameters...)

	doc := operationDoc{
		Method:      strings.ToUpper(method),
		Path:        path,
		OperationID: strings.TrimSpace(op.OperationID),
		Summary:     strings.TrimSpace(op.Summary),
		Description: strings.TrimSpace(op.Description),
	}

	for _, p := range params {
		if p == nil || p.Value == nil {
			continue
		}
		pd := paramDoc{
			Name:        p.Value.Name,
			Required:    p.Value.Required,
			Type:        schemaTypeFromRef(p.Value.Schema),
			Description: inline(p.Value.Description),
		}
		switch p.Value.In {
		case "path":
			doc.PathParams = append(doc.PathParams, pd)
		case "query":
			doc.QueryParams = append(doc.QueryParams, pd)
		}
	}
	sortParams(doc.PathParams)
	sortParams(doc.QueryParams)

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		doc.RequestBody = &requestBodyDoc{
			Required:     op.RequestBody.Value.Required,
			ContentTypes: sortedKeys(op.RequestBody.Value.Content),
		}
	}

	for code, response := range op.Responses.Map() {
		desc := ""
		if response != nil && response.Value != nil && response.Value.Description != nil {
			desc = inline(*response.Value.Description)
		}
		doc.Responses = append(doc.Responses, responseDoc{Code: code, Description: desc})
	}
	sort.Slice(doc.Responses, func(i, j int) bool { return doc.Responses[i].Code < doc.Responses[j].Code })

	return doc
}

func writeIndex(path string, groups []string, grouped map[string][]operationDoc, schemaNames []string) error {
	var b strings.Builder
	b.WriteString(generatedHeader())
	b.WriteString("# API Reference\n\n")
	b.WriteString("Generated from `internal/api/openapi.yaml`.\n\n")
	b.WriteString("## Endpoints\n\n")
	for _, g := range groups {
		blurb := groupBlurbs[g]
		if blurb == "" {
			blurb = "-"
		}
		fmt.Fprintf(&b, "- [%s](./endpoints/%s) (%d operations): %s\n", groupTitle(g), g, len(grouped[g]), blurb)
	}
	b.WriteString("\n## Schemas\n\n")
	for _, name := range schemaNames {
		fmt.Fprintf(&b, "- [%s](./schemas/%s)\n", name, fileSlug(name))
	}
	return writeFile(path, b.String())
}

func writeGroupPage(path, group string, ops []operationDoc) error {
	var b strings.Builder
	b.WriteString(generatedHeader())
	fmt.Fprintf(&b, "# %s\n\n", groupTitle(group))
	if blurb := groupBlurbs[group]; blurb != "" {
		b.WriteString(blurb)
		b.WriteString("\n\n")
	}

	for _, op := range ops {
		fmt.Fprintf(&b, "## `%s %s`\n\n", op.Method, op.Path)
		if op.Summary != "" {
			b.WriteString(op.Summary)
			b.WriteString("\n\n")
		}
		if op.Description != "" {
			b.WriteString(op.Description)
			b.WriteString("\n\n")
		}
		if op.OperationID != "" {
			fmt.Fprintf(&b, "- Operation ID: `%s`\n\n", op.OperationID)
		}

		if len(op.PathParams) > 0 {
			writeParamTable(&b, "Path Parameters", op.PathParams)
		}
		if len(op.QueryParams) > 0 {
			writeParamTable(&b, "Query Parameters", op.QueryParams)
		}

		if op.RequestBody != nil {
			b.WriteString("### Request Body\n\n")
			fmt.Fprintf(&b, "- Required: `%t`\n", op.RequestBody.Required)
			if len(op.RequestBody.ContentTypes) > 0 {
				quoted := make([]string, len(op.RequestBody.ContentTypes))
				for i, c := range op.RequestBody.ContentTypes {
					quoted[i] = "`" + c + "`"
				}
				fmt.Fprintf(&b, "- Content types: %s\n", strings.Join(quoted, ", "))
			}
			b.WriteString("\n")
		}

		if len(op.Responses) > 0 {
			b.WriteString("### Responses\n\n")
			b.WriteString("| Code | Description |\n")
			b.WriteString("| --- | --- |\n")
			for _, r := range op.Responses {
				fmt.Fprintf(&b, "| `%s` | %s |\n", r.Code, tableSafe(r.Description))
			}
			b.WriteString("\n")
		}
	}

	return writeFile(path, b.String())
}

func writeSchemaPage(path, name string, ref *openapi3.SchemaRef) error {
	var b strings.Builder
	b.WriteString(generatedHeader())
	fmt.Fprintf(&b, "# Schema: `%s`\n\n", name)

	if ref == nil || ref.Value == nil {
		b.WriteString("Schema body is empty.\n")
		return writeFile(path, b.String())
	}
	schema := ref.Value

	if schema.Description != "" {
		b.WriteString(inline(schema.Description))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "- Type: `%s`\n", schemaType(schema))
	if len(schema.Required) > 0 {
		required := slices.Clone(schema.Required)
		slices.Sort(required)
		quoted := make([]string, len(required))
		for i, f := range required {
			quoted[i] = "`" + f + "`"
		}
		fmt.Fprintf(&b, "- Required fields: %s\n", strings.Join(quoted, ", "))
	}
	b.WriteString("\n")

	if len(schema.Properties) > 0 {
		reqSet := make(map[string]struct{}, len(schema.Required))
		for _, f := range schema.Required {
			reqSet[f] = struct{}{}
		}
		b.WriteString("## Properties\n\n")
		b.WriteString("| Name | Type | Required | Description |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, propName := range sortedKeys(schema.Properties) {
			propRef := schema.Properties[propName]
			_, required := reqSet[propName]
			desc := ""
			if propRef != nil && propRef.Value != nil {
				desc = inline(propRef.Value.Description)
			}
			fmt.Fprintf(&b, "| `%s` | `%s` | `%t` | %s |\n",
				propName, schemaTypeFromRef(propRef), required, tableSafe(desc))
		}
		b.WriteString("\n")
	}

	return writeFile(path, b.String())
}

func writeParamTable(b *strings.Builder, title string, params []paramDoc) {
	fmt.Fprintf(b, "### %s\n\n", title)
	b.WriteString("| Name | Type | Required | Description |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, p := range params {
		fmt.Fprintf(b, "| `%s` | `%s` | `%t` | %s |\n", p.Name, p.Type, p.Required, tableSafe(p.Description))
	}
	b.WriteString("\n")
}

func sortParams(params []paramDoc) {
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
}

var methodOrder = map[string]int{
	"GET": 0, "POST": 1, "PATCH": 2, "PUT": 3, "DELETE": 4,
}

func sortOperations(ops []operationDoc) {
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return methodOrder[ops[i].Method] < methodOrder[ops[j].Method]
	})
}

func schemaTypeFromRef(ref *openapi3.SchemaRef) string {
	if ref == nil {
		return "unknown"
	}
	if ref.Ref != "" {
		parts := strings.Split(ref.Ref, "/")
		return parts[len(parts)-1]
	}
	if ref.Value == nil {
		return "unknown"
	}
	return schemaType(ref.Value)
}

func schemaType(schema *openapi3.Schema) string {
	if schema == nil || schema.Type == nil || len(*schema.Type) == 0 {
		return "object"
	}
	if (*schema.Type)[0] == "array" {
		if schema.Items != nil {
			return "array[" + schemaTypeFromRef(schema.Items) + "]"
		}
		return "array"
	}
	return (*schema.Type)[0]
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fileSlug(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	for _, r := range []string{" ", "/", "_", "."} {
		lower = strings.ReplaceAll(lower, r, "-")
	}
	for strings.Contains(lower, "--") {
		lower = strings.ReplaceAll(lower, "--", "-")
	}
	return strings.Trim(lower, "-")
}

func generatedHeader() string {
	return "<!-- Code generated by cmd/docsgen. DO NOT EDIT. -->\n\n"
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create directory %q: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

func inline(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
	for strings.Contains(value, "  ") {
		value = strings.ReplaceAll(value, "  ", " ")
	}
	return value
}

func tableSafe(value string) string {
	value = strings.ReplaceAll(inline(value), "|", "\\|")
	if value == "" {
		return "-"
	}
	return value
}
