// Command docsgen renders the markdown reference under docs/reference: the
// API pages from the OpenAPI document and the declarative definition pages
// from the generated JSON Schema artifacts. Run it after changing either
// source.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"driftline/internal/api"
	"driftline/internal/docsgen/declarative"
	"driftline/internal/docsgen/openapi"
)

func main() {
	specPath := flag.String("openapi", "", "path to an OpenAPI document (default: the embedded spec)")
	indexPath := flag.String("declarative-index", "schemas/declarative/v1/index.json", "path to the declarative schema manifest")
	schemaDir := flag.String("declarative-dir", "schemas/declarative/v1", "directory holding the declarative schema artifacts")
	outDir := flag.String("outdir", "docs/reference", "output directory")
	flag.Parse()

	if err := run(*specPath, *indexPath, *schemaDir, *outDir); err != nil {
		fmt.Fprintln(os.Stderr, "docsgen:", err)
		os.Exit(1)
	}
}

func run(specPath, indexPath, schemaDir, outDir string) error {
	specData := api.SpecYAML
	if specPath != "" {
		data, err := os.ReadFile(specPath)
		if err != nil {
			return fmt.Errorf("read spec: %w", err)
		}
		specData = data
	}

	if err := openapi.Generate(specData, filepath.Join(outDir, "api")); err != nil {
		return fmt.Errorf("api reference: %w", err)
	}
	if err := declarative.Generate(indexPath, schemaDir, filepath.Join(outDir, "declarative")); err != nil {
		return fmt.Errorf("declarative reference: %w", err)
	}
	return nil
}
