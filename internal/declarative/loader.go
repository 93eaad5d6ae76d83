package declarative

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse reads every YAML document in data. Documents are strictly checked:
// unknown fields, a wrong apiVersion or kind, and duplicate dataset names
// are all errors. Blank documents between separators are skipped.
func Parse(data []byte) ([]DatasetDoc, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var docs []DatasetDoc
	seen := map[string]int{}
	for i := 1; ; i++ {
		var doc DatasetDoc
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if doc.APIVersion == "" && doc.Kind == "" && doc.Metadata.Name == "" {
			continue
		}
		if doc.APIVersion != SupportedAPIVersion {
			return nil, fmt.Errorf("document %d: unsupported apiVersion %q (expected %q)", i, doc.APIVersion, SupportedAPIVersion)
		}
		if doc.Kind != KindNameDataset {
			return nil, fmt.Errorf("document %d: unexpected kind %q (expected %q)", i, doc.Kind, KindNameDataset)
		}
		if doc.Metadata.Name == "" {
			return nil, fmt.Errorf("document %d: metadata.name is required", i)
		}
		if prev, ok := seen[doc.Metadata.Name]; ok {
			return nil, fmt.Errorf("document %d: dataset %q already declared in document %d", i, doc.Metadata.Name, prev)
		}
		seen[doc.Metadata.Name] = i
		docs = append(docs, doc)
	}
	return docs, nil
}

// ParseFile reads and parses one declarative file.
func ParseFile(path string) ([]DatasetDoc, error) {
	data, err := os.ReadFile(path) //nolint:gosec // intentional: reading user-specified config files
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	docs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// LoadDirectory parses every .yaml and .yml file directly under dir, in
// filename order. A missing directory yields no documents so the bootstrap
// directory is optional.
func LoadDirectory(dir string) ([]DatasetDoc, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var docs []DatasetDoc
	declared := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		path := filepath.Join(dir, name)
		fileDocs, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		for _, doc := range fileDocs {
			if prev, ok := declared[doc.Metadata.Name]; ok {
				return nil, fmt.Errorf("%s: dataset %q already declared in %s", path, doc.Metadata.Name, prev)
			}
			declared[doc.Metadata.Name] = path
			docs = append(docs, doc)
		}
	}
	return docs, nil
}
