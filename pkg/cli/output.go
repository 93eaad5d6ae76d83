package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"
)

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, _ = fmt.Fprintln(w, string(data))
	return nil
}

// PrintTable writes rows as a padded text table with uppercased headers.
func PrintTable(w io.Writer, columns []string, rows [][]string) {
	if len(columns) == 0 {
		return
	}

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, 0, len(cells))
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			if i == len(widths)-1 {
				parts = append(parts, cell)
				continue
			}
			parts = append(parts, fmt.Sprintf("%-*s", widths[i], cell))
		}
		_, _ = fmt.Fprintln(w, strings.Join(parts, "  "))
	}

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = strings.ToUpper(col)
	}
	printRow(header)
	for _, row := range rows {
		printRow(row)
	}
}

// PrintDetail writes a single resource as aligned key/value lines with the
// keys sorted alphabetically.
func PrintDetail(w io.Writer, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	maxKeyLen := 0
	for k := range fields {
		keys = append(keys, k)
		if len(k) > maxKeyLen {
			maxKeyLen = len(k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%-*s  %s\n", maxKeyLen+1, k+":", formatValue(fields[k]))
	}
}

// formatValue renders a decoded JSON value for display. Nested maps and
// slices are serialized as JSON rather than Go's fmt representation.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ExtractField returns a display string for one field of a decoded JSON
// object. Missing and null fields yield the empty string.
func ExtractField(data map[string]any, field string) string {
	v, ok := data[field]
	if !ok || v == nil {
		return ""
	}
	return formatValue(v)
}

// ExtractRows flattens the named list of a decoded response into table
// rows, one cell per requested column. Non-map items are skipped.
func ExtractRows(data map[string]any, listKey string, columns []string) [][]string {
	items, ok := data[listKey].([]any)
	if !ok {
		return nil
	}
	return extractItemRows(items, columns)
}

func extractItemRows(items []any, columns []string) [][]string {
	var rows [][]string
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		row := make([]string, 0, len(columns))
		for _, col := range columns {
			row = append(row, ExtractField(obj, col))
		}
		rows = append(rows, row)
	}
	return rows
}

// IsStdinTTY reports whether stdin is an interactive terminal.
func IsStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY reports whether stdout is an interactive terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
