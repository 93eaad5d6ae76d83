// Package transform cleans CSV rows before loading: null-row removal,
// deduplication, an optional per-dataset Starlark hook, and a coercion pass
// against the inferred schema.
package transform

import (
	"fmt"
	"strings"

	"driftline/internal/domain"
	"driftline/internal/schema"
)

// maxRowErrors aborts a run whose hook or coercion fails on too many rows,
// before the error list itself becomes the problem.
const maxRowErrors = 100

// RowError is a per-row failure from the hook or the coercion pass.
// Row is the 1-based index in the original file's data rows.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// CleanStats reports what Clean removed. Kept maps each surviving row back to
// its 1-based index in the input so later errors can name the original row.
type CleanStats struct {
	NullRows   []int
	Duplicates int
	Kept       []int
}

// Result is the output of a full transform stage.
type Result struct {
	Rows        [][]string
	NullRows    []int
	Duplicates  int
	HookDropped int
	RowErrors   []RowError
}

// Dropped returns the total number of input rows that did not survive.
func (r *Result) Dropped() int {
	return len(r.NullRows) + r.Duplicates + r.HookDropped + len(r.RowErrors)
}

// Clean drops rows containing empty cells, then removes exact-duplicate rows
// keeping the first occurrence. Indexes in the stats are 1-based positions in
// the input.
func Clean(rows [][]string) ([][]string, CleanStats) {
	var stats CleanStats
	seen := make(map[string]struct{}, len(rows))
	out := make([][]string, 0, len(rows))

	for i, row := range rows {
		if hasEmptyCell(row) {
			stats.NullRows = append(stats.NullRows, i+1)
			continue
		}
		key := fmt.Sprintf("%q", row)
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
		stats.Kept = append(stats.Kept, i+1)
	}
	return out, stats
}

// Run executes the full stage: Clean, then the optional Starlark hook, then
// coercion against the file schema. Rows that fail the hook or coercion are
// dropped and reported in RowErrors; the load only fails when the hook source
// itself is broken or the per-run error cap is hit.
func Run(header []string, rows [][]string, fileSchema domain.FileSchema, hookSource string) (*Result, error) {
	cleaned, stats := Clean(rows)
	result := &Result{
		NullRows:   stats.NullRows,
		Duplicates: stats.Duplicates,
	}

	var hook *Hook
	if strings.TrimSpace(hookSource) != "" {
		h, err := CompileHook(hookSource)
		if err != nil {
			return nil, err
		}
		hook = h
	}

	result.Rows = make([][]string, 0, len(cleaned))
	for i, row := range cleaned {
		srcRow := stats.Kept[i]

		if hook != nil {
			mapped, keep, err := applyHookToRow(hook, header, row)
			if err != nil {
				if len(result.RowErrors) >= maxRowErrors {
					return nil, domain.ErrValidation("transform aborted after %d row errors", maxRowErrors)
				}
				result.RowErrors = append(result.RowErrors, RowError{Row: srcRow, Message: err.Error()})
				continue
			}
			if !keep {
				result.HookDropped++
				continue
			}
			row = mapped
		}

		if err := coerceRow(row, fileSchema); err != nil {
			if len(result.RowErrors) >= maxRowErrors {
				return nil, domain.ErrValidation("transform aborted after %d row errors", maxRowErrors)
			}
			result.RowErrors = append(result.RowErrors, RowError{Row: srcRow, Message: err.Error()})
			continue
		}

		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

// applyHookToRow shuttles one row through the hook as a column→value dict and
// maps the returned dict back into header order. A key the header does not
// know is an error; a missing key becomes an empty cell.
func applyHookToRow(hook *Hook, header []string, row []string) ([]string, bool, error) {
	in := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(row) {
			in[name] = row[i]
		}
	}

	out, keep, err := hook.Apply(in)
	if err != nil {
		return nil, false, err
	}
	if !keep {
		return nil, false, nil
	}

	known := make(map[string]struct{}, len(header))
	for _, name := range header {
		known[name] = struct{}{}
	}
	for key := range out {
		if _, ok := known[key]; !ok {
			return nil, false, fmt.Errorf("hook returned unknown column %q", key)
		}
	}

	mapped := make([]string, len(header))
	for i, name := range header {
		mapped[i] = out[name]
	}
	return mapped, true, nil
}

// coerceRow checks every cell against its column type. Empty cells load as
// NULL and pass; VARCHAR accepts anything.
func coerceRow(row []string, fileSchema domain.FileSchema) error {
	for i, col := range fileSchema {
		if i >= len(row) {
			break
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}
		switch col.Type {
		case domain.ColumnTypeInteger:
			if !schema.IsIntegerCell(v) {
				return fmt.Errorf("column %q value %q is not an integer", col.Name, row[i])
			}
		case domain.ColumnTypeFloat:
			if !schema.IsFloatCell(v) {
				return fmt.Errorf("column %q value %q is not a number", col.Name, row[i])
			}
		}
	}
	return nil
}

func hasEmptyCell(row []string) bool {
	if len(row) == 0 {
		return true
	}
	for _, cell := range row {
		if strings.TrimSpace(cell) == "" {
			return true
		}
	}
	return false
}
