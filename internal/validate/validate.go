// Package validate performs acceptance checks on landed CSV files before
// schema inference or loading runs.
package validate

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"driftline/internal/ddl"
	"driftline/internal/domain"
	"driftline/internal/schema"
)

// Result is the verdict for one file. NullRows and NullsByColumn are
// populated even for accepted files so the notifier can report rows that
// were dropped during cleaning.
type Result struct {
	Header        []string       `json:"header"` // normalized
	RowCount      int            `json:"row_count"`
	NullRows      []int          `json:"null_rows,omitempty"` // 1-based data row indexes
	NullsByColumn map[string]int `json:"nulls_by_column,omitempty"`
	OK            bool           `json:"ok"`
	Reason        string         `json:"reason,omitempty"`
}

// CheckFile rejects an object by name and reported size before download.
// A maxSize of 0 disables the size cap.
func CheckFile(name string, size, maxSize int64) error {
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return domain.ErrValidation("file %q is not a .csv file", name)
	}
	if size == 0 {
		return domain.ErrValidation("file %q is empty", name)
	}
	if maxSize > 0 && size > maxSize {
		return domain.ErrValidation("file %q exceeds the size limit (%d > %d bytes)", name, size, maxSize)
	}
	return nil
}

// StripBOM removes a UTF-8 byte order mark from the first header cell.
// The returned slice aliases the input.
func StripBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "﻿")
	}
	return header
}

// CheckHeader validates the raw header and returns its normalized form:
// the header must be non-empty, and every cell must normalize to a
// non-blank, valid, unique identifier.
func CheckHeader(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, domain.ErrValidation("header row is empty")
	}

	normalized := schema.NormalizeHeader(raw)
	seen := make(map[string]int, len(normalized))
	for i, name := range normalized {
		if name == "" {
			return nil, domain.ErrValidation("header column %d (%q) normalizes to a blank name", i+1, raw[i])
		}
		if err := ddl.ValidateIdentifier(name); err != nil {
			return nil, domain.ErrValidation("header column %d (%q): %v", i+1, raw[i], err)
		}
		if prev, dup := seen[name]; dup {
			return nil, domain.ErrValidation("header columns %d and %d both normalize to %q", prev+1, i+1, name)
		}
		seen[name] = i
	}
	return normalized, nil
}

// CheckRows scans data rows for raggedness and UTF-8 validity, and collects
// the 1-based indexes of rows containing empty cells plus per-column empty
// counts. A cell is empty when it is blank after trimming.
func CheckRows(header []string, rows [][]string) (nullRows []int, nullsByColumn map[string]int, err error) {
	nullsByColumn = make(map[string]int)
	for n, row := range rows {
		if len(row) != len(header) {
			return nil, nil, domain.ErrValidation("row %d has %d cells, header has %d", n+1, len(row), len(header))
		}
		hasNull := false
		for i, cell := range row {
			if !utf8.ValidString(cell) {
				return nil, nil, domain.ErrValidation("row %d column %q contains invalid UTF-8", n+1, header[i])
			}
			if strings.TrimSpace(cell) == "" {
				hasNull = true
				nullsByColumn[header[i]]++
			}
		}
		if hasNull {
			nullRows = append(nullRows, n+1)
		}
	}
	return nullRows, nullsByColumn, nil
}

// File runs the whole check pipeline over a parsed CSV payload and never
// returns an error: rejection is reported through the Result.
func File(name string, size, maxSize int64, rawHeader []string, rows [][]string) *Result {
	if err := CheckFile(name, size, maxSize); err != nil {
		return &Result{Reason: err.Error()}
	}

	header, err := CheckHeader(StripBOM(rawHeader))
	if err != nil {
		return &Result{Reason: err.Error()}
	}

	nullRows, nullsByColumn, err := CheckRows(header, rows)
	if err != nil {
		return &Result{Header: header, RowCount: len(rows), Reason: err.Error()}
	}

	return &Result{
		Header:        header,
		RowCount:      len(rows),
		NullRows:      nullRows,
		NullsByColumn: nullsByColumn,
		OK:            true,
	}
}
