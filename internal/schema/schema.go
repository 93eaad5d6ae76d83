// Package schema infers column types from CSV samples and detects drift
// between the warehouse table schema and an incoming file.
package schema

import (
	"math"
	"strconv"
	"strings"

	"driftline/internal/domain"
)

// NormalizeName canonicalizes a raw header cell into a column identifier:
// trim, lower-case, spaces and dashes become underscores, everything that is
// not [a-z0-9_] is dropped. A UTF-8 BOM on the first cell is removed before
// normalization by the validator, but NormalizeName strips it too so the
// function is safe on raw input.
func NormalizeName(raw string) string {
	s := strings.TrimPrefix(raw, "﻿")
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == ' ' || r == '-':
			b.WriteByte('_')
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeHeader applies NormalizeName to every header cell, preserving order.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = NormalizeName(h)
	}
	return out
}

// cell classification levels, ordered by widening.
const (
	cellUnseen = iota
	cellInteger
	cellFloat
	cellVarchar
)

// Infer derives one column descriptor per header cell from a bounded sample
// of data rows. Per column: all sampled values digits (optional leading
// sign) yields INTEGER, all float-parseable yields FLOAT, anything else
// yields VARCHAR(255). Empty cells do not vote on the type but mark the
// column nullable. A column empty in every sampled row is VARCHAR(255) and
// nullable. Rows shorter than the header count as empty in the missing
// columns.
//
// Inference is deterministic for a given sample and descriptor order follows
// header order.
func Infer(header []string, sampleRows [][]string) domain.FileSchema {
	levels := make([]int, len(header))
	nullable := make([]bool, len(header))

	for _, row := range sampleRows {
		for i := range header {
			var v string
			if i < len(row) {
				v = strings.TrimSpace(row[i])
			}
			if v == "" {
				nullable[i] = true
				continue
			}
			if lvl := classifyCell(v); lvl > levels[i] {
				levels[i] = lvl
			}
		}
	}

	out := make(domain.FileSchema, len(header))
	for i, name := range header {
		typ := domain.ColumnTypeVarchar
		switch levels[i] {
		case cellInteger:
			typ = domain.ColumnTypeInteger
		case cellFloat:
			typ = domain.ColumnTypeFloat
		case cellUnseen:
			// Never saw a value at all.
			nullable[i] = true
		}
		out[i] = domain.ColumnSchema{Name: name, Type: typ, Nullable: nullable[i]}
	}
	return out
}

func classifyCell(v string) int {
	if IsIntegerCell(v) {
		return cellInteger
	}
	if IsFloatCell(v) {
		return cellFloat
	}
	return cellVarchar
}

// IsIntegerCell reports whether a cell value reads as an integer: optional
// leading sign, then digits only. The transformer uses the same rule when
// coercing values for INTEGER columns.
func IsIntegerCell(v string) bool {
	if v == "" {
		return false
	}
	i := 0
	if v[0] == '+' || v[0] == '-' {
		i++
	}
	if i == len(v) {
		return false
	}
	for ; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}

// IsFloatCell reports whether a cell value reads as a finite float.
func IsFloatCell(v string) bool {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return false
	}
	// "inf" and "nan" parse but are not tabular numbers.
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Diff compares the stored table schema against a freshly inferred file
// schema. Added columns are candidates for an additive ALTER; removed
// columns and type changes are report-only.
func Diff(current, incoming domain.FileSchema) domain.SchemaDiff {
	var d domain.SchemaDiff
	for _, col := range incoming {
		cur, ok := current.Column(col.Name)
		if !ok {
			d.Added = append(d.Added, col)
			continue
		}
		if cur.Type != col.Type {
			d.TypeChanges = append(d.TypeChanges, domain.TypeChange{
				Name: col.Name,
				From: cur.Type,
				To:   col.Type,
			})
		}
	}
	for _, col := range current {
		if _, ok := incoming.Column(col.Name); !ok {
			d.Removed = append(d.Removed, col)
		}
	}
	return d
}

// Widens reports whether a load into a column of type to can accept values
// inferred as from without data loss. Everything fits into VARCHAR, and
// INTEGER fits into FLOAT. Numeric narrowing does not widen.
func Widens(from, to string) bool {
	if from == to {
		return true
	}
	if to == domain.ColumnTypeVarchar {
		return true
	}
	return from == domain.ColumnTypeInteger && to == domain.ColumnTypeFloat
}
