// Package profile produces deep CSV profiles through an embedded DuckDB.
// The pipeline's own validator stays pure Go; this is the diagnostic view
// behind `driftctl inspect` and the validate-report API.
package profile

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// ColumnProfile describes one column of a profiled file. Min and Max are the
// DuckDB values rendered as strings; they are empty when every value is NULL.
type ColumnProfile struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nulls    int64  `json:"nulls"`
	Distinct int64  `json:"distinct"`
	Min      string `json:"min"`
	Max      string `json:"max"`
}

// FileProfile is the result of profiling one CSV file.
type FileProfile struct {
	Path    string          `json:"path"`
	Rows    int64           `json:"rows"`
	Columns []ColumnProfile `json:"columns"`
}

// Profiler runs CSV profiles on an in-memory DuckDB.
type Profiler struct {
	db *sql.DB
}

// New opens an in-memory DuckDB for profiling.
func New() (*Profiler, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Profiler{db: db}, nil
}

// Close releases the embedded database.
func (p *Profiler) Close() error {
	return p.db.Close()
}

// Profile reads a CSV through read_csv_auto and aggregates row count plus
// per-column type, null count, distinct count and min/max.
func (p *Profiler) Profile(ctx context.Context, path string) (*FileProfile, error) {
	source := fmt.Sprintf("read_csv_auto(%s)", quoteLiteral(path))

	cols, err := p.describe(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", path, err)
	}

	profile := &FileProfile{Path: path, Columns: make([]ColumnProfile, 0, len(cols))}
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) FROM "+source).Scan(&profile.Rows); err != nil {
		return nil, fmt.Errorf("count rows in %s: %w", path, err)
	}

	for _, col := range cols {
		cp, err := p.profileColumn(ctx, source, col)
		if err != nil {
			return nil, err
		}
		profile.Columns = append(profile.Columns, cp)
	}
	return profile, nil
}

type describedColumn struct {
	name string
	typ  string
}

func (p *Profiler) describe(ctx context.Context, source string) ([]describedColumn, error) {
	q := fmt.Sprintf("SELECT column_name, column_type FROM (DESCRIBE SELECT * FROM %s LIMIT 0)", source)
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []describedColumn
	for rows.Next() {
		var c describedColumn
		if err := rows.Scan(&c.name, &c.typ); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (p *Profiler) profileColumn(ctx context.Context, source string, col describedColumn) (ColumnProfile, error) {
	q := fmt.Sprintf(
		"SELECT count(*) - count(%[1]s), count(DISTINCT %[1]s), min(%[1]s)::VARCHAR, max(%[1]s)::VARCHAR FROM %[2]s",
		quoteIdent(col.name), source,
	)

	var nulls, distinct int64
	var minVal, maxVal sql.NullString
	if err := p.db.QueryRowContext(ctx, q).Scan(&nulls, &distinct, &minVal, &maxVal); err != nil {
		return ColumnProfile{}, fmt.Errorf("profile column %q: %w", col.name, err)
	}
	return ColumnProfile{
		Name:     col.name,
		Type:     col.typ,
		Nulls:    nulls,
		Distinct: distinct,
		Min:      minVal.String,
		Max:      maxVal.String,
	}, nil
}

// quoteLiteral single-quotes a DuckDB string literal, doubling embedded quotes.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdent double-quotes a DuckDB identifier, doubling embedded quotes.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
