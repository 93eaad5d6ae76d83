// Package warehouse manages destination tables in the MySQL warehouse:
// existence checks, schema-derived DDL, additive drift reconciliation, and
// the upsert loader.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"driftline/internal/ddl"
	"driftline/internal/domain"
	"driftline/internal/schema"
)

// Open connects to the warehouse using a go-sql-driver DSN
// (user:pass@tcp(host:port)/dbname). parseTime is forced on so TIMESTAMP
// columns scan into time.Time.
func Open(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse warehouse dsn: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("warehouse connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Manager performs table operations against one warehouse database.
type Manager struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewManager creates a Manager.
func NewManager(db *sql.DB, logger *slog.Logger) *Manager {
	return &Manager{db: db, logger: logger}
}

// Ping verifies warehouse connectivity.
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Exists reports whether the table is present in the current database.
func (m *Manager) Exists(ctx context.Context, table string) (bool, error) {
	if err := ddl.ValidateIdentifier(table); err != nil {
		return false, domain.ErrValidation("invalid table name: %v", err)
	}
	var count int64
	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?`, table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return count > 0, nil
}

// EnsureTable creates the table if it does not exist, mapping inferred
// column types to engine types and declaring the primary key over
// keyColumns. Key columns are forced NOT NULL.
func (m *Manager) EnsureTable(ctx context.Context, table string, fileSchema domain.FileSchema, keyColumns []string) error {
	keySet := make(map[string]bool, len(keyColumns))
	for _, k := range keyColumns {
		keySet[k] = true
	}

	columns := make([]ddl.ColumnDef, len(fileSchema))
	for i, c := range fileSchema {
		columns[i] = ddl.ColumnDef{
			Name:    c.Name,
			Type:    EngineType(c.Type),
			NotNull: keySet[c.Name],
		}
	}

	stmt, err := ddl.CreateTableIfNotExists(table, columns, keyColumns)
	if err != nil {
		return domain.ErrValidation("build create table: %v", err)
	}

	m.logger.Info("ensuring warehouse table", "table", table, "columns", len(columns))
	if _, err := m.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// CurrentSchema reads the live column layout of a table from
// information_schema, mapped back to surface types. A missing table yields
// a NotFoundError.
func (m *Manager) CurrentSchema(ctx context.Context, table string) (domain.FileSchema, error) {
	if err := ddl.ValidateIdentifier(table); err != nil {
		return nil, domain.ErrValidation("invalid table name: %v", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("read schema of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var out domain.FileSchema
	for rows.Next() {
		var name, dataType, isNullable string
		if err := rows.Scan(&name, &dataType, &isNullable); err != nil {
			return nil, err
		}
		out = append(out, domain.ColumnSchema{
			Name:     name,
			Type:     SurfaceType(dataType),
			Nullable: strings.EqualFold(isNullable, "YES"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound("table %q not found in warehouse", table)
	}
	return out, nil
}

// Reconcile compares the live table schema against the incoming file schema
// and applies ALTER TABLE ADD COLUMN for each added column. Removed columns
// and type changes are reported in the diff but never acted on: the manager
// neither drops nor retypes columns.
func (m *Manager) Reconcile(ctx context.Context, table string, incoming domain.FileSchema) (domain.SchemaDiff, error) {
	current, err := m.CurrentSchema(ctx, table)
	if err != nil {
		return domain.SchemaDiff{}, err
	}

	diff := schema.Diff(current, incoming)
	for _, col := range diff.Added {
		stmt, err := ddl.AddColumn(table, ddl.ColumnDef{Name: col.Name, Type: EngineType(col.Type)})
		if err != nil {
			return diff, domain.ErrValidation("build add column: %v", err)
		}
		m.logger.Info("adding warehouse column", "table", table, "column", col.Name, "type", col.Type)
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return diff, fmt.Errorf("add column %s.%s: %w", table, col.Name, err)
		}
	}
	for _, tc := range diff.TypeChanges {
		m.logger.Warn("column type drift detected, not applied",
			"table", table, "column", tc.Name, "stored", tc.From, "incoming", tc.To)
	}
	for _, col := range diff.Removed {
		m.logger.Warn("column missing from incoming file, kept in table",
			"table", table, "column", col.Name)
	}
	return diff, nil
}

// LoadRows upserts all rows into the table inside one transaction using a
// prepared INSERT ... ON DUPLICATE KEY UPDATE. Blank cells become SQL NULL.
// Returns the number of rows written.
func (m *Manager) LoadRows(ctx context.Context, table string, header []string, rows [][]string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	stmt, err := ddl.InsertOnDuplicate(table, header)
	if err != nil {
		return 0, domain.ErrValidation("build upsert: %v", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin load tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert for %s: %w", table, err)
	}
	defer func() { _ = prepared.Close() }()

	args := make([]any, len(header))
	var written int64
	for n, row := range rows {
		if len(row) != len(header) {
			return 0, domain.ErrValidation("row %d has %d cells, header has %d", n+1, len(row), len(header))
		}
		for i, cell := range row {
			if strings.TrimSpace(cell) == "" {
				args[i] = nil
			} else {
				args[i] = cell
			}
		}
		if _, err := prepared.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("upsert row %d into %s: %w", n+1, table, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit load tx: %w", err)
	}
	return written, nil
}

// EngineType maps a surface column type to the MySQL engine type used in DDL.
func EngineType(surface string) string {
	switch surface {
	case domain.ColumnTypeInteger:
		return "BIGINT"
	case domain.ColumnTypeFloat:
		return "DOUBLE"
	default:
		return "VARCHAR(255)"
	}
}

// SurfaceType maps an information_schema data_type back to a surface type.
func SurfaceType(engine string) string {
	switch strings.ToLower(engine) {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint":
		return domain.ColumnTypeInteger
	case "float", "double", "decimal", "numeric", "real":
		return domain.ColumnTypeFloat
	default:
		return domain.ColumnTypeVarchar
	}
}
