// Package ddl builds MySQL DDL and upsert statements for the warehouse
// loader. Every identifier is validated before it reaches SQL text; data
// values always travel through placeholders, never string interpolation.
package ddl

import (
	"fmt"
	"strings"
)

// ColumnDef describes a column for CREATE TABLE / ALTER TABLE.
type ColumnDef struct {
	Name    string
	Type    string // engine type, e.g. BIGINT, DOUBLE, VARCHAR(255)
	NotNull bool
}

// CreateTableIfNotExists returns a MySQL DDL statement:
//
//	CREATE TABLE IF NOT EXISTS `t` (`a` BIGINT NOT NULL, `b` DOUBLE, PRIMARY KEY (`a`))
//
// keyColumns must name a subset of columns; they form the primary key that
// the loader's ON DUPLICATE KEY UPDATE path depends on.
func CreateTableIfNotExists(table string, columns []ColumnDef, keyColumns []string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}
	if len(keyColumns) == 0 {
		return "", fmt.Errorf("at least one key column is required")
	}

	defined := make(map[string]bool, len(columns))
	var colDefs []string
	for _, c := range columns {
		if err := ValidateIdentifier(c.Name); err != nil {
			return "", fmt.Errorf("invalid column name %q: %w", c.Name, err)
		}
		if err := ValidateColumnType(c.Type); err != nil {
			return "", fmt.Errorf("invalid column type for %q: %w", c.Name, err)
		}
		def := fmt.Sprintf("%s %s", QuoteIdentifier(c.Name), c.Type)
		if c.NotNull {
			def += " NOT NULL"
		}
		colDefs = append(colDefs, def)
		defined[c.Name] = true
	}

	var keys []string
	for _, k := range keyColumns {
		if !defined[k] {
			return "", fmt.Errorf("key column %q is not a defined column", k)
		}
		keys = append(keys, QuoteIdentifier(k))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s, PRIMARY KEY (%s))",
		QuoteIdentifier(table),
		strings.Join(colDefs, ", "),
		strings.Join(keys, ", "),
	), nil
}

// AddColumn returns a MySQL DDL statement: ALTER TABLE `t` ADD COLUMN `c` TYPE.
// Added columns are always nullable so existing rows stay valid.
func AddColumn(table string, column ColumnDef) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if err := ValidateIdentifier(column.Name); err != nil {
		return "", fmt.Errorf("invalid column name %q: %w", column.Name, err)
	}
	if err := ValidateColumnType(column.Type); err != nil {
		return "", fmt.Errorf("invalid column type for %q: %w", column.Name, err)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		QuoteIdentifier(table),
		QuoteIdentifier(column.Name),
		column.Type,
	), nil
}

// InsertOnDuplicate returns a single-row MySQL upsert with one placeholder
// per column:
//
//	INSERT INTO `t` (`a`, `b`) VALUES (?, ?)
//	ON DUPLICATE KEY UPDATE `a` = VALUES(`a`), `b` = VALUES(`b`)
//
// The loader prepares the statement once and executes it per row.
func InsertOnDuplicate(table string, columns []string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}

	quoted := make([]string, len(columns))
	updates := make([]string, len(columns))
	for i, c := range columns {
		if err := ValidateIdentifier(c); err != nil {
			return "", fmt.Errorf("invalid column name %q: %w", c, err)
		}
		quoted[i] = QuoteIdentifier(c)
		updates[i] = fmt.Sprintf("%s = VALUES(%s)", quoted[i], quoted[i])
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		QuoteIdentifier(table),
		strings.Join(quoted, ", "),
		placeholders,
		strings.Join(updates, ", "),
	), nil
}
