package warehouse

import (
	"context"
	"errors"

	"driftline/internal/domain"
)

// ErrNoWarehouse is returned by every Disabled operation.
var ErrNoWarehouse = errors.New("no warehouse configured (set WAREHOUSE_DSN)")

// Disabled stands in for Manager when no warehouse DSN is configured. Scans
// still discover and validate drops, but the DDL step fails with
// ErrNoWarehouse so nothing loads and watermarks never advance.
type Disabled struct{}

// Exists reports ErrNoWarehouse.
func (Disabled) Exists(context.Context, string) (bool, error) {
	return false, ErrNoWarehouse
}

// EnsureTable reports ErrNoWarehouse.
func (Disabled) EnsureTable(context.Context, string, domain.FileSchema, []string) error {
	return ErrNoWarehouse
}

// Reconcile reports ErrNoWarehouse.
func (Disabled) Reconcile(context.Context, string, domain.FileSchema) (domain.SchemaDiff, error) {
	return domain.SchemaDiff{}, ErrNoWarehouse
}

// LoadRows reports ErrNoWarehouse.
func (Disabled) LoadRows(context.Context, string, []string, [][]string) (int64, error) {
	return 0, ErrNoWarehouse
}
