// Package watermark tracks the last processed landing folder per source so
// loads stay incremental: a folder is processed at most once, and only when
// strictly newer than everything processed before it.
package watermark

import (
	"context"

	"driftline/internal/domain"
)

// Store is the incremental-load tracker. The SQLite implementation lives in
// the repository package; this package provides the DynamoDB one.
type Store interface {
	// Get returns the watermark for source; an unknown source yields a zero
	// watermark, not an error.
	Get(ctx context.Context, source string) (*domain.Watermark, error)

	// ShouldProcess reports whether folderTS is strictly newer than the
	// stored watermark.
	ShouldProcess(ctx context.Context, source, folderTS string) (bool, error)

	// Advance moves the watermark forward. A stale advance (the store is
	// already at or past folderTS) returns a ConflictError and leaves the
	// stored value untouched.
	Advance(ctx context.Context, source, folderTS string) error

	// Reset sets the watermark unconditionally, including backwards, for
	// operator-driven reloads.
	Reset(ctx context.Context, source, folderTS string) error

	// List returns all watermarks ordered by source.
	List(ctx context.Context) ([]domain.Watermark, error)
}
