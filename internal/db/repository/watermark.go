package repository

import (
	"context"
	"database/sql"
	"time"

	"driftline/internal/domain"
)

// WatermarkRepo stores per-source watermarks in the metastore. It is the
// single-node alternative to the DynamoDB store and satisfies watermark.Store.
type WatermarkRepo struct {
	db *sql.DB
}

// NewWatermarkRepo creates a new WatermarkRepo.
func NewWatermarkRepo(db *sql.DB) *WatermarkRepo {
	return &WatermarkRepo{db: db}
}

// Get returns the watermark for source. A source that has never been
// processed yields a zero watermark, not an error.
func (r *WatermarkRepo) Get(ctx context.Context, source string) (*domain.Watermark, error) {
	var w domain.Watermark
	err := r.db.QueryRowContext(ctx,
		`SELECT source, folder_ts, updated_at FROM watermarks WHERE source = ?`, source).
		Scan(&w.Source, &w.FolderTS, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return &domain.Watermark{Source: source}, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ShouldProcess reports whether folderTS is strictly newer than the stored watermark.
func (r *WatermarkRepo) ShouldProcess(ctx context.Context, source, folderTS string) (bool, error) {
	w, err := r.Get(ctx, source)
	if err != nil {
		return false, err
	}
	return domain.FolderTSAfter(folderTS, w.FolderTS), nil
}

// Advance moves the watermark forward to folderTS. A stale advance (the
// stored watermark is already at or past folderTS) returns a ConflictError.
func (r *WatermarkRepo) Advance(ctx context.Context, source, folderTS string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO watermarks (source, folder_ts, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET folder_ts = excluded.folder_ts, updated_at = excluded.updated_at
		WHERE excluded.folder_ts > watermarks.folder_ts`,
		source, folderTS, now)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrConflict("watermark for %q is already at or past %s", source, folderTS)
	}
	return nil
}

// Reset unconditionally sets the watermark (operator reload path).
func (r *WatermarkRepo) Reset(ctx context.Context, source, folderTS string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO watermarks (source, folder_ts, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET folder_ts = excluded.folder_ts, updated_at = excluded.updated_at`,
		source, folderTS, now)
	return mapDBError(err)
}

// List returns all stored watermarks ordered by source.
func (r *WatermarkRepo) List(ctx context.Context) ([]domain.Watermark, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source, folder_ts, updated_at FROM watermarks ORDER BY source`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Watermark
	for rows.Next() {
		var w domain.Watermark
		if err := rows.Scan(&w.Source, &w.FolderTS, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
