package repository

import (
	"context"
	"database/sql"
	"time"

	"driftline/internal/domain"
)

// DatasetRepo persists registered datasets.
type DatasetRepo struct {
	db *sql.DB
}

// NewDatasetRepo creates a new DatasetRepo.
func NewDatasetRepo(db *sql.DB) *DatasetRepo {
	return &DatasetRepo{db: db}
}

const datasetColumns = `id, name, table_name, bucket, prefix, key_columns,
	schedule_cron, transform_hook, paused, notify_on_success,
	created_by, created_at, updated_at`

// Create inserts a new dataset.
func (r *DatasetRepo) Create(ctx context.Context, d *domain.Dataset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO datasets (id, name, table_name, bucket, prefix, key_columns,
			schedule_cron, transform_hook, paused, notify_on_success,
			created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Table, d.Bucket, d.Prefix, encodeStrings(d.KeyColumns),
		nullStr(d.ScheduleCron), nullStr(d.TransformHook),
		boolToInt(d.Paused), boolToInt(d.NotifyOnSuccess),
		d.CreatedBy, d.CreatedAt, d.UpdatedAt)
	return mapDBError(err)
}

// GetByName returns the dataset with the given name.
func (r *DatasetRepo) GetByName(ctx context.Context, name string) (*domain.Dataset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE name = ?`, name)
	d, err := scanDataset(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return d, nil
}

// GetByID returns the dataset with the given ID.
func (r *DatasetRepo) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id)
	d, err := scanDataset(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return d, nil
}

// List returns a page of datasets ordered by name, plus the total count.
func (r *DatasetRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets ORDER BY name LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// ListActive returns all unpaused datasets, ordered by name.
func (r *DatasetRepo) ListActive(ctx context.Context) ([]domain.Dataset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE paused = 0 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Update applies a partial update to the named dataset and returns the result.
func (r *DatasetRepo) Update(ctx context.Context, name string, req domain.UpdateDatasetRequest) (*domain.Dataset, error) {
	d, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if req.Table != nil {
		d.Table = *req.Table
	}
	if req.Bucket != nil {
		d.Bucket = *req.Bucket
	}
	if req.Prefix != nil {
		d.Prefix = *req.Prefix
	}
	if req.KeyColumns != nil {
		d.KeyColumns = *req.KeyColumns
	}
	if req.ScheduleCron != nil {
		if *req.ScheduleCron == "" {
			d.ScheduleCron = nil
		} else {
			d.ScheduleCron = req.ScheduleCron
		}
	}
	if req.TransformHook != nil {
		if *req.TransformHook == "" {
			d.TransformHook = nil
		} else {
			d.TransformHook = req.TransformHook
		}
	}
	if req.Paused != nil {
		d.Paused = *req.Paused
	}
	if req.NotifyOnSuccess != nil {
		d.NotifyOnSuccess = *req.NotifyOnSuccess
	}
	d.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
		UPDATE datasets SET table_name = ?, bucket = ?, prefix = ?, key_columns = ?,
			schedule_cron = ?, transform_hook = ?, paused = ?, notify_on_success = ?,
			updated_at = ?
		WHERE name = ?`,
		d.Table, d.Bucket, d.Prefix, encodeStrings(d.KeyColumns),
		nullStr(d.ScheduleCron), nullStr(d.TransformHook),
		boolToInt(d.Paused), boolToInt(d.NotifyOnSuccess),
		d.UpdatedAt, name)
	if err != nil {
		return nil, mapDBError(err)
	}
	return d, nil
}

// Delete removes the named dataset. Runs cascade via the foreign key.
func (r *DatasetRepo) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("dataset %q not found", name)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row rowScanner) (*domain.Dataset, error) {
	var (
		d            domain.Dataset
		keyCols      string
		scheduleCron sql.NullString
		hook         sql.NullString
		paused       int64
		notify       int64
	)
	err := row.Scan(&d.ID, &d.Name, &d.Table, &d.Bucket, &d.Prefix, &keyCols,
		&scheduleCron, &hook, &paused, &notify,
		&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.KeyColumns = decodeStrings(keyCols)
	d.ScheduleCron = strPtr(scheduleCron)
	d.TransformHook = strPtr(hook)
	d.Paused = paused != 0
	d.NotifyOnSuccess = notify != 0
	return &d, nil
}
