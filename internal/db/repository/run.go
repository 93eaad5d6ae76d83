package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"driftline/internal/domain"
)

// RunRepo persists run records and their step events.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

const runColumns = `id, dataset_id, dataset_name, object_key, folder_ts, status,
	trigger_type, triggered_by, rows_loaded, rows_dropped, retry_attempt,
	error_message, started_at, finished_at, created_at`

// Create inserts a new run record.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, dataset_id, dataset_name, object_key, folder_ts, status,
			trigger_type, triggered_by, rows_loaded, rows_dropped, retry_attempt,
			error_message, started_at, finished_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.DatasetID, run.DatasetName, run.ObjectKey, run.FolderTS, run.Status,
		run.TriggerType, run.TriggeredBy, run.RowsLoaded, run.RowsDropped, run.RetryAttempt,
		nullStr(run.ErrorMessage), nullTimeFrom(run.StartedAt), nullTimeFrom(run.FinishedAt),
		run.CreatedAt)
	return mapDBError(err)
}

// Get returns the run with the given ID.
func (r *RunRepo) Get(ctx context.Context, id string) (*domain.Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return run, nil
}

// List returns a page of runs matching the filter, newest first, plus the total count.
func (r *RunRepo) List(ctx context.Context, filter domain.RunFilter) ([]domain.Run, int64, error) {
	var conds []string
	var args []interface{}
	if filter.DatasetName != nil {
		conds = append(conds, "dataset_name = ?")
		args = append(args, *filter.DatasetName)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs`+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *run)
	}
	return out, total, rows.Err()
}

// SetStatus transitions the run to status, stamping started/finished times
// and the error message as appropriate.
func (r *RunRepo) SetStatus(ctx context.Context, id, status string, errMsg *string) error {
	now := time.Now().UTC()
	var res sql.Result
	var err error
	switch status {
	case domain.RunStatusRunning:
		res, err = r.db.ExecContext(ctx,
			`UPDATE runs SET status = ?, started_at = ? WHERE id = ?`, status, now, id)
	case domain.RunStatusSuccess, domain.RunStatusFailed, domain.RunStatusSkipped, domain.RunStatusCancelled:
		res, err = r.db.ExecContext(ctx,
			`UPDATE runs SET status = ?, finished_at = ?, error_message = ? WHERE id = ?`,
			status, now, nullStr(errMsg), id)
	default:
		res, err = r.db.ExecContext(ctx,
			`UPDATE runs SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("run %q not found", id)
	}
	return nil
}

// SetCounts records the loaded/dropped row counts for the run.
func (r *RunRepo) SetCounts(ctx context.Context, id string, loaded, dropped int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET rows_loaded = ?, rows_dropped = ? WHERE id = ?`, loaded, dropped, id)
	return mapDBError(err)
}

// SetRetryAttempt records the current retry attempt for the run.
func (r *RunRepo) SetRetryAttempt(ctx context.Context, id string, attempt int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET retry_attempt = ? WHERE id = ?`, attempt, id)
	return mapDBError(err)
}

// AddEvent appends a step event to the run.
func (r *RunRepo) AddEvent(ctx context.Context, e *domain.RunEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO run_events (id, run_id, step, level, message, at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.RunID, e.Step, e.Level, e.Message, e.At)
	return mapDBError(err)
}

// ListEvents returns all events of a run in insertion order.
func (r *RunRepo) ListEvents(ctx context.Context, runID string) ([]domain.RunEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, run_id, step, level, message, at FROM run_events WHERE run_id = ? ORDER BY at, id`,
		runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.RunEvent
	for rows.Next() {
		var e domain.RunEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.Step, &e.Level, &e.Message, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestForDataset returns the most recent run for a dataset, or NotFound
// when the dataset has never run.
func (r *RunRepo) LatestForDataset(ctx context.Context, datasetName string) (*domain.Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE dataset_name = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		datasetName)
	run, err := scanRun(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return run, nil
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var (
		run      domain.Run
		errMsg   sql.NullString
		started  sql.NullTime
		finished sql.NullTime
	)
	err := row.Scan(&run.ID, &run.DatasetID, &run.DatasetName, &run.ObjectKey, &run.FolderTS,
		&run.Status, &run.TriggerType, &run.TriggeredBy, &run.RowsLoaded, &run.RowsDropped,
		&run.RetryAttempt, &errMsg, &started, &finished, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	run.ErrorMessage = strPtr(errMsg)
	run.StartedAt = timePtr(started)
	run.FinishedAt = timePtr(finished)
	return &run, nil
}
