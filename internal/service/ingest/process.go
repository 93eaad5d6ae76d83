package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"driftline/internal/domain"
	"driftline/internal/schema"
	"driftline/internal/transform"
	"driftline/internal/validate"
)

// Pipeline step names recorded in run events.
const (
	stepGate      = "gate"
	stepFetch     = "fetch"
	stepValidate  = "validate"
	stepInfer     = "infer"
	stepDDL       = "ddl"
	stepTransform = "transform"
	stepLoad      = "load"
	stepWatermark = "watermark"
	stepNotify    = "notify"
	stepHandoff   = "handoff"
	stepRetry     = "retry"
)

// maxRowErrorEvents caps how many transform row errors get their own event.
const maxRowErrorEvents = 5

// runDrop processes one drop with retries and owns the run's final status.
// Validation and not-found failures are final immediately; anything else
// retries with exponential backoff (1s, 2s, 4s...). Cancellation marks the
// run CANCELLED.
func (s *Service) runDrop(ctx context.Context, ds *domain.Dataset, drop domain.FileDrop, run *domain.Run, force, advance bool) error {
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			if ctx.Err() == nil {
				_ = s.runs.SetRetryAttempt(ctx, run.ID, attempt)
				s.event(ctx, run.ID, stepRetry, domain.EventLevelInfo,
					"retrying after %s (attempt %d of %d)", backoff, attempt+1, s.maxAttempts)
			}
		}
		if ctx.Err() != nil {
			s.cancelRun(run.ID)
			return ctx.Err()
		}

		lastErr = s.processDrop(ctx, ds, drop, run, force, advance)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			s.cancelRun(run.ID)
			return lastErr
		}
		if !retryable(lastErr) {
			break
		}
		s.logger.Warn("drop attempt failed",
			"run_id", run.ID, "key", drop.Key, "attempt", attempt+1, "error", lastErr)
	}

	msg := lastErr.Error()
	_ = s.runs.SetStatus(ctx, run.ID, domain.RunStatusFailed, &msg)

	result := domain.LoadResult{
		Dataset:   ds.Name,
		Table:     ds.TableName(),
		Bucket:    drop.Bucket,
		ObjectKey: drop.Key,
		FolderTS:  drop.FolderTS,
	}
	if err := s.notifier.LoadFailed(ctx, result, lastErr); err != nil {
		s.event(ctx, run.ID, stepNotify, domain.EventLevelWarn, "failure notification failed: %v", err)
	}
	return lastErr
}

// processDrop is one attempt of the full pipeline for one drop. It records a
// run event per step, sets SUCCESS and SKIPPED itself, and leaves failure
// finalization to the caller so attempts can be retried.
func (s *Service) processDrop(ctx context.Context, ds *domain.Dataset, drop domain.FileDrop, run *domain.Run, force, advance bool) error {
	started := time.Now()
	logger := s.logger.With("run_id", run.ID, "dataset", ds.Name, "key", drop.Key)

	if err := s.runs.SetStatus(ctx, run.ID, domain.RunStatusRunning, nil); err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}

	// Re-check the gate: a concurrent scan may have advanced the watermark
	// between discovery and processing.
	if !force {
		ok, err := s.marks.ShouldProcess(ctx, ds.Name, drop.FolderTS)
		if err != nil {
			return s.stepFailed(ctx, run, stepGate, err)
		}
		if !ok {
			s.event(ctx, run.ID, stepGate, domain.EventLevelInfo,
				"watermark moved past folder %s, skipping", drop.FolderTS)
			_ = s.runs.SetStatus(ctx, run.ID, domain.RunStatusSkipped, nil)
			return nil
		}
	}

	store, bucket, err := s.stores.Resolve(ds.Bucket)
	if err != nil {
		return s.stepFailed(ctx, run, stepFetch, err)
	}

	if err := validate.CheckFile(path.Base(drop.Key), drop.Size, s.maxFileSize); err != nil {
		return s.stepFailed(ctx, run, stepValidate, err)
	}

	body, err := store.Get(ctx, bucket, drop.Key)
	if err != nil {
		return s.stepFailed(ctx, run, stepFetch, err)
	}
	header, rows, err := readCSV(body)
	if err != nil {
		return s.stepFailed(ctx, run, stepFetch, domain.ErrValidation("parse %s: %v", drop.Key, err))
	}

	header, err = validate.CheckHeader(validate.StripBOM(header))
	if err != nil {
		return s.stepFailed(ctx, run, stepValidate, err)
	}
	nullRows, _, err := validate.CheckRows(header, rows)
	if err != nil {
		return s.stepFailed(ctx, run, stepValidate, err)
	}
	s.event(ctx, run.ID, stepValidate, domain.EventLevelInfo,
		"validated %d rows across %d columns", len(rows), len(header))

	if len(nullRows) > 0 {
		s.event(ctx, run.ID, stepValidate, domain.EventLevelWarn,
			"%d row(s) contain empty values", len(nullRows))
		if err := s.notifier.NullRowsFound(ctx, ds.Name, drop.Key, nullRows); err != nil {
			s.event(ctx, run.ID, stepNotify, domain.EventLevelWarn, "null-values notification failed: %v", err)
		}
	}

	sample := rows
	if len(sample) > s.sampleRows {
		sample = sample[:s.sampleRows]
	}
	fileSchema := schema.Infer(header, sample)
	s.event(ctx, run.ID, stepInfer, domain.EventLevelInfo,
		"inferred %d columns from %d sampled rows", len(fileSchema), len(sample))

	for _, k := range ds.KeyColumns {
		if _, ok := fileSchema.Column(k); !ok {
			return s.stepFailed(ctx, run, stepDDL,
				domain.ErrValidation("key column %q is not in the file header", k))
		}
	}

	table := ds.TableName()
	exists, err := s.tables.Exists(ctx, table)
	if err != nil {
		return s.stepFailed(ctx, run, stepDDL, err)
	}
	if !exists {
		if err := s.tables.EnsureTable(ctx, table, fileSchema, ds.KeyColumns); err != nil {
			return s.stepFailed(ctx, run, stepDDL, err)
		}
		s.event(ctx, run.ID, stepDDL, domain.EventLevelInfo,
			"created table %s with %d columns", table, len(fileSchema))
	} else {
		diff, err := s.tables.Reconcile(ctx, table, fileSchema)
		if err != nil {
			return s.stepFailed(ctx, run, stepDDL, err)
		}
		for _, col := range diff.Added {
			s.event(ctx, run.ID, stepDDL, domain.EventLevelInfo,
				"added column %s %s", col.Name, col.Type)
		}
		for _, tc := range diff.TypeChanges {
			// Values of the incoming type must fit the stored column.
			if !schema.Widens(tc.To, tc.From) {
				return s.stepFailed(ctx, run, stepDDL, domain.ErrValidation(
					"column %q now holds %s values but the table column is %s, refusing lossy load",
					tc.Name, tc.To, tc.From))
			}
			s.event(ctx, run.ID, stepDDL, domain.EventLevelWarn,
				"column %s type drift: table has %s, file has %s (not applied)", tc.Name, tc.From, tc.To)
		}
		for _, col := range diff.Removed {
			s.event(ctx, run.ID, stepDDL, domain.EventLevelWarn,
				"column %s missing from file, left untouched", col.Name)
		}
	}

	hookSource := ""
	if ds.TransformHook != nil {
		hookSource = *ds.TransformHook
	}
	tres, err := transform.Run(header, rows, fileSchema, hookSource)
	if err != nil {
		return s.stepFailed(ctx, run, stepTransform, err)
	}
	s.event(ctx, run.ID, stepTransform, domain.EventLevelInfo,
		"cleaned rows: %d null, %d duplicate, %d hook-dropped, %d errored",
		len(tres.NullRows), tres.Duplicates, tres.HookDropped, len(tres.RowErrors))
	for i, re := range tres.RowErrors {
		if i == maxRowErrorEvents {
			s.event(ctx, run.ID, stepTransform, domain.EventLevelWarn,
				"(and %d more row errors)", len(tres.RowErrors)-maxRowErrorEvents)
			break
		}
		s.event(ctx, run.ID, stepTransform, domain.EventLevelWarn,
			"row %d dropped: %s", re.Row, re.Message)
	}

	loaded, err := s.tables.LoadRows(ctx, table, header, tres.Rows)
	if err != nil {
		return s.stepFailed(ctx, run, stepLoad, err)
	}
	dropped := int64(tres.Dropped())
	_ = s.runs.SetCounts(ctx, run.ID, loaded, dropped)
	s.event(ctx, run.ID, stepLoad, domain.EventLevelInfo, "loaded %d rows into %s", loaded, table)

	result := domain.LoadResult{
		Dataset:     ds.Name,
		Table:       table,
		Bucket:      drop.Bucket,
		ObjectKey:   drop.Key,
		FolderTS:    drop.FolderTS,
		RowsLoaded:  loaded,
		RowsDropped: dropped,
		Duration:    time.Since(started),
	}

	if advance {
		if err := s.marks.Advance(ctx, ds.Name, drop.FolderTS); err != nil {
			var conflict *domain.ConflictError
			if errors.As(err, &conflict) {
				s.event(ctx, run.ID, stepWatermark, domain.EventLevelInfo,
					"watermark already at or past %s", drop.FolderTS)
			} else {
				s.event(ctx, run.ID, stepWatermark, domain.EventLevelWarn,
					"watermark advance failed, folder will be rescanned: %v", err)
			}
		} else {
			s.event(ctx, run.ID, stepWatermark, domain.EventLevelInfo,
				"watermark advanced to %s", drop.FolderTS)
		}
	}

	if ds.NotifyOnSuccess {
		if err := s.notifier.LoadSucceeded(ctx, result); err != nil {
			s.event(ctx, run.ID, stepNotify, domain.EventLevelWarn, "success notification failed: %v", err)
		}
	}
	if err := s.handoff.LoadCompleted(ctx, result); err != nil {
		s.event(ctx, run.ID, stepHandoff, domain.EventLevelWarn, "queue handoff failed: %v", err)
	}

	if err := s.runs.SetStatus(ctx, run.ID, domain.RunStatusSuccess, nil); err != nil {
		return fmt.Errorf("mark run succeeded: %w", err)
	}
	logger.Info("drop loaded", "rows", loaded, "dropped", dropped, "duration", result.Duration)
	return nil
}

// event appends a best-effort run event.
func (s *Service) event(ctx context.Context, runID, step, level, format string, args ...any) {
	_ = s.runs.AddEvent(ctx, &domain.RunEvent{
		ID:      domain.NewID(),
		RunID:   runID,
		Step:    step,
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		At:      time.Now().UTC(),
	})
}

// stepFailed records the failing step and returns the error for the retry
// controller to finalize.
func (s *Service) stepFailed(ctx context.Context, run *domain.Run, step string, err error) error {
	s.event(ctx, run.ID, step, domain.EventLevelError, "%v", err)
	return err
}

// cancelRun marks a run CANCELLED using a fresh context, since the worker's
// own context is already done by the time cancellation is observed.
func (s *Service) cancelRun(runID string) {
	msg := "cancelled"
	_ = s.runs.SetStatus(context.Background(), runID, domain.RunStatusCancelled, &msg)
}

// retryable reports whether an attempt error is worth retrying. Validation
// and not-found errors describe the file or configuration and will not heal
// on their own.
func retryable(err error) bool {
	var vErr *domain.ValidationError
	var nfErr *domain.NotFoundError
	return !errors.As(err, &vErr) && !errors.As(err, &nfErr)
}

// readCSV parses the whole payload, returning the raw header and data rows.
// Ragged rows are tolerated here so the validator can report them with row
// numbers.
func readCSV(body io.ReadCloser) ([]string, [][]string, error) {
	defer func() { _ = body.Close() }()

	r := csv.NewReader(body)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("file has no header row")
	}
	return records[0], records[1:], nil
}
