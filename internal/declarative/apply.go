package declarative

import (
	"context"
	"errors"
	"slices"

	"driftline/internal/domain"
)

// Apply outcome values, one per document.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionUnchanged = "unchanged"
	ActionError     = "error"
)

// ApplyResult reports the outcome for one document.
type ApplyResult struct {
	Name   string `json:"name"`
	Action string `json:"action"`
	Error  string `json:"error,omitempty"`
}

// DatasetUpserter is the slice of the dataset service Apply needs.
type DatasetUpserter interface {
	Get(ctx context.Context, name string) (*domain.Dataset, error)
	Create(ctx context.Context, req domain.CreateDatasetRequest) (*domain.Dataset, error)
	Update(ctx context.Context, name string, req domain.UpdateDatasetRequest) (*domain.Dataset, error)
}

// Apply upserts each document by name. Failures are reported per document
// rather than aborting the batch, so one bad registration does not block
// the rest of the file.
func Apply(ctx context.Context, svc DatasetUpserter, docs []DatasetDoc) []ApplyResult {
	results := make([]ApplyResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, applyOne(ctx, svc, doc))
	}
	return results
}

func applyOne(ctx context.Context, svc DatasetUpserter, doc DatasetDoc) ApplyResult {
	name := doc.Metadata.Name
	current, err := svc.Get(ctx, name)
	var notFound *domain.NotFoundError
	switch {
	case errors.As(err, &notFound):
		if _, err := svc.Create(ctx, createRequest(doc)); err != nil {
			return ApplyResult{Name: name, Action: ActionError, Error: err.Error()}
		}
		return ApplyResult{Name: name, Action: ActionCreated}
	case err != nil:
		return ApplyResult{Name: name, Action: ActionError, Error: err.Error()}
	}

	if specMatches(current, doc.Spec) {
		return ApplyResult{Name: name, Action: ActionUnchanged}
	}
	if _, err := svc.Update(ctx, name, updateRequest(doc)); err != nil {
		return ApplyResult{Name: name, Action: ActionError, Error: err.Error()}
	}
	return ApplyResult{Name: name, Action: ActionUpdated}
}

func createRequest(doc DatasetDoc) domain.CreateDatasetRequest {
	return domain.CreateDatasetRequest{
		Name:            doc.Metadata.Name,
		Table:           doc.Spec.Table,
		Bucket:          doc.Spec.Bucket,
		Prefix:          doc.Spec.Prefix,
		KeyColumns:      doc.Spec.KeyColumns,
		ScheduleCron:    doc.Spec.ScheduleCron,
		TransformHook:   doc.Spec.TransformHook,
		Paused:          doc.Spec.Paused,
		NotifyOnSuccess: doc.Spec.NotifyOnSuccess,
	}
}

// updateRequest sets every field so the document fully overwrites the stored
// registration. Optional fields omitted in YAML clear via the empty string.
func updateRequest(doc DatasetDoc) domain.UpdateDatasetRequest {
	spec := doc.Spec
	cron := strOrEmpty(spec.ScheduleCron)
	hook := strOrEmpty(spec.TransformHook)
	return domain.UpdateDatasetRequest{
		Table:           &spec.Table,
		Bucket:          &spec.Bucket,
		Prefix:          &spec.Prefix,
		KeyColumns:      &spec.KeyColumns,
		ScheduleCron:    &cron,
		TransformHook:   &hook,
		Paused:          &spec.Paused,
		NotifyOnSuccess: &spec.NotifyOnSuccess,
	}
}

func specMatches(d *domain.Dataset, spec DatasetSpec) bool {
	return d.Table == spec.Table &&
		d.Bucket == spec.Bucket &&
		d.Prefix == spec.Prefix &&
		slices.Equal(d.KeyColumns, spec.KeyColumns) &&
		strOrEmpty(d.ScheduleCron) == strOrEmpty(spec.ScheduleCron) &&
		strOrEmpty(d.TransformHook) == strOrEmpty(spec.TransformHook) &&
		d.Paused == spec.Paused &&
		d.NotifyOnSuccess == spec.NotifyOnSuccess
}

func strOrEmpty(p *string) string {
	if p != nil {
		return *p
	}
	return ""
}
