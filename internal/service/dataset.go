package service

import (
	"context"
	"time"

	"driftline/internal/domain"
	"driftline/internal/objectstore"
)

// ScheduleReloader allows the service to notify the scheduler to reload.
type ScheduleReloader interface {
	Reload(ctx context.Context) error
}

// DatasetService provides business logic for dataset registration.
type DatasetService struct {
	repo     domain.DatasetRepository
	audit    domain.AuditRepository
	reloader ScheduleReloader
}

// NewDatasetService creates a new DatasetService.
func NewDatasetService(repo domain.DatasetRepository, audit domain.AuditRepository) *DatasetService {
	return &DatasetService{repo: repo, audit: audit}
}

// SetScheduleReloader sets the schedule reloader (breaks circular dep).
func (s *DatasetService) SetScheduleReloader(r ScheduleReloader) {
	s.reloader = r
}

// Create registers a dataset. Table and prefix default to the dataset name;
// the bucket URL must parse even if the backend is not configured yet.
func (s *DatasetService) Create(ctx context.Context, req domain.CreateDatasetRequest) (*domain.Dataset, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := objectstore.ParseBucketURL(req.Bucket); err != nil {
		return nil, domain.ErrValidation("bucket: %v", err)
	}

	now := time.Now().UTC()
	ds := &domain.Dataset{
		ID:              domain.NewID(),
		Name:            req.Name,
		Table:           req.Table,
		Bucket:          req.Bucket,
		Prefix:          req.Prefix,
		KeyColumns:      req.KeyColumns,
		ScheduleCron:    req.ScheduleCron,
		TransformHook:   req.TransformHook,
		Paused:          req.Paused,
		NotifyOnSuccess: req.NotifyOnSuccess,
		CreatedBy:       callerName(ctx),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, ds); err != nil {
		return nil, err
	}

	s.logAudit(ctx, "dataset.create", ds.Name)
	if s.reloader != nil {
		_ = s.reloader.Reload(ctx)
	}
	return ds, nil
}

// Get returns a dataset by name.
func (s *DatasetService) Get(ctx context.Context, name string) (*domain.Dataset, error) {
	return s.repo.GetByName(ctx, name)
}

// List returns a page of datasets.
func (s *DatasetService) List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	return s.repo.List(ctx, page)
}

// Update applies a partial update to a dataset.
func (s *DatasetService) Update(ctx context.Context, name string, req domain.UpdateDatasetRequest) (*domain.Dataset, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Bucket != nil {
		if _, err := objectstore.ParseBucketURL(*req.Bucket); err != nil {
			return nil, domain.ErrValidation("bucket: %v", err)
		}
	}

	ds, err := s.repo.Update(ctx, name, req)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "dataset.update", name)
	if s.reloader != nil {
		_ = s.reloader.Reload(ctx)
	}
	return ds, nil
}

// Delete removes a dataset registration. Run history and the watermark are
// kept so a re-registered dataset resumes where it left off.
func (s *DatasetService) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}

	s.logAudit(ctx, "dataset.delete", name)
	if s.reloader != nil {
		_ = s.reloader.Reload(ctx)
	}
	return nil
}

func (s *DatasetService) logAudit(ctx context.Context, action, name string) {
	rt := "dataset"
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		ID:            domain.NewID(),
		PrincipalName: callerName(ctx),
		Action:        action,
		ResourceType:  &rt,
		ResourceName:  &name,
		Status:        "OK",
		CreatedAt:     time.Now(),
	})
}
