package service

import (
	"context"

	"driftline/internal/domain"
)

// RunService provides read access to run history.
type RunService struct {
	repo domain.RunRepository
}

// NewRunService creates a new RunService.
func NewRunService(repo domain.RunRepository) *RunService {
	return &RunService{repo: repo}
}

// List returns a page of runs matching the filter, newest first.
func (s *RunService) List(ctx context.Context, filter domain.RunFilter) ([]domain.Run, int64, error) {
	return s.repo.List(ctx, filter)
}

// Get returns one run by ID.
func (s *RunService) Get(ctx context.Context, id string) (*domain.Run, error) {
	return s.repo.Get(ctx, id)
}

// Events returns the step events for a run, oldest first.
func (s *RunService) Events(ctx context.Context, runID string) ([]domain.RunEvent, error) {
	if _, err := s.repo.Get(ctx, runID); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, runID)
}

// LatestForDataset returns the most recent run for a dataset, or a
// NotFoundError when it has never run.
func (s *RunService) LatestForDataset(ctx context.Context, datasetName string) (*domain.Run, error) {
	return s.repo.LatestForDataset(ctx, datasetName)
}
