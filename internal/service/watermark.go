package service

import (
	"context"
	"time"

	"driftline/internal/domain"
	"driftline/internal/watermark"
)

// WatermarkService exposes read and reset access to the incremental-load
// tracker.
type WatermarkService struct {
	store    watermark.Store
	datasets domain.DatasetRepository
	audit    domain.AuditRepository
}

// NewWatermarkService creates a new WatermarkService.
func NewWatermarkService(store watermark.Store, datasets domain.DatasetRepository, audit domain.AuditRepository) *WatermarkService {
	return &WatermarkService{store: store, datasets: datasets, audit: audit}
}

// Get returns the watermark for a registered dataset. An unknown dataset is
// an error; a known dataset that never loaded yields a zero watermark.
func (s *WatermarkService) Get(ctx context.Context, source string) (*domain.Watermark, error) {
	if _, err := s.datasets.GetByName(ctx, source); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, source)
}

// List returns all watermarks ordered by source.
func (s *WatermarkService) List(ctx context.Context) ([]domain.Watermark, error) {
	return s.store.List(ctx)
}

// Reset sets a dataset's watermark unconditionally, including backwards.
// An empty folderTS clears it, so the next scan reloads every folder.
func (s *WatermarkService) Reset(ctx context.Context, source, folderTS string) (*domain.Watermark, error) {
	if _, err := s.datasets.GetByName(ctx, source); err != nil {
		return nil, err
	}
	if folderTS != "" {
		ts, err := domain.ParseFolderTS(folderTS)
		if err != nil {
			return nil, err
		}
		folderTS = ts
	}

	if err := s.store.Reset(ctx, source, folderTS); err != nil {
		return nil, err
	}

	rt := "watermark"
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		ID:            domain.NewID(),
		PrincipalName: callerName(ctx),
		Action:        "watermark.reset",
		ResourceType:  &rt,
		ResourceName:  &source,
		Status:        "OK",
		CreatedAt:     time.Now(),
	})

	return s.store.Get(ctx, source)
}
