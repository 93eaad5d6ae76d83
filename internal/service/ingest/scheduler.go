package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"driftline/internal/domain"
)

// Scheduler drives periodic landing-zone scans: one global scan entry plus
// one cron entry per dataset that carries its own schedule.
type Scheduler struct {
	cron     *cron.Cron
	svc      *Service
	datasets domain.DatasetRepository
	logger   *slog.Logger
	scanSpec string

	mu      sync.Mutex
	entries map[string]cron.EntryID // dataset ID → cron entry
}

// NewScheduler creates a scheduler. scanSpec is the global scan cron
// expression; empty disables the global scan.
func NewScheduler(svc *Service, datasets domain.DatasetRepository, scanSpec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		svc:      svc,
		datasets: datasets,
		logger:   logger.With("component", "scheduler"),
		scanSpec: scanSpec,
		entries:  make(map[string]cron.EntryID),
	}
}

// Start registers the global scan, loads per-dataset schedules and starts
// the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.scanSpec != "" {
		if _, err := s.cron.AddFunc(s.scanSpec, s.runScan); err != nil {
			return fmt.Errorf("invalid scan schedule %q: %w", s.scanSpec, err)
		}
	}
	if err := s.loadSchedules(ctx); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "scan_schedule", s.scanSpec)
	return nil
}

// Stop gracefully stops the cron loop.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

// Reload clears the per-dataset entries and reloads them from the
// metastore. The global scan entry is untouched.
func (s *Scheduler) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entryID := range s.entries {
		s.cron.Remove(entryID)
	}
	s.entries = make(map[string]cron.EntryID)

	return s.loadSchedules(ctx)
}

// loadSchedules adds a cron entry for every unpaused dataset carrying a
// schedule. Invalid expressions are skipped with a warning so one bad
// dataset cannot block the rest.
func (s *Scheduler) loadSchedules(ctx context.Context) error {
	datasets, err := s.datasets.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, ds := range datasets {
		if ds.ScheduleCron == nil {
			continue
		}
		schedule := *ds.ScheduleCron
		name := ds.Name

		entryID, err := s.cron.AddFunc(schedule, func() {
			ctx := context.Background()
			if _, err := s.svc.scanOne(ctx, name, domain.TriggerTypeScheduled, false); err != nil {
				s.logger.Warn("scheduled trigger failed", "dataset", name, "error", err)
			}
		})
		if err != nil {
			s.logger.Warn("invalid cron schedule",
				"dataset", name, "schedule", schedule, "error", err)
			continue
		}

		s.entries[ds.ID] = entryID
		s.logger.Info("scheduled dataset", "dataset", name, "schedule", schedule)
	}

	return nil
}

func (s *Scheduler) runScan() {
	ctx := context.Background()
	report, err := s.svc.Scan(ctx, domain.TriggerTypeScheduled)
	if err != nil {
		s.logger.Warn("scheduled scan failed", "error", err)
		return
	}
	if report.Dispatched > 0 || report.Errors > 0 {
		s.logger.Info("scheduled scan finished",
			"datasets", report.Datasets,
			"dispatched", report.Dispatched,
			"skipped_folders", report.Skipped,
			"errors", report.Errors,
		)
	}
}
