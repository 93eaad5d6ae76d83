// Package ingest implements the landing-zone scan and load pipeline: it
// discovers dated folder drops, gates them against per-source watermarks,
// and runs each file through validate, infer, reconcile, transform and load.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"driftline/internal/domain"
	"driftline/internal/notify"
	"driftline/internal/objectstore"
	"driftline/internal/queue"
	"driftline/internal/warehouse"
	"driftline/internal/watermark"
)

// Default tunables, overridable via SetLimits.
const (
	defaultMaxFileSize = 512 << 20 // bytes
	defaultSampleRows  = 200
	defaultParallelism = 4
	defaultMaxAttempts = 3
)

// TableManager is the slice of the warehouse manager the pipeline uses.
// Tests substitute a fake.
type TableManager interface {
	Exists(ctx context.Context, table string) (bool, error)
	EnsureTable(ctx context.Context, table string, fileSchema domain.FileSchema, keyColumns []string) error
	Reconcile(ctx context.Context, table string, incoming domain.FileSchema) (domain.SchemaDiff, error)
	LoadRows(ctx context.Context, table string, header []string, rows [][]string) (int64, error)
}

var (
	_ TableManager = (*warehouse.Manager)(nil)
	_ TableManager = warehouse.Disabled{}
)

// Service discovers and processes landing-zone drops.
type Service struct {
	datasets domain.DatasetRepository
	runs     domain.RunRepository
	audit    domain.AuditRepository
	stores   *objectstore.Resolver
	marks    watermark.Store
	tables   TableManager
	notifier notify.Sender
	handoff  queue.Publisher
	logger   *slog.Logger

	executor *Executor // optional; nil processes folders inline

	maxFileSize int64
	sampleRows  int
	parallelism int
	maxAttempts int

	mu       sync.Mutex
	inflight map[string]struct{} // dataset/folderTS pairs being processed
}

// New creates a Service with default limits.
func New(
	datasets domain.DatasetRepository,
	runs domain.RunRepository,
	audit domain.AuditRepository,
	stores *objectstore.Resolver,
	marks watermark.Store,
	tables TableManager,
	notifier notify.Sender,
	handoff queue.Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		datasets:    datasets,
		runs:        runs,
		audit:       audit,
		stores:      stores,
		marks:       marks,
		tables:      tables,
		notifier:    notifier,
		handoff:     handoff,
		logger:      logger.With("component", "ingest"),
		maxFileSize: defaultMaxFileSize,
		sampleRows:  defaultSampleRows,
		parallelism: defaultParallelism,
		maxAttempts: defaultMaxAttempts,
		inflight:    make(map[string]struct{}),
	}
}

// SetExecutor hands folder jobs to a background executor instead of
// processing them inline (breaks the service/executor circular dep).
func (s *Service) SetExecutor(e *Executor) {
	s.executor = e
}

// SetLimits overrides the default tunables. Zero values keep the default.
func (s *Service) SetLimits(maxFileSize int64, sampleRows, parallelism, maxAttempts int) {
	if maxFileSize > 0 {
		s.maxFileSize = maxFileSize
	}
	if sampleRows > 0 {
		s.sampleRows = sampleRows
	}
	if parallelism > 0 {
		s.parallelism = parallelism
	}
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
}

// ScanReport aggregates a full landing-zone scan.
type ScanReport struct {
	Datasets   int `json:"datasets"`
	Folders    int `json:"folders"`
	Dispatched int `json:"dispatched"`
	Skipped    int `json:"skipped_folders"`
	Errors     int `json:"errors"`
}

// DatasetScan reports the discovery outcome for one dataset.
type DatasetScan struct {
	Dataset    string   `json:"dataset"`
	Folders    int      `json:"folders"`         // dated folders seen
	Skipped    int      `json:"skipped_folders"` // gated by the watermark or already in flight
	Dispatched int      `json:"dispatched"`      // file runs created
	RunIDs     []string `json:"run_ids,omitempty"`
}

// folderJob is one dated folder with its drops and pre-created run rows.
// The watermark advances only after every drop in the folder loads.
type folderJob struct {
	dataset  *domain.Dataset
	folderTS string
	drops    []domain.FileDrop
	runs     []*domain.Run
	force    bool
}

// Scan discovers new drops for every unpaused dataset and dispatches them,
// oldest folder first. Datasets are scanned concurrently with bounded
// parallelism; one dataset's failure is logged and counted, never fatal.
func (s *Service) Scan(ctx context.Context, triggerType string) (*ScanReport, error) {
	datasets, err := s.datasets.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	principal := principalName(ctx)
	report := &ScanReport{Datasets: len(datasets)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, ds := range datasets {
		g.Go(func() error {
			scan, jobs, err := s.discoverDataset(gctx, &ds, false, triggerType, principal)
			if err != nil {
				s.logger.Error("dataset scan failed", "dataset", ds.Name, "error", err)
				mu.Lock()
				report.Errors++
				mu.Unlock()
				return nil
			}
			s.dispatchJobs(gctx, jobs)
			mu.Lock()
			report.Folders += scan.Folders
			report.Dispatched += scan.Dispatched
			report.Skipped += scan.Skipped
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return report, ctx.Err()
}

// TriggerDataset scans a single dataset on demand. force bypasses the
// watermark gate so already-processed folders reload. Paused datasets can be
// triggered manually; only scheduled scans honor the pause flag.
func (s *Service) TriggerDataset(ctx context.Context, name string, force bool) (*DatasetScan, error) {
	scan, err := s.scanOne(ctx, name, domain.TriggerTypeManual, force)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, principalName(ctx), "dataset.trigger", name)
	return scan, nil
}

// scanOne discovers and dispatches one dataset, shared by the manual trigger
// and the per-dataset cron entries.
func (s *Service) scanOne(ctx context.Context, name, triggerType string, force bool) (*DatasetScan, error) {
	ds, err := s.datasets.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	scan, jobs, err := s.discoverDataset(ctx, ds, force, triggerType, principalName(ctx))
	if err != nil {
		return nil, err
	}
	s.dispatchJobs(ctx, jobs)
	return scan, nil
}

// Process runs the full pipeline for one drop and advances the watermark on
// success. Pipeline failures are recorded in the returned run, not returned
// as an error; only lookup and bookkeeping failures are.
func (s *Service) Process(ctx context.Context, drop domain.FileDrop, triggerType string) (*domain.Run, error) {
	ds, err := s.datasets.GetByName(ctx, drop.Dataset)
	if err != nil {
		return nil, err
	}
	if drop.Key == "" {
		return nil, domain.ErrValidation("drop key is required")
	}
	folderTS, err := domain.ParseFolderTS(drop.FolderTS)
	if err != nil {
		return nil, err
	}
	drop.FolderTS = folderTS

	run := &domain.Run{
		ID:          domain.NewID(),
		DatasetID:   ds.ID,
		DatasetName: ds.Name,
		ObjectKey:   drop.Key,
		FolderTS:    drop.FolderTS,
		Status:      domain.RunStatusPending,
		TriggerType: triggerType,
		TriggeredBy: principalName(ctx),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	_ = s.runDrop(ctx, ds, drop, run, false, true)
	return s.runs.Get(ctx, run.ID)
}

// discoverDataset lists dated folders under the dataset prefix, gates them
// against the watermark, and creates pending runs for the drops to process.
// Folder names that do not parse as timestamps are skipped with a warning,
// as are non-CSV objects; neither blocks the watermark.
func (s *Service) discoverDataset(ctx context.Context, ds *domain.Dataset, force bool, triggerType, principal string) (*DatasetScan, []folderJob, error) {
	logger := s.logger.With("dataset", ds.Name)

	store, bucket, err := s.stores.Resolve(ds.Bucket)
	if err != nil {
		return nil, nil, err
	}

	folders, err := store.ListFolders(ctx, bucket, ds.LandingPrefix())
	if err != nil {
		return nil, nil, err
	}

	scan := &DatasetScan{Dataset: ds.Name}
	var jobs []folderJob
	for _, folder := range folders {
		folderTS, err := domain.ParseFolderTS(folder)
		if err != nil {
			logger.Warn("skipping folder with non-timestamp name", "folder", folder)
			continue
		}
		scan.Folders++

		if !force {
			ok, err := s.marks.ShouldProcess(ctx, ds.Name, folderTS)
			if err != nil {
				return scan, jobs, fmt.Errorf("check watermark for %s: %w", folderTS, err)
			}
			if !ok {
				scan.Skipped++
				continue
			}
		}
		if !s.claimInflight(ds.Name, folderTS) {
			logger.Info("folder already being processed", "folder", folderTS)
			scan.Skipped++
			continue
		}

		objects, err := store.ListObjects(ctx, bucket, path.Join(ds.LandingPrefix(), folder))
		if err != nil {
			s.clearInflight(ds.Name, folderTS)
			return scan, jobs, err
		}

		job := folderJob{dataset: ds, folderTS: folderTS, force: force}
		for _, obj := range objects {
			if !strings.EqualFold(path.Ext(obj.Key), ".csv") {
				logger.Warn("ignoring non-csv object", "key", obj.Key)
				continue
			}
			run := &domain.Run{
				ID:          domain.NewID(),
				DatasetID:   ds.ID,
				DatasetName: ds.Name,
				ObjectKey:   obj.Key,
				FolderTS:    folderTS,
				Status:      domain.RunStatusPending,
				TriggerType: triggerType,
				TriggeredBy: principal,
				CreatedAt:   time.Now().UTC(),
			}
			if err := s.runs.Create(ctx, run); err != nil {
				s.clearInflight(ds.Name, folderTS)
				return scan, jobs, fmt.Errorf("create run: %w", err)
			}
			job.drops = append(job.drops, domain.FileDrop{
				Bucket:       bucket,
				Key:          obj.Key,
				Dataset:      ds.Name,
				FolderTS:     folderTS,
				Size:         obj.Size,
				LastModified: obj.LastModified,
			})
			job.runs = append(job.runs, run)
			scan.Dispatched++
			scan.RunIDs = append(scan.RunIDs, run.ID)
		}

		if len(job.drops) == 0 {
			// Producer may still be uploading; leave the folder for the next scan.
			s.clearInflight(ds.Name, folderTS)
			continue
		}
		jobs = append(jobs, job)
	}
	return scan, jobs, nil
}

// dispatchJobs hands folder jobs to the executor, or processes them inline
// when none is configured. A rejected job rolls its runs back to SKIPPED so
// the next scan picks the folder up again.
func (s *Service) dispatchJobs(ctx context.Context, jobs []folderJob) {
	for _, job := range jobs {
		if s.executor == nil {
			s.processFolder(ctx, job)
			continue
		}
		if err := s.executor.Submit(job); err != nil {
			s.logger.Warn("executor rejected folder, will rescan",
				"dataset", job.dataset.Name, "folder", job.folderTS, "error", err)
			msg := err.Error()
			for _, run := range job.runs {
				_ = s.runs.SetStatus(ctx, run.ID, domain.RunStatusSkipped, &msg)
			}
			s.clearInflight(job.dataset.Name, job.folderTS)
		}
	}
}

// processFolder runs every drop of one folder in key order. The last drop
// advances the watermark, and only when all earlier drops succeeded.
func (s *Service) processFolder(ctx context.Context, job folderJob) {
	defer s.clearInflight(job.dataset.Name, job.folderTS)

	allOK := true
	for i, drop := range job.drops {
		if ctx.Err() != nil {
			for _, run := range job.runs[i:] {
				s.cancelRun(run.ID)
			}
			return
		}
		advance := allOK && i == len(job.drops)-1
		if err := s.runDrop(ctx, job.dataset, drop, job.runs[i], job.force, advance); err != nil {
			allOK = false
		}
	}
	if !allOK {
		s.logger.Warn("folder left unadvanced after failures",
			"dataset", job.dataset.Name, "folder", job.folderTS)
	}
}

func (s *Service) claimInflight(dataset, folderTS string) bool {
	key := dataset + "/" + folderTS
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *Service) clearInflight(dataset, folderTS string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, dataset+"/"+folderTS)
}

func (s *Service) logAudit(ctx context.Context, principal, action, resource string) {
	rt := "dataset"
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		ID:            domain.NewID(),
		PrincipalName: principal,
		Action:        action,
		ResourceType:  &rt,
		ResourceName:  &resource,
		Status:        "OK",
		CreatedAt:     time.Now(),
	})
}

func principalName(ctx context.Context) string {
	if p, ok := domain.PrincipalFromContext(ctx); ok && p.Name != "" {
		return p.Name
	}
	return "system"
}
