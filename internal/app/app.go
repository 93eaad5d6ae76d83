// Package app provides application-level wiring and dependency injection:
// repositories, services, messaging, the watermark backend and the background
// workers, assembled from config into one App that main() runs.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"driftline/internal/config"
	"driftline/internal/db/repository"
	"driftline/internal/middleware"
	"driftline/internal/notify"
	"driftline/internal/objectstore"
	"driftline/internal/profile"
	"driftline/internal/queue"
	"driftline/internal/service"
	"driftline/internal/service/ingest"
	"driftline/internal/transform"
	"driftline/internal/warehouse"
	"driftline/internal/watermark"
)

// Deps holds the external dependencies that main() must provide.
// These are things the app package cannot (or should not) create itself:
// database handles, config, and the logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	// WarehouseDB is the MySQL destination. nil when WAREHOUSE_DSN is not
	// set; scans then validate and report but never load.
	WarehouseDB *sql.DB
	Logger      *slog.Logger
}

// Services groups the service pointers the API handler and the console need.
type Services struct {
	Dataset   *service.DatasetService
	Run       *service.RunService
	Watermark *service.WatermarkService
	APIKey    *service.APIKeyService
	Audit     *service.AuditService
	Ingest    *ingest.Service
}

// App holds the fully-wired application: services, the request authenticator,
// and the background workers whose lifecycle main() drives.
type App struct {
	Services  Services
	Auth      *middleware.Authenticator
	Executor  *ingest.Executor
	Scheduler *ingest.Scheduler
	Profiler  *profile.Profiler // nil unless FEATURE_PROFILER is on
}

// New wires repositories, services, messaging and workers from the provided
// deps. It also applies the declarative dataset directory when one is
// configured. Background workers are created but not started.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	// === Repositories ===
	datasetRepo := repository.NewDatasetRepo(deps.WriteDB)
	runRepo := repository.NewRunRepo(deps.WriteDB)
	auditRepo := repository.NewAuditRepo(deps.WriteDB)
	apiKeyRepo := repository.NewAPIKeyRepo(deps.WriteDB)

	// === Watermark backend ===
	var marks watermark.Store
	switch cfg.WatermarkBackend {
	case "dynamodb":
		client := watermark.NewDynamoClient(watermark.ClientOptions{
			Region:   *cfg.AWSRegion,
			KeyID:    *cfg.AWSKeyID,
			Secret:   *cfg.AWSSecret,
			Endpoint: strOrEmpty(cfg.AWSEndpoint),
		})
		marks = watermark.NewDynamoStore(client, cfg.WatermarkTable)
		deps.Logger.Info("watermark backend: dynamodb", "table", cfg.WatermarkTable)
	default:
		marks = repository.NewWatermarkRepo(deps.WriteDB)
	}

	// === Landing-zone backends ===
	var s3Store, gcsStore, azureStore objectstore.Store
	if cfg.HasAWSConfig() {
		s3Store = objectstore.NewS3Store(objectstore.S3Options{
			Region:   *cfg.AWSRegion,
			KeyID:    *cfg.AWSKeyID,
			Secret:   *cfg.AWSSecret,
			Endpoint: strOrEmpty(cfg.AWSEndpoint),
		})
	}
	if cfg.GCSCredentialsFile != nil {
		store, err := objectstore.NewGCSStore(ctx, *cfg.GCSCredentialsFile)
		if err != nil {
			deps.Logger.Warn("gcs landing backend unavailable", "error", err)
		} else {
			gcsStore = store
		}
	}
	if cfg.AzureAccountName != nil && cfg.AzureAccountKey != nil {
		store, err := objectstore.NewAzureStore(*cfg.AzureAccountName, *cfg.AzureAccountKey)
		if err != nil {
			deps.Logger.Warn("azure landing backend unavailable", "error", err)
		} else {
			azureStore = store
		}
	}
	stores := objectstore.NewResolver(s3Store, gcsStore, azureStore)

	// === Warehouse ===
	var tables ingest.TableManager = warehouse.Disabled{}
	if deps.WarehouseDB != nil {
		tables = warehouse.NewManager(deps.WarehouseDB, deps.Logger.With("component", "warehouse"))
	}

	// === Notifier ===
	var rules *notify.Rules
	if cfg.NotifyRulesPath != "" {
		loaded, err := notify.LoadRules(cfg.NotifyRulesPath)
		if err != nil {
			return nil, fmt.Errorf("notification rules: %w", err)
		}
		rules = loaded
	}
	var publisher notify.Publisher = notify.NewLogPublisher(deps.Logger)
	if cfg.SNSTopicARN != "" {
		if cfg.HasAWSConfig() {
			publisher = notify.NewSNSPublisher(notify.SNSOptions{
				Region:   *cfg.AWSRegion,
				KeyID:    *cfg.AWSKeyID,
				Secret:   *cfg.AWSSecret,
				Endpoint: strOrEmpty(cfg.AWSEndpoint),
			})
		} else {
			deps.Logger.Warn("SNS_TOPIC_ARN set but AWS credentials missing, notifications go to the log")
		}
	}
	notifier := notify.New(publisher, rules, cfg.SNSTopicARN, deps.Logger)

	// === Handoff queue ===
	var handoff queue.Publisher = queue.NopPublisher{}
	if cfg.SQSQueueURL != "" {
		if cfg.HasAWSConfig() {
			handoff = queue.NewSQSPublisher(queue.SQSOptions{
				Region:   *cfg.AWSRegion,
				KeyID:    *cfg.AWSKeyID,
				Secret:   *cfg.AWSSecret,
				Endpoint: strOrEmpty(cfg.AWSEndpoint),
				QueueURL: cfg.SQSQueueURL,
			})
		} else {
			deps.Logger.Warn("SQS_QUEUE_URL set but AWS credentials missing, handoffs are dropped")
		}
	}

	// === Transform hook limits ===
	maxSteps := uint64(0)
	if cfg.HookMaxSteps > 0 {
		maxSteps = uint64(cfg.HookMaxSteps)
	}
	transform.SetHookLimits(maxSteps, cfg.HookTimeout)

	// === Core services ===
	datasetSvc := service.NewDatasetService(datasetRepo, auditRepo)
	runSvc := service.NewRunService(runRepo)
	watermarkSvc := service.NewWatermarkService(marks, datasetRepo, auditRepo)
	apiKeySvc := service.NewAPIKeyService(apiKeyRepo, auditRepo)
	auditSvc := service.NewAuditService(auditRepo)

	ingestSvc := ingest.New(
		datasetRepo, runRepo, auditRepo,
		stores, marks, tables, notifier, handoff,
		deps.Logger,
	)
	ingestSvc.SetLimits(cfg.MaxFileSize, cfg.InferSampleRows, cfg.ScanConcurrency, 0)

	// === Background workers ===
	executor := ingest.NewExecutor(ingestSvc, cfg.ScanConcurrency, 0, deps.Logger)
	ingestSvc.SetExecutor(executor)
	scheduler := ingest.NewScheduler(ingestSvc, datasetRepo, cfg.ScanSchedule, deps.Logger)

	// === Declarative datasets (best-effort, before the reloader is wired
	// so boot-time applies do not rebuild cron entries one by one) ===
	if cfg.DatasetsDir != "" {
		applyDatasetDir(ctx, cfg.DatasetsDir, datasetSvc, deps.Logger)
	}
	datasetSvc.SetScheduleReloader(scheduler)

	// === Profiler ===
	var profiler *profile.Profiler
	if cfg.FeatureProfiler {
		p, err := profile.New()
		if err != nil {
			deps.Logger.Warn("file profiler unavailable", "error", err)
		} else {
			profiler = p
			deps.Logger.Info("file profiler enabled")
		}
	}

	// === Authentication ===
	validator, err := middleware.NewValidatorFromConfig(ctx, cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("token validator: %w", err)
	}
	// Key lookups ride the read pool; the API key service writes through the
	// write pool above.
	auth := middleware.NewAuthenticator(validator, repository.NewAPIKeyRepo(deps.ReadDB), cfg.Auth, deps.Logger)

	return &App{
		Services: Services{
			Dataset:   datasetSvc,
			Run:       runSvc,
			Watermark: watermarkSvc,
			APIKey:    apiKeySvc,
			Audit:     auditSvc,
			Ingest:    ingestSvc,
		},
		Auth:      auth,
		Executor:  executor,
		Scheduler: scheduler,
		Profiler:  profiler,
	}, nil
}

// Start launches the executor pool and the scan scheduler.
func (a *App) Start(ctx context.Context) error {
	a.Executor.Start(ctx)
	if err := a.Scheduler.Start(ctx); err != nil {
		a.Executor.Stop()
		return err
	}
	return nil
}

// Stop halts the scheduler first so no new folder jobs are queued, then
// drains the executor. Runs still in flight are marked CANCELLED.
func (a *App) Stop() {
	a.Scheduler.Stop()
	a.Executor.Stop()
}

// Close releases resources owned by the app (currently the profiler's
// embedded database). Database pools belong to main and are closed there.
func (a *App) Close() error {
	if a.Profiler != nil {
		return a.Profiler.Close()
	}
	return nil
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
