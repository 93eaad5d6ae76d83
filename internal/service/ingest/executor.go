package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"driftline/internal/domain"
)

// Default executor sizing.
const (
	defaultWorkers   = 2
	defaultQueueSize = 64
)

// Executor processes folder jobs in background goroutines with bounded
// concurrency. Submit never blocks: a full queue rejects the job and the
// folder comes back on the next scan.
type Executor struct {
	svc    *Service
	logger *slog.Logger

	workers int
	jobs    chan folderJob

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewExecutor creates an executor. Non-positive workers or queueSize use
// the defaults.
func NewExecutor(svc *Service, workers, queueSize int, logger *slog.Logger) *Executor {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Executor{
		svc:     svc,
		logger:  logger.With("component", "executor"),
		workers: workers,
		jobs:    make(chan folderJob, queueSize),
	}
}

// Start launches the worker pool. Workers exit when Stop is called; runs
// still in flight at that point are marked CANCELLED.
func (e *Executor) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx)
	}
	e.logger.Info("executor started", "workers", e.workers, "queue", cap(e.jobs))
}

// Stop rejects further jobs, cancels in-flight work and waits for the
// workers to drain.
func (e *Executor) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.jobs)
	e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.logger.Info("executor stopped")
}

// Submit enqueues a folder job without blocking.
func (e *Executor) Submit(job folderJob) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return fmt.Errorf("executor stopped")
	}
	select {
	case e.jobs <- job:
		return nil
	default:
		return fmt.Errorf("executor queue full (%d jobs waiting)", cap(e.jobs))
	}
}

func (e *Executor) worker(ctx context.Context) {
	defer e.wg.Done()
	for job := range e.jobs {
		e.run(ctx, job)
	}
}

// run processes one folder with panic recovery, so a poisoned file cannot
// take the worker down. Runs the panic interrupted are marked FAILED;
// already-finished runs keep their status.
func (e *Executor) run(ctx context.Context, job folderJob) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("folder processing panicked",
				"dataset", job.dataset.Name, "folder", job.folderTS, "panic", r)
			msg := fmt.Sprintf("panic: %v", r)
			for _, run := range job.runs {
				current, err := e.svc.runs.Get(context.Background(), run.ID)
				if err != nil || current.Terminal() {
					continue
				}
				_ = e.svc.runs.SetStatus(context.Background(), run.ID, domain.RunStatusFailed, &msg)
			}
		}
	}()
	e.svc.processFolder(ctx, job)
}
