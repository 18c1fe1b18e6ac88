package worker

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tessella/tessella-backend/internal/data/repos"
	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/jobs/runtime"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
	"github.com/tessella/tessella-backend/internal/platform/envutil"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

// Worker polls for runnable document runs and dispatches them to registered
// handlers. One run executes per worker slot; pool size bounds how many
// documents are in flight at once.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.DocumentRunRepo
	registry *runtime.Registry
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.DocumentRunRepo, registry *runtime.Registry) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "RunWorker"),
		repo:     repo,
		registry: registry,
	}
}

func (w *Worker) Start(ctx context.Context) {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("starting run worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		workerID := i + 1
		go w.runLoop(ctx, workerID)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(envutil.Duration("WORKER_POLL_INTERVAL", time.Second))
	defer ticker.Stop()

	maxAttempts := envutil.Int("WORKER_MAX_ATTEMPTS", 3)
	retryDelay := envutil.Duration("WORKER_RETRY_DELAY", 30*time.Second)
	staleRunning := envutil.Duration("WORKER_STALE_RUNNING", 30*time.Minute)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			run, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, maxAttempts, retryDelay, staleRunning)
			if err != nil {
				w.log.Warn("claim failed", "worker_id", workerID, "error", err)
				continue
			}
			if run == nil {
				continue
			}
			w.dispatch(ctx, workerID, run)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, workerID int, run *types.DocumentRun) {
	rc := runtime.NewContext(ctx, w.db, run, w.repo)
	jobType := rc.PayloadString("job_type")
	h, ok := w.registry.Get(jobType)
	if !ok {
		w.log.Warn("no handler registered",
			"worker_id", workerID,
			"job_type", jobType,
			"run_id", run.ID,
		)
		rc.Fail(types.StateStart, "dispatch", fmt.Errorf("no handler registered for job_type=%s", jobType))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("run handler panic",
				"worker_id", workerID,
				"run_id", run.ID,
				"job_type", jobType,
				"panic", r,
			)
			rc.Fail(types.StateFailed, "panic", fmt.Errorf("panic: %v", r))
		}
	}()

	if runErr := h.Run(rc); runErr != nil {
		// Handlers normally call rc.Fail themselves; this is a safety net.
		rc.Fail(types.StateFailed, "run", runErr)
	}
}
