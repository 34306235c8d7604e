package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/codeready-toolchain/meetingcore/pkg/errs"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// JobRegistry is the subset of WorkerPool a Worker needs for manual
// cancellation registration.
type JobRegistry interface {
	RegisterJob(jobID int64, cancel context.CancelFunc)
	UnregisterJob(jobID int64)
}

// Worker is a single queue worker that polls for and processes jobs.
type Worker struct {
	id       string
	store    *Store
	config   *PoolConfig
	registry *ProcessorRegistry
	pool     JobRegistry
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  int64
	jobsProcessed int
	lastActivity  time.Time
}

// NewWorker creates a new queue worker.
func NewWorker(id string, store *Store, cfg *PoolConfig, registry *ProcessorRegistry, pool JobRegistry) *Worker {
	return &Worker{
		id:           id,
		store:        store,
		config:       cfg,
		registry:     registry,
		pool:         pool,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health snapshot.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        w.status,
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing job", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess checks capacity, claims a job, and processes it to
// completion.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	running, err := w.store.CountRunning(ctx)
	if err != nil {
		return fmt.Errorf("checking running jobs: %w", err)
	}
	if running >= w.config.MaxConcurrentJobs {
		return ErrAtCapacity
	}

	job, err := w.store.ClaimNext(ctx, w.id)
	if err != nil {
		return err
	}

	log := slog.With("job_id", job.ID, "job_type", job.JobType, "worker_id", w.id)
	log.Info("job claimed")

	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, 0)

	jobCtx, cancelJob := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancelJob()

	w.pool.RegisterJob(job.ID, cancelJob)
	defer w.pool.UnregisterJob(job.ID)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(jobCtx)
	defer cancelHeartbeat()
	go w.runHeartbeat(heartbeatCtx, job.ID)

	processor, ok := w.registry.Get(job.JobType)
	if !ok {
		cancelHeartbeat()
		msg := fmt.Sprintf("no processor registered for job type %q", job.JobType)
		if err := w.store.MarkFailed(context.Background(), job.ID, job.JobType, job.MeetingID, job.RetryCount, job.MaxRetries, msg, false); err != nil {
			return fmt.Errorf("marking unregistered job type failed: %w", err)
		}
		log.Error("no processor registered for job type")
		return nil
	}

	output, procErr := processor.Process(jobCtx, job)
	cancelHeartbeat()

	switch {
	case procErr == nil:
		if err := w.store.MarkCompleted(context.Background(), job.ID, output); err != nil {
			return fmt.Errorf("marking job completed: %w", err)
		}
		log.Info("job completed")

	case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
		msg := fmt.Sprintf("job timed out after %v", w.config.JobTimeout)
		if err := w.store.MarkFailed(context.Background(), job.ID, job.JobType, job.MeetingID, job.RetryCount, job.MaxRetries, msg, true); err != nil {
			return fmt.Errorf("marking timed-out job: %w", err)
		}
		log.Warn("job timed out")

	case errors.Is(jobCtx.Err(), context.Canceled):
		if err := w.store.MarkFailed(context.Background(), job.ID, job.JobType, job.MeetingID, job.RetryCount, job.MaxRetries, "cancelled", false); err != nil {
			return fmt.Errorf("marking cancelled job: %w", err)
		}
		log.Info("job cancelled")

	default:
		retryable := errs.IsRetryable(procErr)
		if err := w.store.MarkFailed(context.Background(), job.ID, job.JobType, job.MeetingID, job.RetryCount, job.MaxRetries, procErr.Error(), retryable); err != nil {
			return fmt.Errorf("marking failed job: %w", err)
		}
		log.Error("job failed", "retryable", retryable, "error", procErr)
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	return nil
}

// runHeartbeat periodically updates heartbeat_at for orphan detection.
func (w *Worker) runHeartbeat(ctx context.Context, jobID int64) {
	ticker := time.NewTicker(w.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.Heartbeat(ctx, jobID); err != nil {
				slog.Warn("heartbeat update failed", "job_id", jobID, "error", err)
			}
		}
	}
}

// pollInterval returns the poll duration with jitter, range
// [base-jitter, base+jitter].
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus, jobID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
