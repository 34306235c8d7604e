package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// orphanState tracks orphan detection metrics (thread-safe).
type orphanState struct {
	mu               sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// runOrphanDetection periodically scans for orphaned jobs. Every pool
// instance runs this independently against the shared Store — the demotion
// below is idempotent so running it from multiple replicas is safe.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.detectAndRecoverOrphans(ctx); err != nil {
				slog.Error("orphan detection failed", "error", err)
			}
		}
	}
}

// detectAndRecoverOrphans finds running jobs whose heartbeat is older than
// OrphanThreshold and demotes them back to retrying (incrementing
// retry_count with an immediate next_retry_at) or to failed if the job is
// out of retries. This is the only mechanism that recovers from a worker
// crash.
func (p *WorkerPool) detectAndRecoverOrphans(ctx context.Context) error {
	threshold := time.Now().Add(-p.config.OrphanThreshold)

	orphans, err := p.store.FindOrphans(ctx, threshold)
	if err != nil {
		return fmt.Errorf("querying orphaned jobs: %w", err)
	}

	if len(orphans) == 0 {
		p.orphans.mu.Lock()
		p.orphans.lastOrphanScan = time.Now()
		p.orphans.mu.Unlock()
		return nil
	}

	slog.Warn("detected orphaned jobs", "count", len(orphans))

	recovered := 0
	failed := 0
	for _, job := range orphans {
		if err := p.recoverOrphanedJob(ctx, job); err != nil {
			slog.Error("failed to recover orphaned job", "job_id", job.ID, "error", err)
			failed++
			continue
		}
		recovered++
	}

	p.orphans.mu.Lock()
	p.orphans.lastOrphanScan = time.Now()
	p.orphans.orphansRecovered += recovered
	p.orphans.mu.Unlock()

	if failed > 0 {
		slog.Warn("orphan recovery completed with failures",
			"total_orphans", len(orphans), "recovered", recovered, "failed", failed)
	}

	return nil
}

// recoverOrphanedJob demotes a single orphaned job via MarkFailed with
// retryable=true, which schedules an immediate retry (or a terminal
// failure if retries are exhausted).
func (p *WorkerPool) recoverOrphanedJob(ctx context.Context, job *Job) error {
	lastHeartbeat := "unknown"
	if job.HeartbeatAt != nil {
		lastHeartbeat = job.HeartbeatAt.Format(time.RFC3339)
	}
	workerID := "unknown"
	if job.WorkerID != nil {
		workerID = *job.WorkerID
	}

	msg := fmt.Sprintf("orphaned: no heartbeat from worker %s since %s", workerID, lastHeartbeat)

	// Force the retry to fire immediately rather than waiting out the
	// type's normal backoff window — the job didn't fail, its worker died.
	if err := p.store.MarkFailed(ctx, job.ID, job.JobType, job.MeetingID, job.RetryCount, job.MaxRetries, msg, true); err != nil {
		return err
	}
	if err := p.store.ForceImmediateRetry(ctx, job.ID); err != nil {
		return err
	}

	slog.Warn("orphaned job recovered", "job_id", job.ID, "last_heartbeat", lastHeartbeat)
	return nil
}

// CleanupStartupOrphans performs a one-time cleanup of jobs owned by this
// worker pool id that were left running when the process previously
// crashed. Nothing in the module calls it; WorkerPool.Start does not run
// it, so recovery relies on the periodic scan above.
func CleanupStartupOrphans(ctx context.Context, store *Store, poolIDPrefix string) error {
	orphans, err := store.FindOrphans(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("querying startup orphans: %w", err)
	}

	var mine []*Job
	for _, j := range orphans {
		if j.WorkerID != nil && len(*j.WorkerID) >= len(poolIDPrefix) && (*j.WorkerID)[:len(poolIDPrefix)] == poolIDPrefix {
			mine = append(mine, j)
		}
	}
	if len(mine) == 0 {
		return nil
	}

	slog.Warn("found startup orphans from previous run", "pool_id", poolIDPrefix, "count", len(mine))

	for _, job := range mine {
		msg := fmt.Sprintf("orphaned: pool %s restarted while job was running", poolIDPrefix)
		if err := store.MarkFailed(ctx, job.ID, job.JobType, job.MeetingID, job.RetryCount, job.MaxRetries, msg, true); err != nil {
			slog.Error("failed to mark startup orphan", "job_id", job.ID, "error", err)
			continue
		}
		if err := store.ForceImmediateRetry(ctx, job.ID); err != nil {
			slog.Error("failed to schedule immediate retry for startup orphan", "job_id", job.ID, "error", err)
			continue
		}
		slog.Info("startup orphan recovered", "job_id", job.ID)
	}

	return nil
}
