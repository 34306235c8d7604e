package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// WorkerPool manages a pool of queue workers sharing one Store and one
// ProcessorRegistry. Any number of pool instances (e.g. one per replica)
// may run against the same database; claiming is serialised by
// SELECT ... FOR UPDATE SKIP LOCKED in Store.ClaimNext.
type WorkerPool struct {
	poolID   string
	store    *Store
	config   *PoolConfig
	registry *ProcessorRegistry
	workers  []*Worker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Job cancel registry: job_id -> cancel function, used for manual
	// cancellation (e.g. when a meeting is excluded mid-chain).
	activeJobs map[int64]context.CancelFunc
	mu         sync.RWMutex
	started    bool

	orphans orphanState
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(poolID string, store *Store, cfg *PoolConfig, registry *ProcessorRegistry) *WorkerPool {
	return &WorkerPool{
		poolID:     poolID,
		store:      store,
		config:     cfg,
		registry:   registry,
		workers:    make([]*Worker, 0, cfg.WorkerCount),
		stopCh:     make(chan struct{}),
		activeJobs: make(map[int64]context.CancelFunc),
	}
}

// Start spawns worker goroutines and the orphan detection background task.
// Safe to call once; subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate Start call", "pool_id", p.poolID)
		return nil
	}
	p.started = true

	slog.Info("starting worker pool", "pool_id", p.poolID, "worker_count", p.config.WorkerCount)

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", p.poolID, i)
		worker := NewWorker(workerID, p.store, p.config, p.registry, p)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runOrphanDetection(ctx)
	}()

	slog.Info("worker pool started")
	return nil
}

// Stop signals all workers to stop and waits for them to finish. Workers
// finish their current job before exiting; the wait is bounded by
// PoolConfig.GracefulShutdownTimeout (unbounded when it is zero), and jobs
// still running when it expires are left for orphan recovery.
func (p *WorkerPool) Stop() {
	slog.Info("stopping worker pool gracefully")

	active := p.getActiveJobIDs()
	if len(active) > 0 {
		slog.Info("waiting for active jobs to complete", "count", len(active), "job_ids", active)
	}

	done := make(chan struct{})
	go func() {
		for _, worker := range p.workers {
			worker.Stop()
		}
		close(done)
	}()
	if p.config != nil && p.config.GracefulShutdownTimeout > 0 {
		select {
		case <-done:
		case <-time.After(p.config.GracefulShutdownTimeout):
			slog.Warn("graceful shutdown timed out; in-flight jobs left for orphan recovery",
				"timeout", p.config.GracefulShutdownTimeout)
		}
	} else {
		<-done
	}

	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	slog.Info("worker pool stopped gracefully")
}

// RegisterJob stores a cancel function for manual cancellation.
func (p *WorkerPool) RegisterJob(jobID int64, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeJobs[jobID] = cancel
}

// UnregisterJob removes the cancel function when processing ends.
func (p *WorkerPool) UnregisterJob(jobID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeJobs, jobID)
}

// CancelJob triggers context cancellation for a job on this pool instance.
// Returns true if the job was found and cancelled here.
func (p *WorkerPool) CancelJob(jobID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeJobs[jobID]; ok {
		cancel()
		return true
	}
	return false
}

// Health returns the current health status of the pool.
func (p *WorkerPool) Health(ctx context.Context) *PoolHealth {
	queueDepth, errQ := p.store.QueueDepth(ctx)
	if errQ != nil {
		slog.Error("failed to query queue depth for health check", "pool_id", p.poolID, "error", errQ)
	}

	runningJobs, errR := p.store.CountRunning(ctx)
	if errR != nil {
		slog.Error("failed to query running jobs for health check", "pool_id", p.poolID, "error", errR)
	}

	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == WorkerStatusWorking {
			activeWorkers++
		}
	}

	dbHealthy := errQ == nil && errR == nil
	isHealthy := len(p.workers) > 0 && runningJobs <= p.config.MaxConcurrentJobs && dbHealthy

	p.orphans.mu.Lock()
	lastOrphanScan := p.orphans.lastOrphanScan
	orphansRecovered := p.orphans.orphansRecovered
	p.orphans.mu.Unlock()

	var dbError string
	if !dbHealthy {
		switch {
		case errQ != nil:
			dbError = fmt.Sprintf("queue depth query failed: %v", errQ)
		case errR != nil:
			dbError = fmt.Sprintf("running jobs query failed: %v", errR)
		}
	}

	return &PoolHealth{
		IsHealthy:        isHealthy,
		DBReachable:      dbHealthy,
		DBError:          dbError,
		PoolID:           p.poolID,
		ActiveWorkers:    activeWorkers,
		TotalWorkers:     len(p.workers),
		RunningJobs:      runningJobs,
		MaxConcurrent:    p.config.MaxConcurrentJobs,
		QueueDepth:       queueDepth,
		WorkerStats:      workerStats,
		LastOrphanScan:   lastOrphanScan,
		OrphansRecovered: orphansRecovered,
	}
}

// getActiveJobIDs returns IDs of currently processing jobs (for logging).
func (p *WorkerPool) getActiveJobIDs() []int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]int64, 0, len(p.activeJobs))
	for id := range p.activeJobs {
		ids = append(ids, id)
	}
	return ids
}
