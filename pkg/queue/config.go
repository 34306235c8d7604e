package queue

import "time"

// PoolConfig controls worker pool sizing and timing. It is populated from
// the top-level YAML config's `queue:` section (pkg/config), mirroring the
// teacher's config.QueueConfig shape but generalized to jobs instead of
// alert sessions.
type PoolConfig struct {
	// WorkerCount is the number of worker goroutines per replica.
	WorkerCount int

	// MaxConcurrentJobs is the global ceiling on running jobs across every
	// replica sharing this queue, enforced with a COUNT(*) check.
	MaxConcurrentJobs int

	// PollInterval is the base interval a worker waits between claim
	// attempts when the queue was empty or at capacity.
	PollInterval time.Duration

	// PollIntervalJitter randomizes PollInterval to avoid thundering-herd
	// polling across many workers.
	PollIntervalJitter time.Duration

	// JobTimeout bounds how long a single job may run before its context
	// is cancelled.
	JobTimeout time.Duration

	// GracefulShutdownTimeout is how long Stop waits for in-flight jobs.
	GracefulShutdownTimeout time.Duration

	// HeartbeatInterval is how often a running job's sidecar updates
	// heartbeat_at.
	HeartbeatInterval time.Duration

	// OrphanDetectionInterval is how often the pool scans for jobs whose
	// heartbeat has gone stale.
	OrphanDetectionInterval time.Duration

	// OrphanThreshold is the heartbeat age past which a running job is
	// considered orphaned, set to 2x HeartbeatInterval by default.
	OrphanThreshold time.Duration
}

// DefaultPoolConfig returns the built-in defaults: 30s heartbeat, 2x that
// (60s) for the orphan threshold — a job whose heartbeat_at is older than
// twice the heartbeat interval is treated as abandoned by a dead worker.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		WorkerCount:             5,
		MaxConcurrentJobs:       10,
		PollInterval:            2 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		JobTimeout:              15 * time.Minute,
		GracefulShutdownTimeout: 30 * time.Second,
		HeartbeatInterval:       30 * time.Second,
		OrphanDetectionInterval: time.Minute,
		OrphanThreshold:         60 * time.Second,
	}
}
