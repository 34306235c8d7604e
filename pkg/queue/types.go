// Package queue implements the job queue and worker pool that drive every
// background task in the meeting intelligence core: transcript fetch,
// summary generation, distribution and chat command handling. Jobs are
// chained per meeting (fetch_transcript -> generate_summary -> distribute)
// through depends_on_job_id and claimed with SELECT ... FOR UPDATE SKIP
// LOCKED so any number of worker pool replicas can share one queue safely.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// JobType identifies which processor handles a job.
type JobType string

// Job types known to the core. Processors are looked up by this value, not
// by a type hierarchy.
const (
	JobTypeFetchTranscript JobType = "fetch_transcript"
	JobTypeGenerateSummary JobType = "generate_summary"
	JobTypeDistribute      JobType = "distribute"
	JobTypeProcessChatCmd  JobType = "process_chat_command"
)

// JobStatus is the lifecycle state of a Job row.
type JobStatus string

// Job status values.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusRetrying  JobStatus = "retrying"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is the queue row. It is owned entirely by pkg/queue — its claim and
// retry logic is inseparable from its storage, unlike the entities in
// pkg/store which have no such coupling.
type Job struct {
	ID             int64
	JobType        JobType
	MeetingID      *int64
	InputData      json.RawMessage
	OutputData     json.RawMessage
	Status         JobStatus
	Priority       int
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	HeartbeatAt    *time.Time
	WorkerID       *string
	RetryCount     int
	MaxRetries     int
	NextRetryAt    *time.Time
	DependsOnJobID *int64
	ErrorMessage   *string
}

// Processor processes exactly one job type. Implementations are registered
// into a ProcessorRegistry keyed by JobType — a registry lookup, not a
// subclass tree, decides which code runs a given job.
type Processor interface {
	Process(ctx context.Context, job *Job) (json.RawMessage, error)
}

// ProcessorRegistry maps a job type to the Processor that handles it.
type ProcessorRegistry struct {
	processors map[JobType]Processor
}

// NewProcessorRegistry builds an empty registry.
func NewProcessorRegistry() *ProcessorRegistry {
	return &ProcessorRegistry{processors: make(map[JobType]Processor)}
}

// Register associates a processor with a job type, overwriting any
// previous registration.
func (r *ProcessorRegistry) Register(jobType JobType, p Processor) {
	r.processors[jobType] = p
}

// Get returns the processor for a job type, or false if none is registered.
func (r *ProcessorRegistry) Get(jobType JobType) (Processor, bool) {
	p, ok := r.processors[jobType]
	return p, ok
}

// ListRegistered returns the job types with a registered processor.
func (r *ProcessorRegistry) ListRegistered() []JobType {
	out := make([]JobType, 0, len(r.processors))
	for t := range r.processors {
		out = append(out, t)
	}
	return out
}

// Sentinel errors returned by claim and capacity checks.
var (
	ErrNoJobsAvailable = errors.New("queue: no runnable jobs available")
	ErrAtCapacity      = errors.New("queue: worker pool at capacity")
	ErrChainExists     = errors.New("queue: a non-terminal job chain already exists for this meeting")
)

// WorkerHealth is a point-in-time snapshot of one worker's state.
type WorkerHealth struct {
	ID            string       `json:"id"`
	Status        WorkerStatus `json:"status"`
	CurrentJobID  int64        `json:"current_job_id,omitempty"`
	JobsProcessed int          `json:"jobs_processed"`
	LastActivity  time.Time    `json:"last_activity"`
}

// PoolHealth is a point-in-time snapshot of the whole worker pool.
type PoolHealth struct {
	IsHealthy        bool           `json:"is_healthy"`
	DBReachable      bool           `json:"db_reachable"`
	DBError          string         `json:"db_error,omitempty"`
	PoolID           string         `json:"pool_id"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	RunningJobs      int            `json:"running_jobs"`
	MaxConcurrent    int            `json:"max_concurrent"`
	QueueDepth       int            `json:"queue_depth"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
	LastOrphanScan   time.Time      `json:"last_orphan_scan"`
	OrphansRecovered int            `json:"orphans_recovered"`
}

// Stats summarises queue depth by status, used by operational tooling.
type Stats struct {
	Pending   int
	Running   int
	Retrying  int
	Completed int
	Failed    int
}
