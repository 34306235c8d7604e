package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed job queue. Unlike pkg/store's repositories
// it owns claim and retry logic directly: claiming a job, recording
// progress, and deciding retry-vs-fail on completion.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore builds a Store over the shared connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const jobColumns = `id, job_type, meeting_id, input_data, output_data, status, priority,
	created_at, started_at, completed_at, heartbeat_at, worker_id, retry_count, max_retries,
	next_retry_at, depends_on_job_id, error_message`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	var jobType, status string
	if err := row.Scan(
		&j.ID, &jobType, &j.MeetingID, &j.InputData, &j.OutputData, &status, &j.Priority,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.HeartbeatAt, &j.WorkerID, &j.RetryCount,
		&j.MaxRetries, &j.NextRetryAt, &j.DependsOnJobID, &j.ErrorMessage,
	); err != nil {
		return nil, err
	}
	j.JobType = JobType(jobType)
	j.Status = JobStatus(status)
	return &j, nil
}

// ChainInput is the fetch job's initial payload plus the meeting it belongs
// to; the summarise and distribute jobs start with an empty payload and are
// fed by the previous stage's output_data once they run.
type ChainInput struct {
	MeetingID int64
	Priority  int
	FetchData json.RawMessage
}

// EnqueueChain creates the three-job fetch -> summarise -> distribute chain
// for a meeting. It refuses to create a second chain while any non-terminal
// job already exists for the meeting.
func (s *Store) EnqueueChain(ctx context.Context, in ChainInput) (fetchID, summaryID, distributeID int64, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("begin enqueue tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existing int
	err = tx.QueryRow(ctx, `
		SELECT count(*) FROM jobs
		WHERE meeting_id = $1 AND status NOT IN ('completed', 'failed')`, in.MeetingID).Scan(&existing)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("checking existing chain: %w", err)
	}
	if existing > 0 {
		return 0, 0, 0, ErrChainExists
	}

	fetchData := in.FetchData
	if fetchData == nil {
		fetchData = json.RawMessage(`{}`)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO jobs (job_type, meeting_id, input_data, priority, max_retries)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		JobTypeFetchTranscript, in.MeetingID, fetchData, in.Priority, DefaultMaxRetries(JobTypeFetchTranscript),
	).Scan(&fetchID)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("inserting fetch job: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO jobs (job_type, meeting_id, input_data, priority, max_retries, depends_on_job_id)
		VALUES ($1, $2, '{}'::jsonb, $3, $4, $5) RETURNING id`,
		JobTypeGenerateSummary, in.MeetingID, in.Priority, DefaultMaxRetries(JobTypeGenerateSummary), fetchID,
	).Scan(&summaryID)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("inserting summarise job: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO jobs (job_type, meeting_id, input_data, priority, max_retries, depends_on_job_id)
		VALUES ($1, $2, '{}'::jsonb, $3, $4, $5) RETURNING id`,
		JobTypeDistribute, in.MeetingID, in.Priority, DefaultMaxRetries(JobTypeDistribute), summaryID,
	).Scan(&distributeID)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("inserting distribute job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, 0, fmt.Errorf("commit enqueue tx: %w", err)
	}
	return fetchID, summaryID, distributeID, nil
}

// EnqueueChatCommand inserts a single, dependency-free job for a chat
// command — these do not participate in the meeting chain.
func (s *Store) EnqueueChatCommand(ctx context.Context, input json.RawMessage, priority int) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO jobs (job_type, input_data, priority, max_retries)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		JobTypeProcessChatCmd, input, priority, DefaultMaxRetries(JobTypeProcessChatCmd),
	).Scan(&id)
	return id, err
}

// ClaimNext atomically claims the next runnable job for workerID, ordered
// by (priority DESC, created_at ASC), using SELECT ... FOR UPDATE SKIP
// LOCKED so concurrent workers never claim the same row. Returns
// ErrNoJobsAvailable if nothing qualifies.
func (s *Store) ClaimNext(ctx context.Context, workerID string) (*Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT j.`+jobColumns+`
		FROM jobs j
		LEFT JOIN jobs dep ON dep.id = j.depends_on_job_id
		WHERE j.status IN ('pending', 'retrying')
		AND (j.next_retry_at IS NULL OR j.next_retry_at <= now())
		AND (j.depends_on_job_id IS NULL OR dep.status = 'completed')
		ORDER BY j.priority DESC, j.created_at ASC
		LIMIT 1
		FOR UPDATE OF j SKIP LOCKED`)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("claiming job: %w", err)
	}

	now := time.Now()
	_, err = tx.Exec(ctx, `
		UPDATE jobs SET status = 'running', worker_id = $1, started_at = $2, heartbeat_at = $2
		WHERE id = $3`, workerID, now, job.ID)
	if err != nil {
		return nil, fmt.Errorf("marking job claimed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}

	job.Status = JobStatusRunning
	job.WorkerID = &workerID
	job.StartedAt = &now
	job.HeartbeatAt = &now
	return job, nil
}

// Heartbeat updates heartbeat_at for a running job. It never touches
// status — orphan recovery relies on that separation to distinguish a
// slow-but-alive worker from a crashed one.
func (s *Store) Heartbeat(ctx context.Context, jobID int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE jobs SET heartbeat_at = now() WHERE id = $1 AND status = 'running'`, jobID)
	return err
}

// MarkCompleted transitions a job to completed and stores its output.
func (s *Store) MarkCompleted(ctx context.Context, jobID int64, output json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = 'completed', completed_at = now(), output_data = $2
		WHERE id = $1`, jobID, output)
	return err
}

// MarkFailed records a job failure. If retryable is true and the job has
// not exhausted max_retries, it is rescheduled as retrying with an
// incremented retry_count and a next_retry_at computed by the type's
// backoff schedule. Otherwise it is marked permanently failed, and if the
// job belongs to a meeting chain (meetingID != nil) the meeting itself is
// also transitioned to status=failed with errMsg recorded against it —
// a permanently failed job always stalls its meeting's chain.
func (s *Store) MarkFailed(ctx context.Context, jobID int64, jobType JobType, meetingID *int64, retryCount, maxRetries int, errMsg string, retryable bool) error {
	if retryable && retryCount < maxRetries {
		nextRetryCount := retryCount + 1
		nextAt := time.Now().Add(nextRetryDelay(jobType, nextRetryCount))
		_, err := s.pool.Exec(ctx, `
			UPDATE jobs SET status = 'retrying', retry_count = $2, next_retry_at = $3,
				error_message = $4, worker_id = NULL
			WHERE id = $1`, jobID, nextRetryCount, nextAt, errMsg)
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mark-failed tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'failed', completed_at = now(), error_message = $2
		WHERE id = $1`, jobID, errMsg); err != nil {
		return err
	}

	if meetingID != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE meetings SET status = 'failed', error_message = $2, updated_at = now()
			WHERE id = $1`, *meetingID, errMsg); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ForceImmediateRetry clears next_retry_at on a retrying job so the next
// claim sweep picks it up right away, used by orphan recovery where the
// job's own backoff schedule should not apply — the worker crashed, the
// job itself did not fail.
func (s *Store) ForceImmediateRetry(ctx context.Context, jobID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs SET next_retry_at = now() WHERE id = $1 AND status = 'retrying'`, jobID)
	return err
}

// CountRunning returns the number of jobs currently running, used for the
// global concurrency cap shared across worker pool replicas.
func (s *Store) CountRunning(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM jobs WHERE status = 'running'`).Scan(&n)
	return n, err
}

// QueueDepth returns the number of claimable jobs (pending or retrying and
// due).
func (s *Store) QueueDepth(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM jobs
		WHERE status IN ('pending', 'retrying') AND (next_retry_at IS NULL OR next_retry_at <= now())`).Scan(&n)
	return n, err
}

// Stats summarises the queue by status.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch JobStatus(status) {
		case JobStatusPending:
			st.Pending = count
		case JobStatusRunning:
			st.Running = count
		case JobStatusRetrying:
			st.Retrying = count
		case JobStatusCompleted:
			st.Completed = count
		case JobStatusFailed:
			st.Failed = count
		}
	}
	return &st, rows.Err()
}

// CancelMeetingJobs marks every pending or retrying job for a meeting as
// failed with error_message "cancelled", used when a meeting is excluded
// or opted out after its chain was already queued. Jobs are never deleted
// here — a failed row with a recorded reason keeps the queue's audit trail
// intact for later inspection.
func (s *Store) CancelMeetingJobs(ctx context.Context, meetingID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = 'failed', completed_at = now(), error_message = 'cancelled'
		WHERE meeting_id = $1 AND status IN ('pending', 'retrying')`, meetingID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeOld deletes terminal (completed or failed) jobs older than before,
// used by the retention sweep.
func (s *Store) PurgeOld(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM jobs WHERE status IN ('completed', 'failed') AND completed_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// FindOrphans returns running jobs whose heartbeat is older than threshold.
func (s *Store) FindOrphans(ctx context.Context, threshold time.Time) ([]*Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = 'running' AND heartbeat_at IS NOT NULL AND heartbeat_at < $1`, threshold)
	if err != nil {
		return nil, fmt.Errorf("querying orphans: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// GetByID fetches a single job by id, used by processors that need to
// inspect a dependency's output_data.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", id, pgx.ErrNoRows)
	}
	return job, err
}
