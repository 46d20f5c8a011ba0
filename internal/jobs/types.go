// Package jobs defines the queue abstraction used to fan out LLM tagging
// batches. Tagging is the only stage allowed to run concurrently; the
// reconciliation pipeline itself stays single-threaded.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeTagBatch represents one tagging-batch classification job.
	JobTypeTagBatch JobType = "tag_batch"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// TagBatchJob sends one batch prompt file to the model and stores the
// JSON results next to it.
type TagBatchJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// BatchIndex is the batch's position in the run's manifest.
	BatchIndex int `json:"batch_index"`

	// BatchFile is the prompt file to send.
	BatchFile string `json:"batch_file"`

	// ResultFile is where the parsed model output is written.
	ResultFile string `json:"result_file"`

	// RunID ties the job back to the pipeline run that generated it.
	RunID string `json:"run_id,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *TagBatchJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *TagBatchJob) GetType() JobType {
	return JobTypeTagBatch
}

// GetStatus implements the Job interface.
func (j *TagBatchJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
// The abstraction keeps the door open for Cloud Tasks or Pub/Sub backends.
type Publisher interface {
	// PublishTagBatch publishes a tagging-batch job.
	PublishTagBatch(ctx context.Context, job *TagBatchJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue, calling handler for
	// each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error marks the job failed and
// eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore stores and retrieves job status, so a tagging run's progress
// can be inspected while it executes.
type JobStore interface {
	SaveJob(ctx context.Context, job *TagBatchJob) error
	GetJob(ctx context.Context, jobID string) (*TagBatchJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*TagBatchJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// RunID filters jobs by pipeline run.
	RunID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
