// Package jobs defines asynchronous claim processing jobs and the queue and
// store interfaces the HTTP service uses to run them.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/claims"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed. Failed jobs are not retried.
	JobStatusFailed JobStatus = "failed"
)

var (
	// ErrJobNotFound is returned by a JobStore for an unknown id.
	ErrJobNotFound = errors.New("job not found")
	// ErrQueueClosed is returned when publishing to or starting a stopped queue.
	ErrQueueClosed = errors.New("queue is closed")
)

// ProcessClaimJob is one claim document waiting for, or done with, processing.
type ProcessClaimJob struct {
	// JobID is the unique identifier for this job. It is also used as the claim run id.
	JobID string `json:"job_id"`

	DocumentName string `json:"document_name"`
	MIMEType     string `json:"mime_type"`

	// SourceURI is set when the document came from Cloud Storage.
	SourceURI string `json:"source_uri,omitempty"`

	// Data is the document payload when it was uploaded directly.
	Data []byte `json:"-"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// Result is set once the job completed.
	Result *claims.Result `json:"result,omitempty"`
}

// Publisher enqueues jobs.
type Publisher interface {
	// PublishProcessClaim enqueues a claim processing job.
	PublishProcessClaim(ctx context.Context, job *ProcessClaimJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer runs queued jobs.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. It may set job.Result; a returned error marks the job failed.
type JobHandler func(ctx context.Context, job *ProcessClaimJob) error

// JobStore records job state so clients can poll for results.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ProcessClaimJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ProcessClaimJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ProcessClaimJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
