package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/shepard/internal/models"
)

// JobService owns the job lifecycle: creation, queueing, progress,
// terminal transitions, and retention. All state changes are persisted
// and mirrored onto the event bus.
type JobService interface {
	// Create persists a new queued job and stores its input text
	Create(ctx context.Context, kind models.InputKind, text string) (*models.Job, error)

	// Enqueue pushes a queued job onto the work queue
	Enqueue(ctx context.Context, job *models.Job) error

	// Requeue returns a promoted sync job to the queue, keeping its progress
	Requeue(ctx context.Context, job *models.Job) error

	// Get returns a job by id (ErrJobNotFound if missing or expired)
	Get(ctx context.Context, id string) (*models.Job, error)

	// InputText returns the stored document text for a job
	InputText(ctx context.Context, id string) (string, error)

	// List returns jobs plus the total count for the filter
	List(ctx context.Context, opts *JobListOptions) ([]*models.Job, int, error)

	// MarkRunning transitions a queued job to running
	MarkRunning(ctx context.Context, id string) (*models.Job, error)

	// SetProgress raises a running job's progress (never lowers it)
	SetProgress(ctx context.Context, id string, pct int, step string) error

	// Complete stores the result and transitions the job to completed
	Complete(ctx context.Context, id string, result *models.Result) error

	// Fail transitions the job to failed, optionally keeping a partial result
	Fail(ctx context.Context, id string, reason string, partial *models.Result) error

	// Cancel flags a job for cancellation; the pipeline honors it at
	// the next checkpoint. Terminal jobs return an error.
	Cancel(ctx context.Context, id string) error

	// CancelRequested reports whether a cancel flag is set
	CancelRequested(ctx context.Context, id string) (bool, error)

	// SweepExpired deletes jobs past their TTL, returning the count removed
	SweepExpired(ctx context.Context) (int, error)

	// FailStale fails running jobs whose progress heartbeat is older than
	// the staleness window, returning the count failed
	FailStale(ctx context.Context, staleAfter time.Duration) (int, error)
}
