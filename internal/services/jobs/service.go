// -----------------------------------------------------------------------
// Job Service - Lifecycle, progress, and retention for verification jobs
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/shepard/internal/common"
	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/models"
)

// inputKeyPrefix is where job input text lives in the KV store. Documents
// can reach 10MB, so they stay out of job records and queue messages.
const inputKeyPrefix = "job:input:"

// Service owns the job lifecycle. A single worker writes each job record;
// stateless front-ends poll it. Every state change is persisted first and
// then mirrored onto the event bus for WebSocket subscribers.
type Service struct {
	storage  interfaces.JobStorage
	kv       interfaces.KeyValueStorage
	queueMgr interfaces.QueueManager
	events   interfaces.EventService
	logger   arbor.ILogger
	ttl      time.Duration
}

// NewService creates a new job service
func NewService(
	storage interfaces.JobStorage,
	kv interfaces.KeyValueStorage,
	queueMgr interfaces.QueueManager,
	events interfaces.EventService,
	ttl time.Duration,
	logger arbor.ILogger,
) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		storage:  storage,
		kv:       kv,
		queueMgr: queueMgr,
		events:   events,
		logger:   logger,
		ttl:      ttl,
	}
}

// Create persists a new queued job and stores its input text. The text is
// written before the job record so a poll never finds a job without input.
func (s *Service) Create(ctx context.Context, kind models.InputKind, text string) (*models.Job, error) {
	job := models.NewJob(common.NewJobID(), kind, len(text), s.ttl)

	if err := s.kv.Set(ctx, inputKey(job.ID), text, "job input text"); err != nil {
		return nil, fmt.Errorf("failed to store job input: %w", err)
	}
	if err := s.storage.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job record: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("input_kind", string(kind)).
		Int("text_bytes", job.TextBytes).
		Msg("Job created")

	s.publish(ctx, interfaces.EventJobCreated, job)
	return job, nil
}

// Enqueue pushes a queued job onto the work queue
func (s *Service) Enqueue(ctx context.Context, job *models.Job) error {
	msg, err := models.NewQueueMessage(job.ID, models.JobTypeCitationVerification, nil)
	if err != nil {
		return err
	}
	if err := s.queueMgr.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}

	s.logger.Debug().Str("job_id", job.ID).Msg("Job enqueued")
	return nil
}

// Requeue returns a promoted sync job to the queue. The record is reloaded
// first: the sync attempt may have persisted progress the caller's snapshot
// predates, and that progress is retained so polls stay monotonic.
func (s *Service) Requeue(ctx context.Context, job *models.Job) error {
	fresh, err := s.storage.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}
	if fresh.IsTerminal() {
		return fmt.Errorf("cannot requeue job %s: already %s", fresh.ID, fresh.Status)
	}
	fresh.Requeue()
	if err := s.storage.SaveJob(ctx, fresh); err != nil {
		return fmt.Errorf("failed to requeue job %s: %w", fresh.ID, err)
	}
	if err := s.Enqueue(ctx, fresh); err != nil {
		return err
	}

	s.logger.Info().Str("job_id", fresh.ID).Msg("Sync job promoted to async")
	s.publish(ctx, interfaces.EventJobPromoted, fresh)
	return nil
}

// Get returns a job by id. Records past their TTL read as missing even if
// the janitor has not swept them yet.
func (s *Service) Get(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.storage.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.IsExpired(time.Now().UTC()) {
		return nil, interfaces.ErrJobNotFound
	}
	return job, nil
}

// InputText returns the stored document text for a job
func (s *Service) InputText(ctx context.Context, id string) (string, error) {
	text, err := s.kv.Get(ctx, inputKey(id))
	if err != nil {
		return "", fmt.Errorf("failed to load input for job %s: %w", id, err)
	}
	return text, nil
}

// List returns jobs plus the total count for the filter
func (s *Service) List(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, int, error) {
	jobs, err := s.storage.ListJobs(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.storage.CountJobs(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// MarkRunning transitions a queued job to running
func (s *Service) MarkRunning(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.storage.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	job.MarkRunning()
	if err := s.storage.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to mark job running: %w", err)
	}

	s.publish(ctx, interfaces.EventJobStarted, job)
	return job, nil
}

// SetProgress raises a running job's progress. Lower percentages update the
// step label and heartbeat but never move the bar backward.
func (s *Service) SetProgress(ctx context.Context, id string, pct int, step string) error {
	job, err := s.storage.GetJob(ctx, id)
	if err != nil {
		return err
	}
	job.SetProgress(pct, step)
	if err := s.storage.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	s.publish(ctx, interfaces.EventJobProgress, job)
	return nil
}

// Complete stores the result and transitions the job to completed
func (s *Service) Complete(ctx context.Context, id string, result *models.Result) error {
	job, err := s.storage.GetJob(ctx, id)
	if err != nil {
		return err
	}
	job.MarkCompleted(result)
	if err := s.storage.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	// Input text is dead weight once a result exists
	if err := s.kv.Delete(ctx, inputKey(id)); err != nil && err != interfaces.ErrKeyNotFound {
		s.logger.Warn().Err(err).Str("job_id", id).Msg("Failed to delete job input text")
	}

	s.logger.Info().
		Str("job_id", id).
		Int("citations", resultCitations(result)).
		Msg("Job completed")

	s.publish(ctx, interfaces.EventJobCompleted, job)
	return nil
}

// Fail transitions the job to failed, optionally keeping a partial result
func (s *Service) Fail(ctx context.Context, id string, reason string, partial *models.Result) error {
	job, err := s.storage.GetJob(ctx, id)
	if err != nil {
		return err
	}
	job.MarkFailed(reason, partial)
	if err := s.storage.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}

	if err := s.kv.Delete(ctx, inputKey(id)); err != nil && err != interfaces.ErrKeyNotFound {
		s.logger.Warn().Err(err).Str("job_id", id).Msg("Failed to delete job input text")
	}

	s.logger.Warn().
		Str("job_id", id).
		Str("reason", reason).
		Bool("partial_result", partial != nil).
		Msg("Job failed")

	s.publish(ctx, interfaces.EventJobFailed, job)
	return nil
}

// Cancel flags a job for cancellation. The pipeline checks the flag at
// stage boundaries and between verification batches; cancellation is not
// preemptive. Terminal jobs cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id string) error {
	job, err := s.storage.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return fmt.Errorf("job %s is already %s", id, job.Status)
	}
	if job.CancelRequested {
		return nil
	}
	job.CancelRequested = true
	if err := s.storage.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to flag job for cancellation: %w", err)
	}

	s.logger.Info().Str("job_id", id).Msg("Job cancellation requested")
	return nil
}

// CancelRequested reports whether a cancel flag is set
func (s *Service) CancelRequested(ctx context.Context, id string) (bool, error) {
	job, err := s.storage.GetJob(ctx, id)
	if err != nil {
		return false, err
	}
	return job.CancelRequested, nil
}

// SweepExpired deletes jobs past their TTL, returning the count removed
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.storage.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired jobs: %w", err)
	}

	removed := 0
	for _, job := range expired {
		if err := s.storage.DeleteJob(ctx, job.ID); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to delete expired job")
			continue
		}
		if err := s.kv.Delete(ctx, inputKey(job.ID)); err != nil && err != interfaces.ErrKeyNotFound {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to delete expired job input")
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Swept expired jobs")
	}
	return removed, nil
}

// FailStale fails running jobs whose progress heartbeat is older than the
// staleness window. These are jobs whose worker died mid-run; the queue
// redelivery cap means nothing will resume them.
func (s *Service) FailStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	stale, err := s.storage.ListStale(ctx, time.Now().UTC(), staleAfter)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale jobs: %w", err)
	}

	failed := 0
	for _, job := range stale {
		job.MarkFailed(models.ErrReasonTimeout, nil)
		if err := s.storage.SaveJob(ctx, job); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to mark stale job as failed")
			continue
		}
		s.publish(ctx, interfaces.EventJobFailed, job)
		failed++
	}

	if failed > 0 {
		s.logger.Warn().Int("failed", failed).Msg("Marked stale jobs as failed")
	}
	return failed, nil
}

// publish mirrors a job state change onto the event bus
func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, job *models.Job) {
	if s.events == nil {
		return
	}
	payload := map[string]interface{}{
		"job_id":       job.ID,
		"status":       string(job.Status),
		"progress_pct": job.ProgressPct,
		"current_step": job.CurrentStep,
	}
	if job.Error != "" {
		payload["error"] = job.Error
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish job event")
	}
}

func inputKey(jobID string) string {
	return inputKeyPrefix + jobID
}

func resultCitations(result *models.Result) int {
	if result == nil {
		return 0
	}
	return result.Stats.TotalCitations
}
