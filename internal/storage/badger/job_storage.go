package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

// SaveJob inserts or replaces a job record keyed by job ID
func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job == nil {
		return fmt.Errorf("job is required")
	}
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID, returns ErrJobNotFound if missing
func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// DeleteJob removes a job record. Deleting a missing job is not an error.
func (s *JobStorage) DeleteJob(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Job{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// ListJobs returns job records matching the filter options, newest first by default
func (s *JobStorage) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	query := s.buildQuery(opts)

	if opts != nil {
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}

	orderBy := "CreatedAt"
	descending := true
	if opts != nil && opts.OrderBy != "" {
		switch opts.OrderBy {
		case "created_at":
			orderBy = "CreatedAt"
		case "completed_at":
			orderBy = "CompletedAt"
		default:
			return nil, fmt.Errorf("unsupported order field %q", opts.OrderBy)
		}
		descending = !strings.EqualFold(opts.OrderDir, "asc")
	}
	query = query.SortBy(orderBy)
	if descending {
		query = query.Reverse()
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// CountJobs returns the number of job records matching the filter options
func (s *JobStorage) CountJobs(ctx context.Context, opts *interfaces.JobListOptions) (int, error) {
	count, err := s.db.Store().Count(&models.Job{}, s.buildQuery(opts))
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return int(count), nil
}

// ListExpired returns job records whose retention deadline has passed
func (s *JobStorage) ListExpired(ctx context.Context, now time.Time) ([]*models.Job, error) {
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("ExpiresAt").Lt(now)); err != nil {
		return nil, fmt.Errorf("failed to list expired jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// ListStale returns running jobs whose last progress heartbeat is older than
// the given timeout. These are jobs whose worker likely died mid-run.
func (s *JobStorage) ListStale(ctx context.Context, now time.Time, heartbeat time.Duration) ([]*models.Job, error) {
	threshold := now.Add(-heartbeat)
	var jobs []models.Job
	err := s.db.Store().Find(&jobs,
		badgerhold.Where("Status").Eq(models.JobStatusRunning).Index("Status").
			And("LastProgressAt").Lt(threshold))
	if err != nil {
		return nil, fmt.Errorf("failed to list stale jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// ClearAll removes every job record from storage
func (s *JobStorage) ClearAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.Job{}, badgerhold.Where("ID").Ne("")); err != nil {
		return fmt.Errorf("failed to clear jobs: %w", err)
	}
	s.logger.Info().Msg("Cleared all job records")
	return nil
}

// buildQuery translates list options into a badgerhold query
func (s *JobStorage) buildQuery(opts *interfaces.JobListOptions) *badgerhold.Query {
	query := badgerhold.Where("ID").Ne("")
	if opts != nil && opts.Status != "" {
		query = query.And("Status").Eq(models.JobStatus(opts.Status))
	}
	return query
}
