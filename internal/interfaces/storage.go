// -----------------------------------------------------------------------
// Last Modified: Tuesday, 27th January 2026 9:30:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/shepard/internal/models"
)

// ErrJobNotFound is returned when a job id has no stored record
var ErrJobNotFound = errors.New("job not found")

// JobListOptions for listing jobs
type JobListOptions struct {
	Status   string // Filter by job status (empty = all)
	Limit    int
	Offset   int
	OrderBy  string // created_at, completed_at
	OrderDir string // asc, desc
}

// JobStorage - interface for citation job persistence
type JobStorage interface {
	// CRUD operations
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	DeleteJob(ctx context.Context, id string) error

	// List operations
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	CountJobs(ctx context.Context, opts *JobListOptions) (int, error)

	// Maintenance operations
	ListExpired(ctx context.Context, now time.Time) ([]*models.Job, error)
	ListStale(ctx context.Context, now time.Time, heartbeat time.Duration) ([]*models.Job, error)

	// Bulk operations
	ClearAll(ctx context.Context) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	JobStorage() JobStorage
	KVStorage() KeyValueStorage

	// LoadEnvFile loads KEY=value pairs from a .env file into the KV store
	// so API keys stay out of shepard.toml
	LoadEnvFile(ctx context.Context, filePath string) error

	DB() interface{}
	Close() error
}
