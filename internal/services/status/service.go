package status

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shepard/internal/common"
	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/models"
)

// AppState summarizes what the process is doing right now.
type AppState string

const (
	StateIdle      AppState = "idle"
	StateVerifying AppState = "verifying"
)

// BreakerStater reports the authority circuit state. The authority client
// implements it; tests substitute a literal.
type BreakerStater interface {
	BreakerState() string
}

// Service aggregates runtime health for the status endpoint: uptime, queue
// depth, job counts by status, and the authority breaker state.
type Service struct {
	startedAt time.Time
	queue     interfaces.QueueManager
	jobs      interfaces.JobStorage
	breaker   BreakerStater
	logger    arbor.ILogger
}

// NewService creates a new status service. The uptime clock starts here, so
// construct it once during application wiring.
func NewService(queue interfaces.QueueManager, jobs interfaces.JobStorage, breaker BreakerStater, logger arbor.ILogger) *Service {
	return &Service{
		startedAt: time.Now(),
		queue:     queue,
		jobs:      jobs,
		breaker:   breaker,
		logger:    logger,
	}
}

// Snapshot is one point-in-time view of process health.
type Snapshot struct {
	State            AppState       `json:"state"`
	UptimeSeconds    int64          `json:"uptime_seconds"`
	QueueDepth       int            `json:"queue_depth"`
	Jobs             map[string]int `json:"jobs"`
	AuthorityBreaker string         `json:"authority_breaker"`
	Version          string         `json:"version"`
	Timestamp        time.Time      `json:"timestamp"`
}

// Snapshot gathers the current counts. Individual count failures degrade to
// zero rather than failing the whole snapshot; the endpoint stays useful
// while storage is misbehaving.
func (s *Service) Snapshot(ctx context.Context) *Snapshot {
	depth, err := s.queue.GetQueueLength(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read queue depth")
		depth = 0
	}

	counts := make(map[string]int, 4)
	for _, status := range []models.JobStatus{
		models.JobStatusQueued,
		models.JobStatusRunning,
		models.JobStatusCompleted,
		models.JobStatusFailed,
	} {
		n, err := s.jobs.CountJobs(ctx, &interfaces.JobListOptions{Status: string(status)})
		if err != nil {
			s.logger.Warn().Err(err).Str("status", string(status)).Msg("Failed to count jobs")
			n = 0
		}
		counts[string(status)] = n
	}

	state := StateIdle
	if counts[string(models.JobStatusRunning)] > 0 {
		state = StateVerifying
	}

	return &Snapshot{
		State:            state,
		UptimeSeconds:    int64(time.Since(s.startedAt).Seconds()),
		QueueDepth:       depth,
		Jobs:             counts,
		AuthorityBreaker: s.breaker.BreakerState(),
		Version:          common.GetVersion(),
		Timestamp:        time.Now(),
	}
}
