package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/models"
)

type fakeQueue struct {
	interfaces.QueueManager
	length int
	err    error
}

func (q *fakeQueue) GetQueueLength(ctx context.Context) (int, error) {
	return q.length, q.err
}

type fakeJobStorage struct {
	interfaces.JobStorage
	counts map[string]int
	err    error
}

func (s *fakeJobStorage) CountJobs(ctx context.Context, opts *interfaces.JobListOptions) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.counts[opts.Status], nil
}

type fakeBreaker struct{ state string }

func (b *fakeBreaker) BreakerState() string { return b.state }

func TestSnapshotIdle(t *testing.T) {
	svc := NewService(
		&fakeQueue{length: 0},
		&fakeJobStorage{counts: map[string]int{
			string(models.JobStatusCompleted): 12,
			string(models.JobStatusFailed):    3,
		}},
		&fakeBreaker{state: "closed"},
		arbor.NewLogger(),
	)

	snap := svc.Snapshot(context.Background())
	require.NotNil(t, snap)

	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, 0, snap.QueueDepth)
	assert.Equal(t, 12, snap.Jobs["completed"])
	assert.Equal(t, 3, snap.Jobs["failed"])
	assert.Equal(t, 0, snap.Jobs["running"])
	assert.Equal(t, "closed", snap.AuthorityBreaker)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, int64(0))
	assert.WithinDuration(t, time.Now(), snap.Timestamp, 5*time.Second)
}

func TestSnapshotVerifyingWhileJobsRun(t *testing.T) {
	svc := NewService(
		&fakeQueue{length: 4},
		&fakeJobStorage{counts: map[string]int{
			string(models.JobStatusQueued):  4,
			string(models.JobStatusRunning): 2,
		}},
		&fakeBreaker{state: "half-open"},
		arbor.NewLogger(),
	)

	snap := svc.Snapshot(context.Background())

	assert.Equal(t, StateVerifying, snap.State)
	assert.Equal(t, 4, snap.QueueDepth)
	assert.Equal(t, 2, snap.Jobs["running"])
	assert.Equal(t, "half-open", snap.AuthorityBreaker)
}

func TestSnapshotDegradesOnStorageErrors(t *testing.T) {
	svc := NewService(
		&fakeQueue{err: errors.New("queue unavailable")},
		&fakeJobStorage{err: errors.New("storage unavailable")},
		&fakeBreaker{state: "open"},
		arbor.NewLogger(),
	)

	snap := svc.Snapshot(context.Background())
	require.NotNil(t, snap)

	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, 0, snap.QueueDepth)
	assert.Equal(t, 0, snap.Jobs["queued"])
	assert.Equal(t, "open", snap.AuthorityBreaker)
}
