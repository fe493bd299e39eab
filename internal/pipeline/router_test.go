package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/models"
)

// docParallel carries one case cited in two reporters; the stub authority
// knows both citations.
const docParallel = "Lopez Demetrio v. Sakuma Bros. Farms, 183 Wn.2d 649, 655, 355 P.3d 258 (2015)."

func TestSubmitRejectsEmptyInput(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	for _, text := range []string{"", "   \n\t  "} {
		_, err := h.svc.Submit(ctx, interfaces.SubmitRequest{Text: text})
		assert.ErrorIs(t, err, ErrEmptyInput)
	}

	jobs, _, err := h.jobs.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, jobs, "rejected submissions must not persist jobs")
}

func TestSubmitRejectsOversizedInput(t *testing.T) {
	h := newHarness(t, Options{MaxInputBytes: 100})
	ctx := context.Background()

	_, err := h.svc.Submit(ctx, interfaces.SubmitRequest{Text: strings.Repeat("a", 101)})
	assert.ErrorIs(t, err, ErrInputTooLarge)

	jobs, _, err := h.jobs.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestSubmitRejectsConflictingForceModes(t *testing.T) {
	h := newHarness(t, Options{})

	_, err := h.svc.Submit(context.Background(), interfaces.SubmitRequest{
		Text:       docParallel,
		ForceSync:  true,
		ForceAsync: true,
	})
	assert.ErrorIs(t, err, ErrForceModeConflict)
}

func TestSubmitRunsSmallInputSync(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	resp, err := h.svc.Submit(ctx, interfaces.SubmitRequest{Text: docParallel})
	require.NoError(t, err)

	assert.Equal(t, models.ModeSync, resp.Mode)
	assert.False(t, resp.Promoted)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 2, resp.Result.Stats.TotalCitations)
	assert.Equal(t, 2, resp.Result.Stats.Verified)
	assert.Equal(t, 1, resp.Result.Stats.Clusters)

	cl := resp.Result.Clusters[0]
	require.NotNil(t, cl.CanonicalName)
	assert.Equal(t, "Lopez Demetrio v. Sakuma Bros. Farms", *cl.CanonicalName)
	require.NotNil(t, cl.CanonicalURL)
	assert.True(t, strings.HasPrefix(*cl.CanonicalURL, "https://authority.test/"))

	stored, err := h.jobs.Get(ctx, resp.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	assert.Equal(t, 100, stored.ProgressPct)
	assert.Empty(t, h.jobs.enqueuedIDs(), "sync jobs never touch the queue")
}

func TestSubmitEnqueuesLargeInputAsync(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	text := docParallel + strings.Repeat(" further discussion of the holding", 200)
	require.Greater(t, len(text), DefaultSyncThresholdBytes)

	resp, err := h.svc.Submit(ctx, interfaces.SubmitRequest{Text: text, Kind: models.InputFileDerived})
	require.NoError(t, err)

	assert.Equal(t, models.ModeAsync, resp.Mode)
	assert.Nil(t, resp.Result)
	assert.Equal(t, models.JobStatusQueued, resp.Job.Status)
	assert.Equal(t, models.InputFileDerived, resp.Job.InputKind)
	assert.Equal(t, []string{resp.Job.ID}, h.jobs.enqueuedIDs())
	assert.Zero(t, h.authority.calls(), "async acceptance must not verify inline")
}

func TestSubmitForceAsyncOverridesSize(t *testing.T) {
	h := newHarness(t, Options{})

	resp, err := h.svc.Submit(context.Background(), interfaces.SubmitRequest{
		Text:       docParallel,
		ForceAsync: true,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModeAsync, resp.Mode)
	assert.Nil(t, resp.Result)
	assert.Equal(t, []string{resp.Job.ID}, h.jobs.enqueuedIDs())
}

func TestSubmitForceSyncWithinCap(t *testing.T) {
	// Threshold below the document size, so only force_sync keeps it inline.
	h := newHarness(t, Options{SyncThresholdBytes: 10})

	resp, err := h.svc.Submit(context.Background(), interfaces.SubmitRequest{
		Text:      docParallel,
		ForceSync: true,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModeSync, resp.Mode)
	require.NotNil(t, resp.Result)
	assert.Empty(t, h.jobs.enqueuedIDs())
}

func TestSubmitForceSyncOverCapFallsBackToSizePolicy(t *testing.T) {
	h := newHarness(t, Options{SyncThresholdBytes: 10, ForceSyncCapBytes: 20})

	resp, err := h.svc.Submit(context.Background(), interfaces.SubmitRequest{
		Text:      docParallel,
		ForceSync: true,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModeAsync, resp.Mode, "oversized force_sync falls back to async")
	assert.Nil(t, resp.Result)
	assert.Equal(t, []string{resp.Job.ID}, h.jobs.enqueuedIDs())
}

func TestSubmitPromotesSyncRunPastWallClock(t *testing.T) {
	h := newHarness(t, Options{SyncWallClock: 50 * time.Millisecond})
	h.authority.block = make(chan struct{}) // lookups hang until cancelled
	ctx := context.Background()

	resp, err := h.svc.Submit(ctx, interfaces.SubmitRequest{Text: docParallel})
	require.NoError(t, err)

	assert.Equal(t, models.ModeAsync, resp.Mode)
	assert.True(t, resp.Promoted)
	assert.Nil(t, resp.Result)
	assert.Equal(t, models.JobStatusQueued, resp.Job.Status)
	assert.Equal(t, []string{resp.Job.ID}, h.jobs.enqueuedIDs())

	// Progress from the abandoned sync attempt survives the promotion.
	assert.Equal(t, pctClusterDone, resp.Job.ProgressPct)
	assert.Contains(t, h.jobs.stepsSeen(), "verifying_batch_1_of_2")

	stored, err := h.jobs.Get(ctx, resp.Job.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsTerminal())
}
