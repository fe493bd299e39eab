// -----------------------------------------------------------------------
// Orchestrator - runs the pipeline stages for one job and owns its
// progress and terminal bookkeeping
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/shepard/internal/cluster"
	"github.com/ternarybob/shepard/internal/models"
	"github.com/ternarybob/shepard/internal/verify"
)

// Step labels published to the progress store. Verification steps carry
// batch counters, e.g. "verifying_batch_2_of_5".
const (
	stepExtracting = "extracting"
	stepClustering = "clustering"
	stepAssembling = "assembling"
)

// Progress band boundaries: extraction ends at 20, clustering at 25,
// verification at 90, assembly runs to 100 on completion.
const (
	pctExtractDone = 20
	pctClusterDone = 25
	pctVerifyDone  = 90
)

// errCancelRequested marks a caller-requested cancel observed through the
// job's cancel flag, as opposed to context cancellation.
var errCancelRequested = errors.New("job cancellation requested")

// Run executes the full pipeline for a persisted job under the per-job
// timeout and owns the terminal transition. Cancellation is honored at
// stage boundaries and between verification batches. The one case Run does
// not settle is the caller withdrawing its context: promotion and shutdown
// both look like that, and what happens to the job next is the caller's
// decision.
func (s *Service) Run(ctx context.Context, job *models.Job, text string) (result *models.Result, err error) {
	tctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error().Str("job_id", job.ID).Str("panic", fmt.Sprintf("%v", p)).Msg("Pipeline panicked")
			_ = s.jobs.Fail(context.WithoutCancel(ctx), job.ID, models.ErrReasonInternal, nil)
			result, err = nil, fmt.Errorf("pipeline panic: %v", p)
		}
	}()

	if _, err := s.jobs.MarkRunning(tctx, job.ID); err != nil {
		return nil, err
	}
	s.logger.Info().Str("job_id", job.ID).Int("bytes", len(text)).Msg("Pipeline started")

	r := &run{svc: s, jobID: job.ID}
	result, err = r.execute(tctx, text)
	if err == nil {
		if cerr := s.jobs.Complete(ctx, job.ID, result); cerr != nil {
			return nil, cerr
		}
		s.logger.Info().Str("job_id", job.ID).
			Int("citations", result.Stats.TotalCitations).
			Int("verified", result.Stats.Verified).
			Int("clusters", result.Stats.Clusters).
			Msg("Pipeline completed")
		return result, nil
	}

	bctx := context.WithoutCancel(ctx)
	switch {
	case errors.Is(err, errCancelRequested):
		if ferr := s.jobs.Fail(bctx, job.ID, models.ErrReasonCancelled, nil); ferr != nil {
			s.logger.Warn().Err(ferr).Str("job_id", job.ID).Msg("Could not record cancellation")
		}
	case tctx.Err() != nil && ctx.Err() == nil:
		// The per-job clock ran out, not the caller's context. Timeout
		// failures keep a snapshot of whatever clusters were assembled.
		if ferr := s.jobs.Fail(bctx, job.ID, models.ErrReasonTimeout, r.partial()); ferr != nil {
			s.logger.Warn().Err(ferr).Str("job_id", job.ID).Msg("Could not record timeout")
		}
	case ctx.Err() != nil:
		// Caller withdrew the run: sync promotion or shutdown. The job
		// record stays as-is for the caller to requeue or for the stale
		// janitor to fail.
	default:
		// Progress or cancel-flag persistence failed. The store is the
		// job's source of truth, so losing it fails the job.
		if ferr := s.jobs.Fail(bctx, job.ID, models.ErrReasonTransport, nil); ferr != nil {
			s.logger.Warn().Err(ferr).Str("job_id", job.ID).Msg("Could not record transport failure")
		}
	}
	return nil, err
}

// run carries one job's mutable pipeline state so a timeout can snapshot
// the clusters assembled up to that point.
type run struct {
	svc   *Service
	jobID string

	mu       sync.Mutex
	clusters []*models.Cluster
}

// execute walks the stages in order, checking the cancel flag and context
// at every boundary. Stage functions themselves never fail a job;
// verification failures degrade to unverified citations.
func (r *run) execute(ctx context.Context, text string) (*models.Result, error) {
	s := r.svc

	if err := r.checkpoint(ctx); err != nil {
		return nil, err
	}
	if err := s.jobs.SetProgress(ctx, r.jobID, 0, stepExtracting); err != nil {
		return nil, err
	}
	cits := s.extractor.Extract(text)

	if err := r.checkpoint(ctx); err != nil {
		return nil, err
	}
	if err := s.jobs.SetProgress(ctx, r.jobID, pctExtractDone, stepClustering); err != nil {
		return nil, err
	}
	clusters := cluster.Build(cits, text)
	cluster.PropagateContext(clusters)
	r.setClusters(clusters)

	if err := r.checkpoint(ctx); err != nil {
		return nil, err
	}
	if err := r.verifyStage(ctx, clusters); err != nil {
		return nil, err
	}

	if err := r.checkpoint(ctx); err != nil {
		return nil, err
	}
	if err := s.jobs.SetProgress(ctx, r.jobID, pctVerifyDone, stepAssembling); err != nil {
		return nil, err
	}

	// Split before propagating: inherited canonical names would mask the
	// inconsistencies the splitter exists to find.
	split := cluster.SplitByCanonical(clusters)
	r.setClusters(split)
	verify.PropagateParallel(split)
	return models.BuildResult(split), nil
}

// verifyStage runs the batched verifier, mapping batch completions onto the
// 25..90 progress band. Progress callbacks double as cancellation points: a
// cancel flag or a failed progress write stops the remaining batches through
// the verifier's context.
func (r *run) verifyStage(ctx context.Context, clusters []*models.Cluster) error {
	s := r.svc
	total := s.verifier.Batches(countMembers(clusters))
	if total == 0 {
		return nil
	}
	if err := s.jobs.SetProgress(ctx, r.jobID, pctClusterDone, verifyStep(1, total)); err != nil {
		return err
	}

	vctx, stop := context.WithCancel(ctx)
	defer stop()

	var mu sync.Mutex
	var stageErr error
	maxDone := 0
	progress := func(done, batches int) {
		mu.Lock()
		defer mu.Unlock()
		// Callbacks come from concurrent batch goroutines and may land out
		// of order; only the furthest one advances the record. A dead run
		// context means teardown, where a batch counts as settled without
		// having verified anything, so nothing is written.
		if ctx.Err() != nil || stageErr != nil || done <= maxDone {
			return
		}
		maxDone = done
		pct := pctClusterDone + (pctVerifyDone-pctClusterDone)*done/batches
		if err := s.jobs.SetProgress(ctx, r.jobID, pct, verifyStep(done+1, batches)); err != nil {
			stageErr = err
			stop()
			return
		}
		cancelled, err := s.jobs.CancelRequested(ctx, r.jobID)
		switch {
		case err != nil:
			stageErr = err
			stop()
		case cancelled:
			stageErr = errCancelRequested
			stop()
		}
	}

	stats, err := s.verifier.Verify(vctx, clusters, progress)
	mu.Lock()
	serr := stageErr
	mu.Unlock()
	if serr != nil {
		return serr
	}
	if err != nil {
		return err
	}

	s.logger.Info().Str("job_id", r.jobID).
		Int("citations", stats.Citations).
		Int("batches", stats.Batches).
		Int("verified", stats.Verified).
		Int("by_search", stats.BySearch).
		Int("by_alternate", stats.ByAlternate).
		Int("not_found", stats.NotFound).
		Int("rejected", stats.Rejected).
		Bool("rate_limited", stats.RateLimited).
		Msg("Verification stage finished")
	return nil
}

// checkpoint enforces cancellation between stages. The context covers the
// job clock and caller shutdown; the flag covers user cancel requests.
func (r *run) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cancelled, err := r.svc.jobs.CancelRequested(ctx, r.jobID)
	if err != nil {
		return fmt.Errorf("cancel flag read for job %s: %w", r.jobID, err)
	}
	if cancelled {
		return errCancelRequested
	}
	return nil
}

func (r *run) setClusters(clusters []*models.Cluster) {
	r.mu.Lock()
	r.clusters = clusters
	r.mu.Unlock()
}

// partial snapshots the clusters assembled before a timeout. Stage calls
// have returned by then, so members are quiescent; clones keep the snapshot
// detached from the abandoned run regardless.
func (r *run) partial() *models.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.clusters) == 0 {
		return nil
	}
	snap := make([]*models.Cluster, len(r.clusters))
	for i, cl := range r.clusters {
		cp := *cl
		cp.Members = make([]*models.Citation, len(cl.Members))
		for j, m := range cl.Members {
			cp.Members[j] = m.Clone()
		}
		snap[i] = &cp
	}
	models.SortClusters(snap)
	return models.BuildResult(snap)
}

// verifyStep labels the batch currently in flight, clamped so the final
// callback reads "verifying_batch_n_of_n" rather than overrunning.
func verifyStep(k, n int) string {
	if k > n {
		k = n
	}
	return fmt.Sprintf("verifying_batch_%d_of_%d", k, n)
}

func countMembers(clusters []*models.Cluster) int {
	n := 0
	for _, cl := range clusters {
		n += len(cl.Members)
	}
	return n
}
