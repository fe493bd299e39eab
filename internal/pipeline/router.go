// -----------------------------------------------------------------------
// Router - sync versus async decision for one submitted document
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/models"
)

// Typed rejection errors. Handlers map these onto invalid_input and
// too_large responses; nothing is persisted when Submit returns one.
var (
	ErrEmptyInput        = errors.New("input text is empty")
	ErrInputTooLarge     = errors.New("input text exceeds the maximum document size")
	ErrForceModeConflict = errors.New("force_sync and force_async cannot both be set")
)

// Submit validates a document, persists a queued job for it, and either
// runs the pipeline on the caller or enqueues the job for a worker.
//
// The emptiness check trims, but the pipeline always receives the original
// text: citation spans index into it and must not shift.
func (s *Service) Submit(ctx context.Context, req interfaces.SubmitRequest) (*interfaces.SubmitResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyInput
	}
	if len(req.Text) > s.maxInput {
		return nil, ErrInputTooLarge
	}
	if req.ForceSync && req.ForceAsync {
		return nil, ErrForceModeConflict
	}

	kind := req.Kind
	if kind == "" {
		kind = models.InputText
	}

	mode := s.route(len(req.Text), req.ForceSync, req.ForceAsync)
	job, err := s.jobs.Create(ctx, kind, req.Text)
	if err != nil {
		return nil, err
	}

	if mode == models.ModeAsync {
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			return nil, err
		}
		s.logger.Info().Str("job_id", job.ID).Int("bytes", job.TextBytes).
			Msg("Document accepted for async verification")
		return &interfaces.SubmitResponse{Mode: models.ModeAsync, Job: job}, nil
	}
	return s.runSync(ctx, job, req.Text)
}

// route picks the execution mode. A force_sync request over the forced-sync
// cap is not rejected; it falls back to the size policy.
func (s *Service) route(size int, forceSync, forceAsync bool) models.ExecutionMode {
	switch {
	case forceAsync:
		return models.ModeAsync
	case forceSync && size <= s.forceSyncCap:
		return models.ModeSync
	case size < s.syncThreshold:
		return models.ModeSync
	default:
		return models.ModeAsync
	}
}

// runSync executes the pipeline inline under the sync wall clock. The run is
// detached from the request context so a dropped client cannot orphan a
// half-verified job; the wall clock alone decides promotion.
func (s *Service) runSync(ctx context.Context, job *models.Job, text string) (*interfaces.SubmitResponse, error) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	type outcome struct {
		result *models.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := s.Run(runCtx, job, text)
		done <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(s.syncWall)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		return &interfaces.SubmitResponse{Mode: models.ModeSync, Job: job, Result: out.result}, nil
	case <-timer.C:
	}

	// Wall clock expired. Stop the inline attempt, wait for it to unwind,
	// then hand the job to the queue with its progress intact.
	cancel()
	out := <-done
	if out.err == nil {
		// Finished inside the teardown window; a result beats a promotion.
		return &interfaces.SubmitResponse{Mode: models.ModeSync, Job: job, Result: out.result}, nil
	}
	if !errors.Is(out.err, context.Canceled) {
		// The run reached a terminal state on its own.
		return nil, out.err
	}

	if err := s.jobs.Requeue(ctx, job); err != nil {
		return nil, err
	}
	promoted, err := s.jobs.Get(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return &interfaces.SubmitResponse{Mode: models.ModeAsync, Job: promoted, Promoted: true}, nil
}
