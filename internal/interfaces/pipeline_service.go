package interfaces

import (
	"context"

	"github.com/ternarybob/shepard/internal/models"
)

// SubmitRequest carries one document into the pipeline router.
// ForceSync and ForceAsync override the size-based mode choice; ForceSync
// still respects the forced-sync byte cap, and setting both is rejected.
type SubmitRequest struct {
	Text       string
	Kind       models.InputKind
	ForceSync  bool
	ForceAsync bool
}

// SubmitResponse is the router's decision plus whatever that decision produced.
// Sync completions carry Result; async acceptances carry only the job;
// Promoted marks a sync attempt that outlived the wall clock and was
// requeued as async.
type SubmitResponse struct {
	Mode     models.ExecutionMode
	Job      *models.Job
	Result   *models.Result
	Promoted bool
}

// PipelineService routes documents into the citation pipeline and runs
// the extraction/verification stages for queued jobs.
type PipelineService interface {
	// Submit routes a document per the size thresholds. Inputs over the
	// hard cap or empty after trimming are rejected with a typed error.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)

	// Run executes the full pipeline for an already-persisted job.
	// Used by queue workers; progress lands on the job record.
	Run(ctx context.Context, job *models.Job, text string) (*models.Result, error)
}

// VerificationService verifies bare citation strings against the authority.
// Used by the MCP tools and the one-shot CLI path, which have no document
// context to extract from.
type VerificationService interface {
	VerifyTexts(ctx context.Context, citations []string) ([]models.VerificationResult, error)
}
