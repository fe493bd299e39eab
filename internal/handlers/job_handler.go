// -----------------------------------------------------------------------
// Last Modified: Tuesday, 10th February 2026 11:20:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/models"
	"github.com/ternarybob/shepard/internal/pipeline"
)

// maxSubmitBody caps the request body read. The pipeline enforces the 10 MB
// document cap on the decoded text; the raw JSON runs larger than the text
// it carries, so the body cap leaves room for escaping overhead.
const maxSubmitBody = 32 << 20

// JobHandler handles citation job API requests
type JobHandler struct {
	pipeline interfaces.PipelineService
	jobs     interfaces.JobService
	logger   arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(pipeline interfaces.PipelineService, jobs interfaces.JobService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		pipeline: pipeline,
		jobs:     jobs,
		logger:   logger,
	}
}

type submitRequest struct {
	Text      string `json:"text"`
	InputKind string `json:"input_kind,omitempty"`
	ForceMode string `json:"force_mode,omitempty"`
}

type submitResponse struct {
	JobID  string         `json:"job_id"`
	Mode   string         `json:"mode"`
	Status string         `json:"status"`
	Note   string         `json:"note,omitempty"`
	Result *models.Result `json:"result,omitempty"`
}

// jobStatusResponse is the poll shape. Result is present iff the job
// completed; PartialResult carries the pre-timeout snapshot of a timed-out
// job and is never set alongside Result.
type jobStatusResponse struct {
	JobID         string         `json:"job_id"`
	Status        string         `json:"status"`
	ProgressPct   int            `json:"progress_pct"`
	CurrentStep   string         `json:"current_step,omitempty"`
	Result        *models.Result `json:"result,omitempty"`
	PartialResult *models.Result `json:"partial_result,omitempty"`
	Error         string         `json:"error,omitempty"`
}

type jobSummary struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"`
	InputKind   string     `json:"input_kind"`
	TextBytes   int        `json:"text_bytes"`
	ProgressPct int        `json:"progress_pct"`
	CurrentStep string     `json:"current_step,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// SubmitJobHandler routes a document into the pipeline
// POST /api/jobs with body {text, input_kind?, force_mode?}
func (h *JobHandler) SubmitJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBody)
	defer r.Body.Close()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "request body exceeds the maximum document size")
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_input", "request body is not valid JSON")
		return
	}

	kind, ok := parseInputKind(req.InputKind)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_input", "input_kind must be one of text, file_derived_text, url_derived_text")
		return
	}

	submit := interfaces.SubmitRequest{Text: req.Text, Kind: kind}
	switch req.ForceMode {
	case "":
	case "sync":
		submit.ForceSync = true
	case "async":
		submit.ForceAsync = true
	default:
		WriteError(w, http.StatusBadRequest, "invalid_input", "force_mode must be sync or async")
		return
	}

	resp, err := h.pipeline.Submit(ctx, submit)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrEmptyInput), errors.Is(err, pipeline.ErrForceModeConflict):
			WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
		case errors.Is(err, pipeline.ErrInputTooLarge):
			WriteError(w, http.StatusRequestEntityTooLarge, "too_large", err.Error())
		default:
			h.logger.Error().Err(err).Msg("Job submission failed")
			WriteError(w, http.StatusInternalServerError, "internal", "job submission failed")
		}
		return
	}

	out := submitResponse{
		JobID:  resp.Job.ID,
		Mode:   string(resp.Mode),
		Status: string(resp.Job.Status),
	}
	if resp.Mode == models.ModeSync {
		out.Result = resp.Result
		WriteJSON(w, http.StatusOK, out)
		return
	}
	if resp.Promoted {
		out.Note = "async_promoted"
	}
	WriteJSON(w, http.StatusAccepted, out)
}

// GetJobHandler returns the poll view of a single job
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID := pathJobID(r.URL.Path)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "job id is required")
		return
	}

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		WriteError(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	WriteJSON(w, http.StatusOK, jobStatusResponse{
		JobID:         job.ID,
		Status:        string(job.Status),
		ProgressPct:   job.ProgressPct,
		CurrentStep:   job.CurrentStep,
		Result:        job.Result,
		PartialResult: job.PartialResult,
		Error:         job.Error,
	})
}

// CancelJobHandler flags a job for cancellation; the pipeline honors the
// flag at its next checkpoint
// POST /api/jobs/{id}/cancel
func (h *JobHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID := pathJobID(strings.TrimSuffix(r.URL.Path, "/cancel"))
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "job id is required")
		return
	}

	if err := h.jobs.Cancel(ctx, jobID); err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		// Cancel only rejects jobs that already reached a terminal state
		WriteError(w, http.StatusConflict, "conflict", err.Error())
		return
	}

	h.logger.Info().Str("job_id", jobID).Msg("Job cancellation requested")

	WriteJSON(w, http.StatusOK, map[string]string{
		"job_id":  jobID,
		"message": "Cancellation requested",
	})
}

// ListJobsHandler returns a paginated list of jobs
// GET /api/jobs?limit=50&offset=0&status=completed
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	orderBy := r.URL.Query().Get("order_by")
	if orderBy == "" {
		orderBy = "created_at"
	}
	orderDir := r.URL.Query().Get("order_dir")
	if orderDir == "" {
		orderDir = "desc"
	}

	opts := &interfaces.JobListOptions{
		Status:   r.URL.Query().Get("status"),
		Limit:    limit,
		Offset:   offset,
		OrderBy:  orderBy,
		OrderDir: orderDir,
	}

	jobs, total, err := h.jobs.List(ctx, opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}

	summaries := make([]jobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, jobSummary{
			JobID:       job.ID,
			Status:      string(job.Status),
			InputKind:   string(job.InputKind),
			TextBytes:   job.TextBytes,
			ProgressPct: job.ProgressPct,
			CurrentStep: job.CurrentStep,
			Error:       job.Error,
			CreatedAt:   job.CreatedAt,
			CompletedAt: job.CompletedAt,
			ExpiresAt:   job.ExpiresAt,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":        summaries,
		"total_count": total,
		"limit":       limit,
		"offset":      offset,
	})
}

// parseInputKind maps the wire value onto the model enum. Empty selects the
// plain-text default.
func parseInputKind(s string) (models.InputKind, bool) {
	switch s {
	case "":
		return models.InputText, true
	case string(models.InputText), string(models.InputFileDerived), string(models.InputURLDerived):
		return models.InputKind(s), true
	}
	return "", false
}

// pathJobID extracts the id segment from /api/jobs/{id} style paths.
func pathJobID(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
