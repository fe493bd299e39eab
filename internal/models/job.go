// -----------------------------------------------------------------------
// Job - One end-to-end citation verification request
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a job. Transitions happen only in the
// order queued -> running -> (completed | failed); a job becomes terminal
// exactly once.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// InputKind records where the submitted text came from. Decoding (PDF, URL
// fetch) happens upstream; the engine always receives plain text.
type InputKind string

const (
	InputText        InputKind = "text"
	InputFileDerived InputKind = "file_derived_text"
	InputURLDerived  InputKind = "url_derived_text"
)

// ExecutionMode selects the pipeline path for a job.
type ExecutionMode string

const (
	ModeSync  ExecutionMode = "sync"
	ModeAsync ExecutionMode = "async"
)

// Error reason labels used in Job.Error. The full taxonomy lives with the
// verifier; only job-terminal reasons appear here.
const (
	ErrReasonTimeout   = "timeout"
	ErrReasonTransport = "transport"
	ErrReasonCancelled = "cancelled"
	ErrReasonInternal  = "internal"
)

// Job is the persistent record of one verification request. It doubles as
// the progress store entry polled by stateless front-ends: a single worker
// writes it, many readers poll it.
type Job struct {
	ID        string    `json:"id" badgerhold:"key"`
	InputKind InputKind `json:"input_kind"`
	TextBytes int       `json:"text_bytes"`

	Status      JobStatus `json:"status" badgerholdIndex:"Status"`
	ProgressPct int       `json:"progress_pct"`
	CurrentStep string    `json:"current_step"`

	// Result is populated only on completed jobs. PartialResult holds the
	// clusters assembled before a timeout; it never substitutes for Result.
	Result        *Result `json:"result,omitempty"`
	PartialResult *Result `json:"partial_result,omitempty"`
	Error         string  `json:"error,omitempty"`

	CancelRequested bool `json:"cancel_requested,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastProgressAt time.Time  `json:"last_progress_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
}

// NewJob creates a queued job record with zero progress.
func NewJob(id string, kind InputKind, textBytes int, ttl time.Duration) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:             id,
		InputKind:      kind,
		TextBytes:      textBytes,
		Status:         JobStatusQueued,
		ProgressPct:    0,
		CurrentStep:    "queued",
		CreatedAt:      now,
		LastProgressAt: now,
		ExpiresAt:      now.Add(ttl),
	}
}

// MarkRunning transitions the job to running. No-op on terminal jobs.
func (j *Job) MarkRunning() {
	if j.IsTerminal() {
		return
	}
	j.Status = JobStatusRunning
	now := time.Now().UTC()
	if j.StartedAt == nil {
		j.StartedAt = &now
	}
	j.LastProgressAt = now
}

// MarkCompleted stores the result and transitions to completed.
// No-op on terminal jobs: a job becomes terminal exactly once.
func (j *Job) MarkCompleted(result *Result) {
	if j.IsTerminal() {
		return
	}
	j.Status = JobStatusCompleted
	j.Result = result
	j.PartialResult = nil
	j.ProgressPct = 100
	j.CurrentStep = "completed"
	now := time.Now().UTC()
	j.CompletedAt = &now
	j.LastProgressAt = now
}

// MarkFailed records the error reason and transitions to failed. A partial
// snapshot of already-assembled clusters may accompany timeout failures.
func (j *Job) MarkFailed(reason string, partial *Result) {
	if j.IsTerminal() {
		return
	}
	j.Status = JobStatusFailed
	j.Error = reason
	j.Result = nil
	j.PartialResult = partial
	j.CurrentStep = "failed"
	now := time.Now().UTC()
	j.CompletedAt = &now
	j.LastProgressAt = now
}

// SetProgress raises progress to pct and records the step label. Progress is
// monotonic: a lower pct updates the step and heartbeat but never lowers the
// percentage (re-runs after async promotion restart from zero internally).
func (j *Job) SetProgress(pct int, step string) {
	if j.IsTerminal() {
		return
	}
	if pct > 100 {
		pct = 100
	}
	if pct > j.ProgressPct {
		j.ProgressPct = pct
	}
	j.CurrentStep = step
	j.LastProgressAt = time.Now().UTC()
}

// Requeue returns a non-terminal job to the queued state for async
// promotion. Progress is retained so polls stay monotonic.
func (j *Job) Requeue() {
	if j.IsTerminal() {
		return
	}
	j.Status = JobStatusQueued
	j.CurrentStep = "queued"
	j.LastProgressAt = time.Now().UTC()
}

// IsTerminal reports whether the job reached completed or failed.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// IsExpired reports whether the record passed its retention deadline.
func (j *Job) IsExpired(now time.Time) bool {
	return now.After(j.ExpiresAt)
}

// IsStale reports whether a running job stopped publishing progress for
// longer than the heartbeat timeout.
func (j *Job) IsStale(now time.Time, heartbeat time.Duration) bool {
	return j.Status == JobStatusRunning && now.Sub(j.LastProgressAt) > heartbeat
}

// Validate checks the job record.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	switch j.Status {
	case JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
	default:
		return fmt.Errorf("invalid job status %q", j.Status)
	}
	switch j.InputKind {
	case InputText, InputFileDerived, InputURLDerived:
	default:
		return fmt.Errorf("invalid input kind %q", j.InputKind)
	}
	if j.ProgressPct < 0 || j.ProgressPct > 100 {
		return fmt.Errorf("progress %d out of range", j.ProgressPct)
	}
	if j.Result != nil && j.Status != JobStatusCompleted {
		return fmt.Errorf("result present on non-completed job")
	}
	if j.Error != "" && j.Status != JobStatusFailed {
		return fmt.Errorf("error present on non-failed job")
	}
	return nil
}

// ToJSON serializes the job for storage or transport.
func (j *Job) ToJSON() ([]byte, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return data, nil
}

// JobFromJSON deserializes a job record.
func JobFromJSON(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Clone returns a deep copy of the job record.
func (j *Job) Clone() *Job {
	cp := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	cp.Result = j.Result.Clone()
	cp.PartialResult = j.PartialResult.Clone()
	return &cp
}
