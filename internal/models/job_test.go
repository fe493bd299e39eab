package models

import (
	"testing"
	"time"
)

// TestNewJob verifies the initial record state
func TestNewJob(t *testing.T) {
	job := NewJob("job_test", InputText, 1234, time.Hour)

	if job.Status != JobStatusQueued {
		t.Errorf("Status = %q, want %q", job.Status, JobStatusQueued)
	}
	if job.ProgressPct != 0 {
		t.Errorf("ProgressPct = %d, want 0", job.ProgressPct)
	}
	if job.CurrentStep != "queued" {
		t.Errorf("CurrentStep = %q, want %q", job.CurrentStep, "queued")
	}
	if job.TextBytes != 1234 {
		t.Errorf("TextBytes = %d, want 1234", job.TextBytes)
	}
	if got := job.ExpiresAt.Sub(job.CreatedAt); got != time.Hour {
		t.Errorf("retention window = %v, want %v", got, time.Hour)
	}
	if job.IsTerminal() {
		t.Error("new job must not be terminal")
	}
	if err := job.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

// TestMarkRunningKeepsFirstStart verifies StartedAt is written exactly once
func TestMarkRunningKeepsFirstStart(t *testing.T) {
	job := NewJob("job_test", InputText, 10, time.Hour)

	job.MarkRunning()
	if job.Status != JobStatusRunning {
		t.Fatalf("Status = %q, want %q", job.Status, JobStatusRunning)
	}
	if job.StartedAt == nil {
		t.Fatal("StartedAt not set")
	}

	first := *job.StartedAt
	job.Requeue()
	job.MarkRunning()
	if !job.StartedAt.Equal(first) {
		t.Errorf("StartedAt rewritten on re-run: %v != %v", *job.StartedAt, first)
	}
}

// TestTerminalExactlyOnce verifies a terminal job ignores further transitions
func TestTerminalExactlyOnce(t *testing.T) {
	completed := NewJob("job_a", InputText, 10, time.Hour)
	completed.MarkRunning()
	completed.MarkCompleted(&Result{})

	completed.MarkFailed(ErrReasonInternal, nil)
	if completed.Status != JobStatusCompleted {
		t.Errorf("completed job transitioned to %q", completed.Status)
	}
	if completed.Error != "" {
		t.Errorf("completed job acquired error %q", completed.Error)
	}

	failed := NewJob("job_b", InputText, 10, time.Hour)
	failed.MarkRunning()
	failed.MarkFailed(ErrReasonTimeout, &Result{})

	failed.MarkCompleted(&Result{})
	if failed.Status != JobStatusFailed {
		t.Errorf("failed job transitioned to %q", failed.Status)
	}
	if failed.Result != nil {
		t.Error("failed job acquired a result")
	}
	if failed.PartialResult == nil {
		t.Error("timeout partial dropped")
	}
}

// TestMarkCompletedClearsPartial verifies completion replaces any partial
func TestMarkCompletedClearsPartial(t *testing.T) {
	job := NewJob("job_test", InputText, 10, time.Hour)
	job.MarkRunning()
	job.PartialResult = &Result{}

	job.MarkCompleted(&Result{})

	if job.PartialResult != nil {
		t.Error("PartialResult kept after completion")
	}
	if job.ProgressPct != 100 {
		t.Errorf("ProgressPct = %d, want 100", job.ProgressPct)
	}
	if job.CurrentStep != "completed" {
		t.Errorf("CurrentStep = %q, want %q", job.CurrentStep, "completed")
	}
	if job.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
}

// TestSetProgressMonotonic verifies progress never moves backwards
func TestSetProgressMonotonic(t *testing.T) {
	job := NewJob("job_test", InputText, 10, time.Hour)
	job.MarkRunning()

	job.SetProgress(60, "verifying_batch_2_of_3")
	job.SetProgress(25, "clustering")
	if job.ProgressPct != 60 {
		t.Errorf("ProgressPct = %d, want 60 (lower pct must not win)", job.ProgressPct)
	}
	if job.CurrentStep != "clustering" {
		t.Errorf("CurrentStep = %q, step label should still update", job.CurrentStep)
	}

	job.SetProgress(150, "assembling")
	if job.ProgressPct != 100 {
		t.Errorf("ProgressPct = %d, want cap at 100", job.ProgressPct)
	}

	job.MarkCompleted(&Result{})
	job.SetProgress(10, "late_tick")
	if job.CurrentStep != "completed" {
		t.Errorf("terminal job accepted progress step %q", job.CurrentStep)
	}
}

// TestRequeueRetainsProgress verifies async promotion keeps poll monotonicity
func TestRequeueRetainsProgress(t *testing.T) {
	job := NewJob("job_test", InputText, 10, time.Hour)
	job.MarkRunning()
	job.SetProgress(45, "verifying_batch_1_of_2")

	job.Requeue()

	if job.Status != JobStatusQueued {
		t.Errorf("Status = %q, want %q", job.Status, JobStatusQueued)
	}
	if job.ProgressPct != 45 {
		t.Errorf("ProgressPct = %d, want 45 retained across requeue", job.ProgressPct)
	}
}

// TestIsStale verifies only silent running jobs count as stale
func TestIsStale(t *testing.T) {
	now := time.Now().UTC()

	job := NewJob("job_test", InputText, 10, time.Hour)
	job.MarkRunning()
	job.LastProgressAt = now.Add(-10 * time.Minute)

	if !job.IsStale(now, 5*time.Minute) {
		t.Error("silent running job not reported stale")
	}
	if job.IsStale(now, 15*time.Minute) {
		t.Error("job inside heartbeat window reported stale")
	}

	job.MarkCompleted(&Result{})
	job.LastProgressAt = now.Add(-10 * time.Minute)
	if job.IsStale(now, 5*time.Minute) {
		t.Error("terminal job reported stale")
	}
}

// TestJobValidate verifies cross-field consistency checks
func TestJobValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Job)
		wantErr bool
	}{
		{
			name:    "valid queued job",
			mutate:  func(j *Job) {},
			wantErr: false,
		},
		{
			name:    "missing id",
			mutate:  func(j *Job) { j.ID = "" },
			wantErr: true,
		},
		{
			name:    "unknown status",
			mutate:  func(j *Job) { j.Status = "paused" },
			wantErr: true,
		},
		{
			name:    "unknown input kind",
			mutate:  func(j *Job) { j.InputKind = "pdf" },
			wantErr: true,
		},
		{
			name:    "progress out of range",
			mutate:  func(j *Job) { j.ProgressPct = 101 },
			wantErr: true,
		},
		{
			name:    "result on non-completed job",
			mutate:  func(j *Job) { j.Result = &Result{} },
			wantErr: true,
		},
		{
			name:    "error on non-failed job",
			mutate:  func(j *Job) { j.Error = ErrReasonTransport },
			wantErr: true,
		},
		{
			name: "completed job with result",
			mutate: func(j *Job) {
				j.MarkRunning()
				j.MarkCompleted(&Result{})
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob("job_test", InputText, 10, time.Hour)
			tt.mutate(job)
			err := job.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestJobCloneIsDeep verifies clones do not share pointer fields
func TestJobCloneIsDeep(t *testing.T) {
	job := NewJob("job_test", InputText, 10, time.Hour)
	job.MarkRunning()
	job.MarkCompleted(&Result{Stats: ResultStats{TotalCitations: 2}})

	cp := job.Clone()
	cp.Result.Stats.TotalCitations = 99
	if job.Result.Stats.TotalCitations != 2 {
		t.Error("clone shares Result with original")
	}

	started := *job.StartedAt
	*cp.StartedAt = started.Add(time.Hour)
	if !job.StartedAt.Equal(started) {
		t.Error("clone shares StartedAt with original")
	}
}
