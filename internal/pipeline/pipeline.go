// Package pipeline routes submitted documents into the citation engine and
// drives the stages for accepted jobs: extraction, proximity clustering,
// context propagation, batched verification, canonical splitting, parallel
// propagation, and result assembly. The router decides sync versus async by
// input size; the orchestrator owns job bookkeeping and progress while a job
// runs, regardless of which path started it.
package pipeline

import (
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/shepard/internal/citations"
	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/verify"
)

// Routing and clock defaults, applied when Options fields are zero.
const (
	DefaultSyncThresholdBytes = 5000
	DefaultForceSyncCapBytes  = 100 * 1024
	DefaultMaxInputBytes      = 10 * 1024 * 1024
	DefaultSyncWallClock      = 30 * time.Second
	DefaultJobTimeout         = 10 * time.Minute
)

// Options tunes the router thresholds and the job clocks.
type Options struct {
	SyncThresholdBytes int           // inputs under this run on the caller
	ForceSyncCapBytes  int           // largest input force_sync will honor
	MaxInputBytes      int           // inputs over this are rejected outright
	SyncWallClock      time.Duration // sync attempts past this promote to async
	JobTimeout         time.Duration // whole-job budget, sync or async
}

// Service implements interfaces.PipelineService over the extraction,
// clustering, and verification packages. One instance serves the HTTP
// router and every queue worker; all per-job state lives on the job record.
type Service struct {
	jobs      interfaces.JobService
	extractor *citations.Extractor
	verifier  *verify.Verifier
	logger    arbor.ILogger

	syncThreshold int
	forceSyncCap  int
	maxInput      int
	syncWall      time.Duration
	jobTimeout    time.Duration
}

// NewService wires the pipeline over its collaborators.
func NewService(jobs interfaces.JobService, extractor *citations.Extractor, verifier *verify.Verifier, logger arbor.ILogger, opts Options) *Service {
	s := &Service{
		jobs:          jobs,
		extractor:     extractor,
		verifier:      verifier,
		logger:        logger,
		syncThreshold: opts.SyncThresholdBytes,
		forceSyncCap:  opts.ForceSyncCapBytes,
		maxInput:      opts.MaxInputBytes,
		syncWall:      opts.SyncWallClock,
		jobTimeout:    opts.JobTimeout,
	}
	if s.syncThreshold <= 0 {
		s.syncThreshold = DefaultSyncThresholdBytes
	}
	if s.forceSyncCap <= 0 {
		s.forceSyncCap = DefaultForceSyncCapBytes
	}
	if s.maxInput <= 0 {
		s.maxInput = DefaultMaxInputBytes
	}
	if s.syncWall <= 0 {
		s.syncWall = DefaultSyncWallClock
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = DefaultJobTimeout
	}
	return s
}
