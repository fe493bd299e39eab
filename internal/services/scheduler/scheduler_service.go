package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/shepard/internal/common"
	"github.com/ternarybob/shepard/internal/interfaces"
)

// jobEntry represents a registered job with metadata
type jobEntry struct {
	name        string
	schedule    string
	description string
	handler     func() error
	enabled     bool
	cronID      cron.EntryID
	lastRun     *time.Time
	isRunning   bool
	lastError   string
}

// Service implements SchedulerService. Maintenance jobs (expired-job sweep,
// stale-job detection) register here and fire on their cron schedules.
type Service struct {
	cron     *cron.Cron
	logger   arbor.ILogger
	jobMu    sync.Mutex // Protects jobs map
	globalMu sync.Mutex // Prevents concurrent job execution
	jobs     map[string]*jobEntry
	running  bool
}

// NewService creates a new scheduler service
func NewService(logger arbor.ILogger) interfaces.SchedulerService {
	return &Service{
		cron:   cron.New(),
		logger: logger,
		jobs:   make(map[string]*jobEntry),
	}
}

// Start begins the scheduler; registered jobs fire on their schedules
func (s *Service) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.cron.Start()
	s.running = true

	s.jobMu.Lock()
	count := len(s.jobs)
	s.jobMu.Unlock()

	s.logger.Info().Int("jobs", count).Msg("Scheduler started")
	return nil
}

// Stop halts the scheduler. A running job finishes its current execution.
func (s *Service) Stop() error {
	if !s.running {
		return nil
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns true if scheduler is active
func (s *Service) IsRunning() bool {
	return s.running
}

// RegisterJob registers a new job with the scheduler
func (s *Service) RegisterJob(name string, schedule string, description string, handler func() error) error {
	if err := common.ValidateMaintenanceSchedule(schedule); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{
		name:        name,
		schedule:    schedule,
		description: description,
		handler:     handler,
		enabled:     true,
	}

	// Add to cron scheduler with wrapper
	cronID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add job to cron: %w", err)
	}

	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", schedule).
		Msg("Job registered")

	return nil
}

// TriggerJobNow manually runs a registered job outside its schedule
func (s *Service) TriggerJobNow(name string) error {
	s.jobMu.Lock()
	_, exists := s.jobs[name]
	s.jobMu.Unlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.logger.Info().Str("job_name", name).Msg("Manual job trigger requested")
	go s.executeJob(name)
	return nil
}

// EnableJob enables a disabled job
func (s *Service) EnableJob(name string) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entry, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	if entry.enabled {
		return nil // Already enabled
	}

	// Add back to cron scheduler
	cronID, err := s.cron.AddFunc(entry.schedule, func() {
		s.executeJob(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add job to cron: %w", err)
	}

	entry.cronID = cronID
	entry.enabled = true

	s.logger.Info().
		Str("job_name", name).
		Msg("Job enabled")

	return nil
}

// DisableJob disables an enabled job
func (s *Service) DisableJob(name string) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entry, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	if !entry.enabled {
		return nil // Already disabled
	}

	// Remove from cron scheduler
	s.cron.Remove(entry.cronID)
	entry.enabled = false

	s.logger.Info().
		Str("job_name", name).
		Msg("Job disabled")

	return nil
}

// GetJobStatus returns the status of a specific job
func (s *Service) GetJobStatus(name string) (*interfaces.ScheduledJobStatus, error) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entry, exists := s.jobs[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}

	// Get next run time from cron
	var nextRun *time.Time
	if entry.enabled {
		for _, cronEntry := range s.cron.Entries() {
			if cronEntry.ID == entry.cronID {
				next := cronEntry.Next
				nextRun = &next
				break
			}
		}
	}

	return &interfaces.ScheduledJobStatus{
		Name:        entry.name,
		Enabled:     entry.enabled,
		Schedule:    entry.schedule,
		Description: entry.description,
		LastRun:     entry.lastRun,
		NextRun:     nextRun,
		IsRunning:   entry.isRunning,
		LastError:   entry.lastError,
	}, nil
}

// GetAllJobStatuses returns all job statuses
func (s *Service) GetAllJobStatuses() map[string]*interfaces.ScheduledJobStatus {
	// Copy job names while holding lock to avoid concurrent map iteration
	s.jobMu.Lock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	s.jobMu.Unlock()

	// Build statuses without holding lock (GetJobStatus has its own locking)
	statuses := make(map[string]*interfaces.ScheduledJobStatus)
	for _, name := range names {
		status, err := s.GetJobStatus(name)
		if err == nil {
			statuses[name] = status
		}
	}

	return statuses
}

// executeJob wraps job execution with mutex, panic recovery, and status tracking
func (s *Service) executeJob(name string) {
	// Panic recovery
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job_name", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in job execution")

			s.jobMu.Lock()
			if entry, exists := s.jobs[name]; exists {
				entry.isRunning = false
				entry.lastError = fmt.Sprintf("panic: %v", r)
			}
			s.jobMu.Unlock()
		}
	}()

	// Acquire global mutex to prevent concurrent job execution
	s.globalMu.Lock()
	defer s.globalMu.Unlock()

	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		s.logger.Warn().
			Str("job_name", name).
			Msg("Job not found")
		return
	}

	entry.isRunning = true
	started := time.Now()
	handler := entry.handler
	s.jobMu.Unlock()

	s.logger.Debug().
		Str("job_name", name).
		Msg("Job execution started")

	err := handler()

	completionTime := time.Now()
	s.jobMu.Lock()
	entry.isRunning = false
	entry.lastRun = &completionTime
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Error().
			Str("job_name", name).
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("Job execution failed")
	} else {
		s.logger.Debug().
			Str("job_name", name).
			Dur("duration", time.Since(started)).
			Msg("Job execution completed")
	}
}
