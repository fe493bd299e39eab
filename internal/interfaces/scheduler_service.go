package interfaces

import "time"

// ScheduledJobStatus represents the current status of a scheduled maintenance job
type ScheduledJobStatus struct {
	Name        string
	Enabled     bool
	Schedule    string
	Description string
	LastRun     *time.Time
	NextRun     *time.Time
	IsRunning   bool
	LastError   string
}

// SchedulerService manages cron-based maintenance scheduling
type SchedulerService interface {
	// Start the scheduler; registered jobs begin firing on their schedules
	Start() error

	// Stop the scheduler
	Stop() error

	// IsRunning returns true if scheduler is active
	IsRunning() bool

	// RegisterJob registers a new job with the scheduler
	RegisterJob(name string, schedule string, description string, handler func() error) error

	// TriggerJobNow manually runs a registered job outside its schedule
	TriggerJobNow(name string) error

	// EnableJob enables a disabled job
	EnableJob(name string) error

	// DisableJob disables an enabled job
	DisableJob(name string) error

	// GetJobStatus returns the status of a specific job
	GetJobStatus(name string) (*ScheduledJobStatus, error)

	// GetAllJobStatuses returns all job statuses
	GetAllJobStatuses() map[string]*ScheduledJobStatus
}
