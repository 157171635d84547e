package interfaces

import "time"

// ScheduledJob describes one registered batch driver
type ScheduledJob struct {
	Name        string
	Schedule    string // Cron expression
	Description string
	Enabled     bool
	LastRun     *time.Time
	NextRun     *time.Time
	LastError   string
}

// SchedulerService fires registered batch drivers on independent cron
// schedules. Drivers never run concurrently with themselves; the scheduler
// skips a tick when the previous run is still in flight.
type SchedulerService interface {
	Register(name, schedule, description string, handler func() error) error
	Start() error
	Stop() error
	Jobs() []ScheduledJob
}
