package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/praeco/internal/interfaces"
)

// jobEntry represents a registered batch driver with metadata
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

// Service fires registered batch drivers on independent cron schedules.
// A driver never overlaps itself: a tick that arrives while the previous
// run is still in flight is skipped.
type Service struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	jobMu   sync.Mutex // Protects jobs map and per-entry state
	jobs    map[string]*jobEntry
	running bool
}

// NewService creates a new scheduler service
func NewService(logger arbor.ILogger) interfaces.SchedulerService {
	return &Service{
		cron:   cron.New(),
		logger: logger,
		jobs:   make(map[string]*jobEntry),
	}
}

// Register adds a batch driver on its own cron schedule.
// Must be called before Start.
func (s *Service) Register(name, schedule, description string, handler func() error) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	entry := &jobEntry{
		name:        name,
		schedule:    schedule,
		description: description,
		handler:     handler,
		enabled:     true,
	}

	cronID, err := s.cron.AddFunc(schedule, func() { s.runJob(name) })
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q for job %q: %w", schedule, name, err)
	}
	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info().
		Str("job", name).
		Str("schedule", schedule).
		Msg("Batch driver registered")

	return nil
}

// Start begins firing registered drivers
func (s *Service) Start() error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Int("jobs", len(s.jobs)).
		Msg("Scheduler started")
	return nil
}

// Stop halts the scheduler. In-flight runs finish; no new ticks fire.
func (s *Service) Stop() error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if !s.running {
		return nil
	}

	s.cron.Stop()
	s.running = false

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// Jobs returns a snapshot of all registered drivers
func (s *Service) Jobs() []interfaces.ScheduledJob {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	out := make([]interfaces.ScheduledJob, 0, len(s.jobs))
	for _, entry := range s.jobs {
		job := interfaces.ScheduledJob{
			Name:        entry.name,
			Schedule:    entry.schedule,
			Description: entry.description,
			Enabled:     entry.enabled,
			LastRun:     entry.lastRun,
			LastError:   entry.lastError,
		}
		if s.running {
			next := s.cron.Entry(entry.cronID).Next
			if !next.IsZero() {
				job.NextRun = &next
			}
		}
		out = append(out, job)
	}
	return out
}

// runJob executes one driver tick with the skip-if-running guard
func (s *Service) runJob(name string) {
	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists || !entry.enabled {
		s.jobMu.Unlock()
		return
	}
	if entry.isRunning {
		s.jobMu.Unlock()
		s.logger.Warn().
			Str("job", name).
			Msg("Previous run still in flight, skipping tick")
		return
	}
	entry.isRunning = true
	now := time.Now()
	entry.lastRun = &now
	handler := entry.handler
	s.jobMu.Unlock()

	startTime := time.Now()
	err := handler()
	duration := time.Since(startTime)

	s.jobMu.Lock()
	entry.isRunning = false
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("job", name).
			Dur("duration", duration).
			Msg("Batch driver failed")
		return
	}

	s.logger.Debug().
		Str("job", name).
		Dur("duration", duration).
		Msg("Batch driver completed")
}
