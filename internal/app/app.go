package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/praeco/internal/common"
	"github.com/ternarybob/praeco/internal/interfaces"
	"github.com/ternarybob/praeco/internal/jobs"
	"github.com/ternarybob/praeco/internal/queue"
	storagebadger "github.com/ternarybob/praeco/internal/storage/badger"

	"github.com/ternarybob/praeco/internal/services/classifier"
	"github.com/ternarybob/praeco/internal/services/complaints"
	"github.com/ternarybob/praeco/internal/services/generation"
	"github.com/ternarybob/praeco/internal/services/intervention"
	"github.com/ternarybob/praeco/internal/services/llm"
	"github.com/ternarybob/praeco/internal/services/mailer"
	"github.com/ternarybob/praeco/internal/services/moderation"
	"github.com/ternarybob/praeco/internal/services/scheduler"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager *storagebadger.Manager
	QueueManager   *queue.Manager
	WorkerPool     *queue.WorkerPool

	LLMService    interfaces.LLMService
	MailerService *mailer.Service

	ClassifierService   *classifier.Service
	ModerationService   *moderation.Service
	GenerationService   *generation.Service
	ComplaintService    *complaints.Service
	InterventionService *intervention.Service

	SchedulerService interfaces.SchedulerService
	JobHandlers      *jobs.Handlers
}

// New initializes the application with all dependencies.
// Order matters: storage first, then the AI provider, then the services
// that depend on both, then the queue workers and scheduler that drive
// them.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := storagebadger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	queueManager, err := queue.NewManager(
		storageManager.DB().Store().Badger(),
		cfg.Queue.QueueName,
		common.MustDuration(cfg.Queue.VisibilityTimeout),
		cfg.Queue.MaxReceive,
	)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}
	app.QueueManager = queueManager

	llmService, err := llm.NewLLMService(cfg, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	app.LLMService = llmService

	app.MailerService = mailer.NewService(storageManager.KeyValue(), logger)

	app.ClassifierService = classifier.NewService(
		storageManager.RawItems(),
		llmService,
		&cfg.Classification,
		logger,
	)

	app.ModerationService = moderation.NewService(
		storageManager.ModerationLogs(),
		storageManager.Contents(),
		storageManager.Users(),
		llmService,
		app.MailerService,
		&cfg.Moderation,
		logger,
	)

	app.GenerationService = generation.NewService(
		storageManager.RawItems(),
		storageManager.Contents(),
		queueManager,
		llmService,
		app.ModerationService,
		&cfg.Generation,
		logger,
	)

	app.ComplaintService = complaints.NewService(
		storageManager.Complaints(),
		storageManager.ModerationLogs(),
		logger,
	)

	app.InterventionService = intervention.NewService(
		storageManager.InterventionLogs(),
		storageManager.Contents(),
		storageManager.Complaints(),
		storageManager.Users(),
		app.MailerService,
		&cfg.Intervention,
		logger,
	)

	app.JobHandlers = jobs.NewHandlers(
		app.ClassifierService,
		app.GenerationService,
		app.InterventionService,
		storageManager.RawItems(),
		storageManager.KeyValue(),
		cfg,
		logger,
	)

	app.WorkerPool = queue.NewWorkerPool(
		queueManager,
		cfg.Queue.Concurrency,
		common.MustDuration(cfg.Queue.PollInterval),
		logger,
	)
	app.JobHandlers.RegisterAll(app.WorkerPool)

	app.SchedulerService = scheduler.NewService(logger)
	if err := app.registerBatchDrivers(); err != nil {
		storageManager.Close()
		return nil, err
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("llm_provider", string(cfg.LLM.DefaultProvider)).
		Bool("moderation_enabled", cfg.Moderation.Enabled).
		Msg("Application initialized")

	return app, nil
}

// registerBatchDrivers puts the batch drivers on their cron schedules.
// Each tick enqueues a queue job so runs flow through the worker pool's
// retry and visibility machinery instead of running inline in the
// scheduler goroutine.
func (a *App) registerBatchDrivers() error {
	drivers := []struct {
		jobType     string
		schedule    string
		description string
	}{
		{jobs.TypeClassifyBatch, a.Config.Scheduler.ClassifySchedule, "Classify pending raw items"},
		{jobs.TypeProcessBatch, a.Config.Scheduler.ProcessSchedule, "Route and generate classified items"},
		{jobs.TypeInterventionScan, a.Config.Scheduler.InterventionSchedule, "Evaluate comment health of visible articles"},
		{jobs.TypeReclaimStale, a.Config.Scheduler.ReclaimSchedule, "Reclaim items stuck in processing"},
	}

	for _, d := range drivers {
		jobType := d.jobType
		err := a.SchedulerService.Register(jobType, d.schedule, d.description, func() error {
			return a.QueueManager.Enqueue(context.Background(), queue.Message{Type: jobType})
		})
		if err != nil {
			return fmt.Errorf("failed to register %s driver: %w", jobType, err)
		}
	}
	return nil
}

// Start launches the worker pool and scheduler
func (a *App) Start() error {
	if err := a.WorkerPool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	if a.Config.Scheduler.Enabled {
		if err := a.SchedulerService.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		a.Logger.Warn().Msg("Scheduler disabled, batch drivers will not fire")
	}

	a.Logger.Info().Msg("Application started")
	return nil
}

// Shutdown stops components in reverse dependency order
func (a *App) Shutdown() {
	a.Logger.Info().Msg("Shutting down application")

	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.WorkerPool != nil {
		if err := a.WorkerPool.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop worker pool")
		}
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	if a.QueueManager != nil {
		if err := a.QueueManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close queue manager")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}

	a.Logger.Info().Msg("Shutdown complete")
}
