package queue

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
)

// JobHandler is a function that handles a specific job type
type JobHandler func(ctx context.Context, msg *Message) error

// RetryPolicy controls what happens when a handler fails.
//
// Batch drivers run with a single attempt because failures are already
// isolated per item inside the batch; idempotent single-item jobs get a
// few attempts with backoff.
type RetryPolicy struct {
	MaxAttempts int           // Total attempts including the first (minimum 1)
	Backoff     time.Duration // Initial redelivery delay, doubled per attempt when Exponential
	Exponential bool
}

// SingleAttempt is the policy for batch drivers: no job-level retry
var SingleAttempt = RetryPolicy{MaxAttempts: 1}

type registration struct {
	handler JobHandler
	policy  RetryPolicy
}

// WorkerPool manages a pool of workers that process queue messages
type WorkerPool struct {
	queueMgr     *Manager
	handlers     map[string]registration
	concurrency  int
	pollInterval time.Duration
	logger       arbor.ILogger
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(queueMgr *Manager, concurrency int, pollInterval time.Duration, logger arbor.ILogger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &WorkerPool{
		queueMgr:     queueMgr,
		handlers:     make(map[string]registration),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// RegisterHandler registers a job type handler with its retry policy
func (wp *WorkerPool) RegisterHandler(jobType string, handler JobHandler, policy RetryPolicy) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	wp.handlers[jobType] = registration{handler: handler, policy: policy}
	wp.logger.Debug().
		Str("job_type", jobType).
		Int("max_attempts", policy.MaxAttempts).
		Msg("Job handler registered")
}

// Start starts the worker pool
func (wp *WorkerPool) Start() error {
	wp.logger.Info().
		Int("concurrency", wp.concurrency).
		Msg("Starting worker pool")

	for i := 0; i < wp.concurrency; i++ {
		go wp.worker(i)
	}

	return nil
}

// Stop gracefully stops the worker pool
func (wp *WorkerPool) Stop() error {
	wp.logger.Info().Msg("Stopping worker pool")
	wp.cancel()
	return nil
}

// worker is the main worker loop that processes messages
func (wp *WorkerPool) worker(workerID int) {
	// Stagger worker starts to reduce lock contention
	staggerDelay := (wp.pollInterval / time.Duration(wp.concurrency)) * time.Duration(workerID)
	if staggerDelay > 0 {
		time.Sleep(staggerDelay)
	}

	wp.logger.Debug().
		Int("worker_id", workerID).
		Msg("Worker started")

	ticker := time.NewTicker(wp.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopped")
			return

		case <-ticker.C:
			if err := wp.processMessage(workerID); err != nil && err != ErrNoMessage {
				wp.logger.Warn().
					Err(err).
					Int("worker_id", workerID).
					Msg("Error processing message")
			}
		}
	}
}

// processMessage receives and processes a single message
func (wp *WorkerPool) processMessage(workerID int) error {
	msg, err := wp.queueMgr.Receive(wp.ctx)
	if err != nil {
		return err
	}

	reg, exists := wp.handlers[msg.Body.Type]
	if !exists {
		wp.logger.Error().
			Str("type", msg.Body.Type).
			Str("message_id", msg.ID).
			Msg("No handler registered for job type")
		if delErr := msg.Done(); delErr != nil {
			wp.logger.Warn().Err(delErr).Msg("Failed to delete unknown job type message")
		}
		return nil
	}

	wp.logger.Debug().
		Str("message_id", msg.ID).
		Str("type", msg.Body.Type).
		Int("attempt", msg.ReceiveCount).
		Int("worker_id", workerID).
		Msg("Processing message")

	startTime := time.Now()
	handlerErr := reg.handler(wp.ctx, &msg.Body)
	duration := time.Since(startTime)

	if handlerErr != nil {
		wp.logger.Error().
			Err(handlerErr).
			Str("message_id", msg.ID).
			Str("type", msg.Body.Type).
			Dur("duration", duration).
			Int("attempt", msg.ReceiveCount).
			Msg("Job handler failed")

		if msg.ReceiveCount < reg.policy.MaxAttempts {
			delay := reg.policy.Backoff
			if reg.policy.Exponential && msg.ReceiveCount > 1 {
				delay = delay << uint(msg.ReceiveCount-1)
			}
			if err := msg.Release(delay); err != nil {
				wp.logger.Warn().
					Err(err).
					Str("message_id", msg.ID).
					Msg("Failed to release message for retry")
			}
			return nil
		}

		// Attempts exhausted
		if err := msg.Done(); err != nil {
			wp.logger.Warn().
				Err(err).
				Str("message_id", msg.ID).
				Msg("Failed to delete message after final failure")
		}
		return nil
	}

	wp.logger.Info().
		Str("message_id", msg.ID).
		Str("type", msg.Body.Type).
		Dur("duration", duration).
		Int("worker_id", workerID).
		Msg("Job completed successfully")

	if err := msg.Done(); err != nil {
		wp.logger.Warn().
			Err(err).
			Str("message_id", msg.ID).
			Msg("Failed to delete message after successful processing")
		return err
	}

	return nil
}
