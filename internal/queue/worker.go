package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/models"
)

// WorkerPool manages a pool of workers that process queue messages.
// Handlers are resolved by job type; a handler that returns an error has
// already recorded the failure on the job record, so the message is acked
// either way. Redelivery exists for crashed workers, not failed handlers.
type WorkerPool struct {
	queueMgr interfaces.QueueManager
	config   Config
	handlers map[string]interfaces.JobHandler
	mu       sync.RWMutex
	logger   arbor.ILogger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(queueMgr interfaces.QueueManager, config Config, logger arbor.ILogger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if config.PollInterval <= 0 {
		config.PollInterval = 250 * time.Millisecond
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}

	return &WorkerPool{
		queueMgr: queueMgr,
		config:   config,
		handlers: make(map[string]interfaces.JobHandler),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RegisterHandler registers a job type handler
func (wp *WorkerPool) RegisterHandler(jobType string, handler interfaces.JobHandler) {
	wp.mu.Lock()
	wp.handlers[jobType] = handler
	wp.mu.Unlock()

	wp.logger.Debug().
		Str("job_type", jobType).
		Msg("Job handler registered")
}

// Start starts the worker pool
func (wp *WorkerPool) Start() error {
	wp.logger.Info().
		Int("concurrency", wp.config.Concurrency).
		Msg("Starting worker pool")

	for i := 0; i < wp.config.Concurrency; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	return nil
}

// Stop gracefully stops the worker pool and waits for in-flight jobs
func (wp *WorkerPool) Stop() error {
	wp.logger.Info().Msg("Stopping worker pool")
	wp.cancel()
	wp.wg.Wait()
	return nil
}

// worker is the main worker loop that processes messages
func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	// Stagger worker starts to reduce database lock contention.
	// Spread workers evenly across the poll interval.
	staggerDelay := (wp.config.PollInterval / time.Duration(wp.config.Concurrency)) * time.Duration(workerID)
	if staggerDelay > 0 {
		select {
		case <-time.After(staggerDelay):
		case <-wp.ctx.Done():
			return
		}
	}

	wp.logger.Debug().
		Int("worker_id", workerID).
		Dur("stagger_delay", staggerDelay).
		Msg("Worker started")

	ticker := time.NewTicker(wp.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopped")
			return

		case <-ticker.C:
			if err := wp.processMessage(workerID); err != nil {
				if errors.Is(err, models.ErrNoMessage) {
					continue
				}
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
	delivery, err := wp.queueMgr.Receive(wp.ctx)
	if err != nil {
		return err
	}

	msg := delivery.Message

	wp.logger.Debug().
		Str("delivery_id", delivery.ID).
		Str("job_id", msg.JobID).
		Str("type", msg.Type).
		Int("receive_count", delivery.ReceiveCount).
		Int("worker_id", workerID).
		Msg("Processing message")

	wp.mu.RLock()
	handler, exists := wp.handlers[msg.Type]
	wp.mu.RUnlock()
	if !exists {
		wp.logger.Error().
			Str("type", msg.Type).
			Str("job_id", msg.JobID).
			Msg("No handler registered for job type")
		// Drop messages nothing can process
		if ackErr := delivery.Ack(); ackErr != nil {
			wp.logger.Warn().Err(ackErr).Msg("Failed to ack unroutable message")
		}
		return nil
	}

	startTime := time.Now()
	handlerErr := handler(wp.ctx, msg)
	duration := time.Since(startTime)

	if handlerErr != nil {
		wp.logger.Error().
			Err(handlerErr).
			Str("job_id", msg.JobID).
			Str("type", msg.Type).
			Dur("duration", duration).
			Int("worker_id", workerID).
			Msg("Job handler failed")
	} else {
		wp.logger.Info().
			Str("job_id", msg.JobID).
			Str("type", msg.Type).
			Dur("duration", duration).
			Int("worker_id", workerID).
			Msg("Job completed")
	}

	// Ack on both paths: the handler owns failure bookkeeping on the job
	// record. An unacked message means the worker died before this line.
	if err := delivery.Ack(); err != nil {
		wp.logger.Warn().
			Err(err).
			Str("job_id", msg.JobID).
			Msg("Failed to ack message after processing")
		return err
	}

	return handlerErr
}
