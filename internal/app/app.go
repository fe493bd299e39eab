// -----------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shepard/internal/authority"
	"github.com/ternarybob/shepard/internal/citations"
	"github.com/ternarybob/shepard/internal/common"
	"github.com/ternarybob/shepard/internal/handlers"
	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/logs"
	"github.com/ternarybob/shepard/internal/models"
	"github.com/ternarybob/shepard/internal/pipeline"
	"github.com/ternarybob/shepard/internal/queue"
	"github.com/ternarybob/shepard/internal/services/events"
	jobsvc "github.com/ternarybob/shepard/internal/services/jobs"
	"github.com/ternarybob/shepard/internal/services/scheduler"
	"github.com/ternarybob/shepard/internal/services/status"
	badgerstorage "github.com/ternarybob/shepard/internal/storage/badger"
	"github.com/ternarybob/shepard/internal/verify"
	"github.com/timshannon/badgerhold/v4"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	ctx            context.Context
	cancelCtx      context.CancelFunc
	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService     interfaces.EventService
	SchedulerService interfaces.SchedulerService

	// Job execution
	QueueManager interfaces.QueueManager
	WorkerPool   *queue.WorkerPool
	JobService   *jobsvc.Service

	// Citation pipeline
	AuthorityClient *authority.Client
	Extractor       *citations.Extractor
	Verifier        *verify.Verifier
	PipelineService *pipeline.Service
	TextVerifier    *pipeline.TextVerifier

	// Runtime health
	StatusService *status.Service

	// Log streaming to WebSocket clients
	LogStreamer *logs.Streamer

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	WSHandler     *handlers.WebSocketHandler
	JobHandler    *handlers.JobHandler
	StatusHandler *handlers.StatusHandler

	eventSubscriber *handlers.EventSubscriber
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	// Initialize database
	if err := app.initDatabase(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Event service and WebSocket hub come first so later services can
	// stream job status from the moment they start.
	app.EventService = events.NewService(app.Logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.Logger)
	app.eventSubscriber = handlers.NewEventSubscriber(app.WSHandler, app.EventService, app.Logger, &app.Config.WebSocket)

	// Arbor's context channel feeds the streamer; the root logger and its
	// WithCorrelationId derivatives all emit into it.
	app.LogStreamer = logs.NewStreamer(&app.Config.WebSocket, func(timestamp, level, message string) {
		app.WSHandler.BroadcastLog(handlers.LogEntry{
			Timestamp: timestamp,
			Level:     level,
			Message:   message,
		})
	}, app.Logger)
	if err := app.LogStreamer.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start log streamer: %w", err)
	}
	app.Logger.SetChannel("context", app.LogStreamer.GetChannel())

	// Initialize services
	if err := app.initServices(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	if err := app.initHandlers(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Workers start after handlers so a submission racing startup always
	// finds its handler registered.
	if err := app.WorkerPool.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start worker pool: %w", err)
	}
	app.Logger.Debug().Msg("Worker pool started")

	logger.Info().
		Int("workers", cfg.Queue.Concurrency).
		Str("authority", cfg.Authority.BaseURL).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badgerstorage.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	ctx := context.Background()

	// Load variables from .env so API keys stay out of shepard.toml
	if err := a.StorageManager.LoadEnvFile(ctx, ".env"); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load .env file")
	}

	// Startup deletion of selected data categories
	for _, category := range a.Config.DeleteOnStartup {
		var err error
		switch category {
		case "jobs":
			err = a.StorageManager.JobStorage().ClearAll(ctx)
		case "kv":
			err = a.StorageManager.KVStorage().DeleteAll(ctx)
		case "queue":
			// Queue keys are dropped in initServices once the queue name is bound
			continue
		default:
			a.Logger.Warn().Str("category", category).Msg("Unknown delete_on_startup category, skipping")
			continue
		}
		if err != nil {
			a.Logger.Warn().Err(err).Str("category", category).Msg("Startup deletion failed")
		} else {
			a.Logger.Info().Str("category", category).Msg("Startup deletion complete")
		}
	}

	// Seed default key/value pairs so a fresh install resolves config
	// references without manual setup. Existing keys are not overwritten.
	for _, kv := range common.GetDefaultKVValues() {
		if _, err := a.StorageManager.KVStorage().Get(ctx, kv.Key); err == nil {
			continue
		}
		if err := a.StorageManager.KVStorage().Set(ctx, kv.Key, kv.Value, kv.Description); err != nil {
			a.Logger.Warn().Err(err).Str("key", kv.Key).Msg("Failed to seed default value")
		}
	}

	// Replace {key-name} references in config with KV store values.
	// Must happen before services bind config values.
	kvMap, err := a.StorageManager.KVStorage().GetAll(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
	} else if len(kvMap) > 0 {
		if err := common.ReplaceInStruct(a.Config, kvMap, a.Logger); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to replace key references in config")
		} else {
			a.Logger.Debug().Int("keys", len(kvMap)).Msg("Applied key/value replacements to config")
		}
	}

	return nil
}

// initServices initializes all business services in dependency order.
//
// VERIFICATION JOB ARCHITECTURE:
// 1. QueueManager (Badger-backed) - persistent job queue
// 2. JobService - job records, input text, lifecycle transitions
// 3. PipelineService - routing, extraction, clustering, verification
// 4. WorkerPool - drains the queue and runs the pipeline per job
func (a *App) initServices() error {
	// The queue shares the job store's Badger DB.
	// StorageManager.DB() returns *badgerhold.Store; the queue needs the
	// underlying *badger.DB.
	store, ok := a.StorageManager.DB().(*badgerhold.Store)
	if !ok {
		return fmt.Errorf("storage manager is not backed by BadgerDB (got %T)", a.StorageManager.DB())
	}
	badgerDB := store.Badger()

	for _, category := range a.Config.DeleteOnStartup {
		if category == "queue" {
			prefix := fmt.Sprintf("queue:%s:", a.Config.Queue.QueueName)
			if err := badgerDB.DropPrefix([]byte(prefix)); err != nil {
				a.Logger.Warn().Err(err).Str("category", category).Msg("Startup deletion failed")
			} else {
				a.Logger.Info().Str("category", category).Msg("Startup deletion complete")
			}
		}
	}

	queueMgr, err := queue.NewBadgerManager(
		badgerDB,
		a.Config.Queue.QueueName,
		common.DurationOr(a.Config.Queue.VisibilityTimeout, 5*time.Minute),
		a.Config.Queue.MaxReceive,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize queue manager: %w", err)
	}
	if err := queueMgr.Start(); err != nil {
		return fmt.Errorf("failed to start queue manager: %w", err)
	}
	a.QueueManager = queueMgr
	a.Logger.Debug().Str("queue_name", a.Config.Queue.QueueName).Msg("Queue manager initialized")

	// Job service owns job records, stored input text, and lifecycle
	// transitions
	a.JobService = jobsvc.NewService(
		a.StorageManager.JobStorage(),
		a.StorageManager.KVStorage(),
		a.QueueManager,
		a.EventService,
		a.Config.Pipeline.JobTTL(),
		a.Logger,
	)

	// A poison message fails its job so clients see a terminal state
	// instead of a silent drop
	queueMgr.SetDeadLetterHandler(func(ctx context.Context, msg *models.QueueMessage, receiveCount int) {
		a.Logger.Error().
			Str("job_id", msg.JobID).
			Int("receive_count", receiveCount).
			Msg("Queue message dead-lettered")
		if err := a.JobService.Fail(ctx, msg.JobID, models.ErrReasonInternal, nil); err != nil {
			a.Logger.Warn().Err(err).Str("job_id", msg.JobID).Msg("Failed to fail dead-lettered job")
		}
	})

	// Authority client with rate limiting and a breaker shared by all jobs
	apiKey := common.ResolveAuthorityAPIKey(context.Background(), a.StorageManager.KVStorage(), a.Config.Authority.APIKey)
	if apiKey == "" {
		a.Logger.Warn().Msg("No authority API key configured, requests are unauthenticated")
	}
	a.AuthorityClient = authority.NewClient(apiKey,
		authority.WithBaseURL(a.Config.Authority.BaseURL),
		authority.WithLogger(a.Logger),
		authority.WithRateLimit(a.Config.Authority.RateLimitPerMin, a.Config.Authority.Burst),
		authority.WithRequestTimeout(common.DurationOr(a.Config.Authority.RequestTimeout, 20*time.Second)),
		authority.WithBreakerCooldown(common.DurationOr(a.Config.Authority.BreakerCooldown, 60*time.Second)),
	)

	extractor, err := citations.NewExtractor()
	if err != nil {
		return fmt.Errorf("failed to initialize citation extractor: %w", err)
	}
	a.Extractor = extractor

	alternates := make([]verify.AlternateSource, 0, len(a.Config.Verification.AlternateSources))
	for _, src := range a.Config.Verification.AlternateSources {
		alternates = append(alternates, verify.AlternateSource{
			Name:        src.Name,
			URLTemplate: src.URLTemplate,
		})
	}
	a.Verifier = verify.New(a.AuthorityClient, a.Logger, verify.Options{
		BatchSize:            a.Config.Verification.BatchSize,
		MaxConcurrentBatches: a.Config.Verification.MaxConcurrentBatches,
		MaxRetries:           a.Config.Verification.MaxRetries,
		BatchTimeout:         common.DurationOr(a.Config.Authority.BatchTimeout, 60*time.Second),
		Alternates:           alternates,
	})

	a.PipelineService = pipeline.NewService(a.JobService, a.Extractor, a.Verifier, a.Logger, pipeline.Options{
		SyncThresholdBytes: a.Config.Pipeline.SyncThresholdBytes,
		ForceSyncCapBytes:  a.Config.Pipeline.ForceSyncCapBytes,
		MaxInputBytes:      a.Config.Pipeline.MaxInputBytes,
		SyncWallClock:      common.DurationOr(a.Config.Pipeline.SyncWallClock, 30*time.Second),
	})
	a.TextVerifier = pipeline.NewTextVerifier(a.Extractor, a.Verifier, a.Logger)
	a.Logger.Debug().Msg("Citation pipeline initialized")

	// Worker pool drains the verification queue
	a.WorkerPool = queue.NewWorkerPool(a.QueueManager, queue.Config{
		PollInterval:      common.DurationOr(a.Config.Queue.PollInterval, 250*time.Millisecond),
		Concurrency:       a.Config.Queue.Concurrency,
		VisibilityTimeout: common.DurationOr(a.Config.Queue.VisibilityTimeout, 5*time.Minute),
		MaxReceive:        a.Config.Queue.MaxReceive,
	}, a.Logger)
	a.WorkerPool.RegisterHandler(models.JobTypeCitationVerification, a.handleVerificationMessage)

	// Maintenance scheduler sweeps expired jobs and fails stale ones
	a.SchedulerService = scheduler.NewService(a.Logger)
	if a.Config.Maintenance.Enabled {
		if err := a.SchedulerService.RegisterJob(
			"expired_job_sweep",
			a.Config.Maintenance.Schedule,
			"Remove finished jobs past their retention window",
			a.sweepExpiredJobs,
		); err != nil {
			return fmt.Errorf("failed to register expired job sweep: %w", err)
		}
		if err := a.SchedulerService.RegisterJob(
			"stale_job_detector",
			a.Config.Maintenance.Schedule,
			"Fail running jobs without a recent progress heartbeat",
			a.failStaleJobs,
		); err != nil {
			return fmt.Errorf("failed to register stale job detector: %w", err)
		}
		if err := a.SchedulerService.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		a.Logger.Debug().Str("schedule", a.Config.Maintenance.Schedule).Msg("Maintenance scheduler started")
	}

	// Status service reads queue depth, job counts, and breaker state
	a.StatusService = status.NewService(a.QueueManager, a.StorageManager.JobStorage(), a.AuthorityClient, a.Logger)

	return nil
}

// initHandlers initializes HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler()
	a.JobHandler = handlers.NewJobHandler(a.PipelineService, a.JobService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.StatusService, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
	return nil
}

// sweepExpiredJobs removes finished jobs past their retention window
func (a *App) sweepExpiredJobs() error {
	removed, err := a.JobService.SweepExpired(a.ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		a.Logger.Info().Int("removed", removed).Msg("Expired jobs swept")
	}
	return nil
}

// failStaleJobs fails running jobs whose progress heartbeat stopped
func (a *App) failStaleJobs() error {
	staleAfter := common.DurationOr(a.Config.Maintenance.StaleAfter, 5*time.Minute)
	failed, err := a.JobService.FailStale(a.ctx, staleAfter)
	if err != nil {
		return err
	}
	if failed > 0 {
		a.Logger.Warn().Int("failed", failed).Msg("Stale jobs failed")
	}
	return nil
}

// handleVerificationMessage runs one queued verification job. The pipeline
// owns all job bookkeeping, so an error return still acks the message;
// redelivery exists for crashed workers, not failed handlers.
func (a *App) handleVerificationMessage(ctx context.Context, msg *models.QueueMessage) error {
	job, err := a.JobService.Get(ctx, msg.JobID)
	if err != nil {
		return fmt.Errorf("queued job %s not found: %w", msg.JobID, err)
	}
	if job.IsTerminal() {
		a.Logger.Debug().
			Str("job_id", job.ID).
			Str("status", string(job.Status)).
			Msg("Skipping already-terminal job")
		return nil
	}

	text, err := a.JobService.InputText(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("input text for job %s: %w", job.ID, err)
	}

	_, err = a.PipelineService.Run(ctx, job, text)
	return err
}

// Close closes all application resources
func (a *App) Close() error {
	// Stop scheduled maintenance first so no sweep runs mid-shutdown
	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	// Stop workers before the queue so in-flight jobs finish cleanly
	if a.WorkerPool != nil {
		if err := a.WorkerPool.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop worker pool")
		}
	}

	if a.QueueManager != nil {
		if err := a.QueueManager.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop queue manager")
		}
	}

	// Cancel contexts handed to maintenance jobs
	if a.cancelCtx != nil {
		a.cancelCtx()
	}

	if a.LogStreamer != nil {
		if err := a.LogStreamer.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop log streamer")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	// Close storage last; every service above may still flush to it
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
