package handlers

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shepard/internal/common"
	"github.com/ternarybob/shepard/internal/interfaces"
	"golang.org/x/time/rate"
)

// EventSubscriber bridges job lifecycle events from the bus onto the
// WebSocket hub. Filtering and throttling live here so the hub stays a
// plain fan-out.
type EventSubscriber struct {
	handler       *WebSocketHandler
	eventService  interfaces.EventService
	logger        arbor.ILogger
	allowedEvents map[string]bool          // Whitelist of events to broadcast (empty = allow all)
	throttlers    map[string]*rate.Limiter // Rate limiters for high-frequency events
}

// NewEventSubscriber creates the subscriber and registers it for all job
// lifecycle events. Throttle intervals and the event whitelist come from
// the websocket config section.
func NewEventSubscriber(handler *WebSocketHandler, eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *EventSubscriber {
	s := &EventSubscriber{
		handler:      handler,
		eventService: eventService,
		logger:       logger,
	}

	s.allowedEvents = make(map[string]bool)
	if config != nil && len(config.AllowedEvents) > 0 {
		for _, eventType := range config.AllowedEvents {
			s.allowedEvents[eventType] = true
		}
	}

	s.throttlers = make(map[string]*rate.Limiter)
	if config != nil && len(config.ThrottleIntervals) > 0 {
		for eventType, intervalStr := range config.ThrottleIntervals {
			duration, err := time.ParseDuration(intervalStr)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("event_type", eventType).
					Str("interval", intervalStr).
					Msg("Failed to parse throttle interval, skipping throttler")
				continue
			}
			s.throttlers[eventType] = rate.NewLimiter(rate.Every(duration), 1)
			logger.Debug().
				Str("event_type", eventType).
				Str("interval", intervalStr).
				Msg("Throttler initialized for event type")
		}
	}

	if eventService == nil {
		logger.Warn().Msg("EventSubscriber created with nil eventService, subscriptions skipped")
		return s
	}

	s.SubscribeAll()
	return s
}

// SubscribeAll registers subscriptions for all job lifecycle events
func (s *EventSubscriber) SubscribeAll() {
	s.eventService.Subscribe(interfaces.EventJobCreated, s.handleStatusChange)
	s.eventService.Subscribe(interfaces.EventJobStarted, s.handleStatusChange)
	s.eventService.Subscribe(interfaces.EventJobCompleted, s.handleStatusChange)
	s.eventService.Subscribe(interfaces.EventJobFailed, s.handleStatusChange)
	s.eventService.Subscribe(interfaces.EventJobPromoted, s.handleStatusChange)
	s.eventService.Subscribe(interfaces.EventJobProgress, s.handleProgress)

	s.logger.Info().Msg("EventSubscriber registered for job lifecycle events")
}

// handleStatusChange broadcasts a lifecycle transition as "job.status".
func (s *EventSubscriber) handleStatusChange(ctx context.Context, event interfaces.Event) error {
	if !s.shouldBroadcast(string(event.Type)) {
		return nil
	}

	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Invalid job event payload type")
		return nil
	}

	update := JobStatusUpdate{
		JobID:       getString(payload, "job_id"),
		Status:      getString(payload, "status"),
		ProgressPct: getInt(payload, "progress_pct"),
		CurrentStep: getString(payload, "current_step"),
		Error:       getString(payload, "error"),
		Timestamp:   time.Now(),
	}
	if event.Type == interfaces.EventJobPromoted {
		update.Note = "async_promoted"
	}

	s.handler.Broadcast("job.status", update)
	return nil
}

// handleProgress broadcasts a progress tick as "job.progress". Large
// documents tick on every verification batch, so this path is throttled.
func (s *EventSubscriber) handleProgress(ctx context.Context, event interfaces.Event) error {
	if !s.shouldBroadcast(string(event.Type)) {
		return nil
	}

	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		s.logger.Warn().Msg("Invalid job progress event payload type")
		return nil
	}

	s.handler.Broadcast("job.progress", JobProgressUpdate{
		JobID:       getString(payload, "job_id"),
		ProgressPct: getInt(payload, "progress_pct"),
		CurrentStep: getString(payload, "current_step"),
		Timestamp:   time.Now(),
	})
	return nil
}

// shouldBroadcast applies the whitelist and per-type throttle.
func (s *EventSubscriber) shouldBroadcast(eventType string) bool {
	if len(s.allowedEvents) > 0 && !s.allowedEvents[eventType] {
		return false
	}

	if limiter, ok := s.throttlers[eventType]; ok {
		if !limiter.Allow() {
			return false
		}
	}

	return true
}
