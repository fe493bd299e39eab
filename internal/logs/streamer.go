// -----------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package logs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	arborlevels "github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/shepard/internal/common"
)

// Broadcast delivers one formatted log line to connected clients.
type Broadcast func(timestamp, level, message string)

// Streamer drains arbor's context channel and forwards filtered log lines
// to a broadcast sink (the WebSocket hub). Request tracing noise and
// sub-threshold levels are dropped before they reach clients.
type Streamer struct {
	broadcast Broadcast
	logger    arbor.ILogger
	channel   chan []arbormodels.LogEvent
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	minLevel  arbor.LogLevel
	exclude   []string
}

// NewStreamer creates a log streamer that filters per the WebSocket config
// and hands surviving lines to the broadcast sink.
func NewStreamer(cfg *common.WebSocketConfig, broadcast Broadcast, logger arbor.ILogger) *Streamer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Streamer{
		broadcast: broadcast,
		logger:    logger,
		channel:   make(chan []arbormodels.LogEvent, 10),
		ctx:       ctx,
		cancel:    cancel,
		minLevel:  parseLogLevel(""),
	}
	if cfg != nil {
		s.minLevel = parseLogLevel(cfg.MinLevel)
		s.exclude = cfg.ExcludePatterns
	}
	return s
}

// parseLogLevel converts a string log level to arbor.LogLevel
func parseLogLevel(levelStr string) arbor.LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return arbor.DebugLevel
	case "info":
		return arbor.InfoLevel
	case "warn", "warning":
		return arbor.WarnLevel
	case "error":
		return arbor.ErrorLevel
	default:
		return arbor.InfoLevel
	}
}

// convertTo3Letter converts full level names to 3-letter codes
func convertTo3Letter(level string) string {
	switch strings.ToUpper(level) {
	case "INFO":
		return "INF"
	case "WARN", "WARNING":
		return "WRN"
	case "ERROR":
		return "ERR"
	case "DEBUG":
		return "DBG"
	default:
		if len(level) == 3 {
			return strings.ToUpper(level)
		}
		return "INF"
	}
}

// GetChannel returns the channel for arbor to send log batches to.
// Register it with logger.SetChannel so derived loggers feed it too.
func (s *Streamer) GetChannel() chan []arbormodels.LogEvent {
	return s.channel
}

// Start launches the streaming goroutine
func (s *Streamer) Start() error {
	s.wg.Add(1)
	go s.consume()
	return nil
}

// Stop gracefully shuts down the streamer
func (s *Streamer) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info().Msg("Log streamer stopped")
	return nil
}

// consume processes log batches from arbor and broadcasts surviving lines
func (s *Streamer) consume() {
	defer s.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			// Logger without correlation ID avoids recursive channel processing
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Log streamer panic recovered")
		}
	}()

	for {
		select {
		case batch, ok := <-s.channel:
			if !ok {
				return
			}
			for _, event := range batch {
				if s.skip(event) {
					continue
				}
				s.broadcast(
					event.Timestamp.Format("15:04:05"),
					convertTo3Letter(event.Level.String()),
					formatMessage(event),
				)
			}

		case <-s.ctx.Done():
			return
		}
	}
}

// skip reports whether an event should be withheld from clients
func (s *Streamer) skip(event arbormodels.LogEvent) bool {
	if arborlevels.FromLogLevel(event.Level) < s.minLevel {
		return true
	}
	// Request tracing lines carry correlation IDs but are not job output
	if strings.HasPrefix(event.Message, "HTTP request") ||
		strings.Contains(event.Message, "WebSocket client") {
		return true
	}
	for _, pattern := range s.exclude {
		if pattern != "" && strings.Contains(event.Message, pattern) {
			return true
		}
	}
	return false
}

// formatMessage appends structured fields to the message as key=value pairs
func formatMessage(event arbormodels.LogEvent) string {
	if len(event.Fields) == 0 {
		return event.Message
	}

	keys := make([]string, 0, len(event.Fields))
	for key := range event.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	message := event.Message
	for _, key := range keys {
		message += fmt.Sprintf(" %s=%v", key, event.Fields[key])
	}
	return message
}
