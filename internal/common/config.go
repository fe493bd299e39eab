package common

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/shepard/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment     string             `toml:"environment"`       // "development" or "production"
	DeleteOnStartup []string           `toml:"delete_on_startup"` // Delete data categories on startup. Valid values: jobs, queue, kv (default: empty = delete nothing)
	Server          ServerConfig       `toml:"server"`
	Queue           QueueConfig        `toml:"queue"`
	Storage         StorageConfig      `toml:"storage"`
	Pipeline        PipelineConfig     `toml:"pipeline"`
	Authority       AuthorityConfig    `toml:"authority"`
	Verification    VerificationConfig `toml:"verification"`
	Maintenance     MaintenanceConfig  `toml:"maintenance"`
	Logging         LoggingConfig      `toml:"logging"`
	WebSocket       WebSocketConfig    `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host"`
}

type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`                  // e.g., "250ms" - how often workers poll for messages
	Concurrency       int    `toml:"concurrency" validate:"min=1"`   // Number of concurrent job workers
	VisibilityTimeout string `toml:"visibility_timeout"`             // e.g., "5m" - message visibility timeout for redelivery
	MaxReceive        int    `toml:"max_receive" validate:"min=1"`   // Max times a message can be received before dead-letter
	QueueName         string `toml:"queue_name" validate:"required"` // Queue name prefix in Badger
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
	GCInterval     string `toml:"gc_interval"`              // Value-log GC cadence, e.g., "5m" ("0" disables)
}

// PipelineConfig controls input routing and job lifecycle.
type PipelineConfig struct {
	SyncThresholdBytes int    `toml:"sync_threshold_bytes" validate:"min=1"` // Inputs at or below this size run synchronously
	ForceSyncCapBytes  int    `toml:"force_sync_cap_bytes" validate:"min=1"` // Largest input force_sync will accept
	MaxInputBytes      int    `toml:"max_input_bytes" validate:"min=1"`      // Inputs above this size are rejected
	SyncWallClock      string `toml:"sync_wall_clock"`                       // e.g., "30s" - sync requests running longer are promoted to async
	JobTTLSeconds      int    `toml:"job_ttl_seconds" validate:"min=60"`     // Retention for finished jobs and their results
}

// AuthorityConfig contains the citation authority API configuration.
type AuthorityConfig struct {
	BaseURL         string `toml:"base_url" validate:"required"`        // Authority API base URL
	APIKey          string `toml:"api_key"`                             // Token for the Authorization header (empty = unauthenticated)
	RateLimitPerMin int    `toml:"rate_limit_per_min" validate:"min=1"` // Global API request budget per minute
	Burst           int    `toml:"burst" validate:"min=1"`              // Token bucket burst capacity
	RequestTimeout  string `toml:"request_timeout"`                     // Per-request timeout, e.g., "20s"
	BatchTimeout    string `toml:"batch_timeout"`                       // Whole-batch timeout, e.g., "60s"
	BreakerCooldown string `toml:"breaker_cooldown"`                    // How long verification pauses after a rate-limit response
}

// VerificationConfig controls batching and fallback verification behavior.
type VerificationConfig struct {
	BatchSize            int                     `toml:"batch_size" validate:"min=1,max=50"` // Citations per lookup call (API caps at 50)
	MaxConcurrentBatches int                     `toml:"max_concurrent_batches" validate:"min=1"`
	MaxRetries           int                     `toml:"max_retries" validate:"min=0"` // Retries per failed batch call
	AlternateSources     []AlternateSourceConfig `toml:"alternate_sources"`
}

// AlternateSourceConfig describes a public fallback source queried when the
// primary authority cannot verify a citation.
type AlternateSourceConfig struct {
	Name        string `toml:"name"`         // Recorded as verification_source "alternate_source_<name>"
	URLTemplate string `toml:"url_template"` // Supports {citation}, {volume}, {reporter}, {page} placeholders
}

// MaintenanceConfig controls the background cleanup schedule.
type MaintenanceConfig struct {
	Enabled    bool   `toml:"enabled"`
	Schedule   string `toml:"schedule"`    // Cron schedule format (5 fields)
	StaleAfter string `toml:"stale_after"` // Running jobs without a progress heartbeat for this long are failed
}

type LoggingConfig struct {
	Level         string   `toml:"level"`           // "debug", "info", "warn", "error"
	Format        string   `toml:"format"`          // "json" or "text"
	Output        []string `toml:"output"`          // "stdout", "file"
	TimeFormat    string   `toml:"time_format"`     // Time format for logs (default: "15:04:05.000")
	MinEventLevel string   `toml:"min_event_level"` // Minimum log level to publish as events ("debug", "info", "warn", "error")
}

// WebSocketConfig contains configuration for WebSocket job streaming
type WebSocketConfig struct {
	MinLevel        string   `toml:"min_level"`        // Minimum log level to broadcast ("debug", "info", "warn", "error")
	ExcludePatterns []string `toml:"exclude_patterns"` // Log message patterns to exclude from broadcasting
	// Whitelist of event types to broadcast via WebSocket. Empty list allows all events.
	// Example: ["job_created", "job_progress", "job_completed"]
	AllowedEvents []string `toml:"allowed_events"`
	// Throttle intervals for high-frequency events. Map of event type to duration string.
	// Example: {"job_progress": "500ms"}
	ThrottleIntervals map[string]string `toml:"throttle_intervals"`
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in shepard.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development", // Default to development mode
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Queue: QueueConfig{
			PollInterval:      "250ms", // Aggressive polling so queued jobs start promptly
			Concurrency:       runtime.NumCPU(),
			VisibilityTimeout: "5m",
			MaxReceive:        3,
			QueueName:         "shepard_jobs",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:       "./data",
				GCInterval: "5m",
			},
		},
		Pipeline: PipelineConfig{
			SyncThresholdBytes: 5000,             // Inputs at or below 5000 bytes run synchronously
			ForceSyncCapBytes:  100 * 1024,       // force_sync accepts up to 100KB
			MaxInputBytes:      10 * 1024 * 1024, // 10MB hard cap on input size
			SyncWallClock:      "30s",            // Sync requests promote to async past this
			JobTTLSeconds:      86400,            // Finished jobs retained for 24 hours
		},
		Authority: AuthorityConfig{
			BaseURL:         "https://www.courtlistener.com/api/rest/v4",
			APIKey:          "", // User must provide API key (AUTHORITY_API_KEY or config)
			RateLimitPerMin: 180,
			Burst:           50,
			RequestTimeout:  "20s",
			BatchTimeout:    "60s",
			BreakerCooldown: "5m", // Pause verification for 5 minutes after a 429
		},
		Verification: VerificationConfig{
			BatchSize:            50, // Authority lookup endpoint caps at 50 citations per call
			MaxConcurrentBatches: 4,
			MaxRetries:           1,
			AlternateSources: []AlternateSourceConfig{
				{Name: "courtlistener", URLTemplate: "https://www.courtlistener.com/c/{reporter}/{volume}/{page}/"},
				{Name: "caselaw_access_project", URLTemplate: "https://cite.case.law/{reporter}/{volume}/{page}/"},
			},
		},
		Maintenance: MaintenanceConfig{
			Enabled:    true,
			Schedule:   "*/10 * * * *", // Sweep expired jobs every 10 minutes
			StaleAfter: "5m",           // Fail running jobs silent for 5 minutes
		},
		Logging: LoggingConfig{
			Level:         "info",                     // Info level for production (debug|info|warn|error)
			Format:        "text",                     // Human-readable text format (text|json)
			Output:        []string{"stdout", "file"}, // Log to both console and file
			MinEventLevel: "info",                     // Publish info and above as events
		},
		WebSocket: WebSocketConfig{
			MinLevel: "info", // Default: info level and above
			ExcludePatterns: []string{
				"WebSocket client connected",
				"WebSocket client disconnected",
				"HTTP request",
				"HTTP response",
				"Publishing Event",
			},
			// Empty AllowedEvents allows all events
			AllowedEvents: []string{},
			// Throttle high-frequency events to prevent WebSocket flooding on large documents
			ThrottleIntervals: map[string]string{
				"job_progress": "500ms", // Max 2 progress updates per second per job
			},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
// kvStorage can be nil (key reference replacement will be skipped)
func LoadFromFile(kvStorage interfaces.KeyValueStorage, path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles(kvStorage)
	}
	return LoadFromFiles(kvStorage, path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files. Priority system: CLI flags > Environment variables > Last config file > ... > First config file > Defaults
// kvStorage can be nil (key reference replacement will be skipped)
func LoadFromFiles(kvStorage interfaces.KeyValueStorage, paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Perform {key-name} replacement if KV storage is available
	if kvStorage != nil {
		ctx := context.Background()
		kvMap, err := kvStorage.GetAll(ctx)
		if err != nil {
			logger := arbor.NewLogger()
			logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
		} else {
			logger := arbor.NewLogger()
			if err := ReplaceInStruct(config, kvMap, logger); err != nil {
				logger.Warn().Err(err).Msg("Failed to replace key references in config")
			}
		}
	}

	// Apply environment variables (overrides all file configs and replacements)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: SHEPARD_ENV, fallback: GO_ENV)
	if env := os.Getenv("SHEPARD_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("SHEPARD_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SHEPARD_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Authority API configuration. The unprefixed names are the canonical
	// deployment variables; SHEPARD_ prefixed ones are accepted as aliases.
	if apiKey := os.Getenv("AUTHORITY_API_KEY"); apiKey != "" {
		config.Authority.APIKey = apiKey
	} else if apiKey := os.Getenv("SHEPARD_AUTHORITY_API_KEY"); apiKey != "" {
		config.Authority.APIKey = apiKey
	}
	if baseURL := os.Getenv("AUTHORITY_BASE_URL"); baseURL != "" {
		config.Authority.BaseURL = baseURL
	} else if baseURL := os.Getenv("SHEPARD_AUTHORITY_BASE_URL"); baseURL != "" {
		config.Authority.BaseURL = baseURL
	}
	if rateLimit := os.Getenv("RATE_LIMIT_PER_MIN"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil && rl > 0 {
			config.Authority.RateLimitPerMin = rl
		}
	}

	// Verification configuration
	if batchSize := os.Getenv("BATCH_SIZE"); batchSize != "" {
		if bs, err := strconv.Atoi(batchSize); err == nil && bs > 0 {
			config.Verification.BatchSize = bs
		}
	}

	// Pipeline configuration
	if threshold := os.Getenv("SYNC_THRESHOLD_BYTES"); threshold != "" {
		if t, err := strconv.Atoi(threshold); err == nil && t > 0 {
			config.Pipeline.SyncThresholdBytes = t
		}
	}
	if ttl := os.Getenv("JOB_TTL_SECONDS"); ttl != "" {
		if t, err := strconv.Atoi(ttl); err == nil && t > 0 {
			config.Pipeline.JobTTLSeconds = t
		}
	}

	// Queue configuration
	if concurrency := os.Getenv("WORKER_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Queue.Concurrency = c
		}
	}
	if pollInterval := os.Getenv("SHEPARD_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		config.Queue.PollInterval = pollInterval
	}
	if visibilityTimeout := os.Getenv("SHEPARD_QUEUE_VISIBILITY_TIMEOUT"); visibilityTimeout != "" {
		config.Queue.VisibilityTimeout = visibilityTimeout
	}
	if maxReceive := os.Getenv("SHEPARD_QUEUE_MAX_RECEIVE"); maxReceive != "" {
		if mr, err := strconv.Atoi(maxReceive); err == nil {
			config.Queue.MaxReceive = mr
		}
	}
	if queueName := os.Getenv("SHEPARD_QUEUE_NAME"); queueName != "" {
		config.Queue.QueueName = queueName
	}

	// Storage configuration
	if badgerPath := os.Getenv("SHEPARD_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("SHEPARD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("SHEPARD_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("SHEPARD_LOG_OUTPUT"); output != "" {
		// Split comma-separated output types
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if minEventLevel := os.Getenv("SHEPARD_LOG_MIN_EVENT_LEVEL"); minEventLevel != "" {
		config.Logging.MinEventLevel = minEventLevel
	}

	// WebSocket configuration
	if minLevel := os.Getenv("SHEPARD_WEBSOCKET_MIN_LEVEL"); minLevel != "" {
		config.WebSocket.MinLevel = minLevel
	}
	if allowedEvents := os.Getenv("SHEPARD_WEBSOCKET_ALLOWED_EVENTS"); allowedEvents != "" {
		// Split comma-separated event types
		events := []string{}
		for _, e := range splitString(allowedEvents, ",") {
			trimmed := trimSpace(e)
			if trimmed != "" {
				events = append(events, trimmed)
			}
		}
		if len(events) > 0 {
			config.WebSocket.AllowedEvents = events
		}
	}
	if progressThrottle := os.Getenv("SHEPARD_WEBSOCKET_THROTTLE_JOB_PROGRESS"); progressThrottle != "" {
		if _, err := time.ParseDuration(progressThrottle); err == nil {
			if config.WebSocket.ThrottleIntervals == nil {
				config.WebSocket.ThrottleIntervals = make(map[string]string)
			}
			config.WebSocket.ThrottleIntervals["job_progress"] = progressThrottle
		}
	}

	// Maintenance configuration
	if schedule := os.Getenv("SHEPARD_MAINTENANCE_SCHEDULE"); schedule != "" {
		config.Maintenance.Schedule = schedule
	}
	if staleAfter := os.Getenv("SHEPARD_MAINTENANCE_STALE_AFTER"); staleAfter != "" {
		if _, err := time.ParseDuration(staleAfter); err == nil {
			config.Maintenance.StaleAfter = staleAfter
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks structural constraints and duration fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"queue.poll_interval":        c.Queue.PollInterval,
		"queue.visibility_timeout":   c.Queue.VisibilityTimeout,
		"storage.badger.gc_interval": c.Storage.Badger.GCInterval,
		"pipeline.sync_wall_clock":   c.Pipeline.SyncWallClock,
		"authority.request_timeout":  c.Authority.RequestTimeout,
		"authority.batch_timeout":    c.Authority.BatchTimeout,
		"authority.breaker_cooldown": c.Authority.BreakerCooldown,
		"maintenance.stale_after":    c.Maintenance.StaleAfter,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if c.Pipeline.SyncThresholdBytes > c.Pipeline.ForceSyncCapBytes {
		return fmt.Errorf("pipeline.sync_threshold_bytes (%d) exceeds pipeline.force_sync_cap_bytes (%d)",
			c.Pipeline.SyncThresholdBytes, c.Pipeline.ForceSyncCapBytes)
	}
	if c.Pipeline.ForceSyncCapBytes > c.Pipeline.MaxInputBytes {
		return fmt.Errorf("pipeline.force_sync_cap_bytes (%d) exceeds pipeline.max_input_bytes (%d)",
			c.Pipeline.ForceSyncCapBytes, c.Pipeline.MaxInputBytes)
	}

	if c.Maintenance.Enabled {
		if err := ValidateMaintenanceSchedule(c.Maintenance.Schedule); err != nil {
			return fmt.Errorf("invalid maintenance.schedule: %w", err)
		}
	}

	return nil
}

// ResolveAuthorityAPIKey resolves the authority API key with environment variable priority
// Resolution order: environment variables → KV store → config fallback
// An empty result is not an error; the client sends unauthenticated requests without a key.
func ResolveAuthorityAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, configFallback string) string {
	// Environment variables have highest priority
	if envValue := os.Getenv("AUTHORITY_API_KEY"); envValue != "" {
		return envValue
	}
	if envValue := os.Getenv("SHEPARD_AUTHORITY_API_KEY"); envValue != "" {
		return envValue
	}

	// Try to resolve from KV store (medium priority - file-based variables)
	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, "authority_api_key")
		if err == nil && apiKey != "" {
			return apiKey
		}
	}

	// Fallback to config value (lowest priority)
	return configFallback
}

// DurationOr parses a duration string, returning fallback on empty or invalid input.
func DurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// JobTTL returns the configured job retention as a duration.
func (p PipelineConfig) JobTTL() time.Duration {
	if p.JobTTLSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(p.JobTTLSeconds) * time.Second
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// ValidateMaintenanceSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateMaintenanceSchedule(schedule string) error {
	// Parse the cron expression
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	// Check for minimum 5-minute interval
	// Validate minute field (first field in standard cron)
	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]

	// Check for patterns that violate 5-minute minimum
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	// Check for */n patterns where n < 5
	if strings.HasPrefix(minuteField, "*/") {
		intervalStr := strings.TrimPrefix(minuteField, "*/")
		interval, err := strconv.Atoi(intervalStr)
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// DeepCloneConfig creates a deep copy of the Config struct
// This is used to prevent mutations of the original config
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	// Clone the config struct (shallow copy first)
	clone := *c

	// Deep clone slice fields to prevent shared memory
	if len(c.DeleteOnStartup) > 0 {
		clone.DeleteOnStartup = make([]string, len(c.DeleteOnStartup))
		copy(clone.DeleteOnStartup, c.DeleteOnStartup)
	}

	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}

	if len(c.Verification.AlternateSources) > 0 {
		clone.Verification.AlternateSources = make([]AlternateSourceConfig, len(c.Verification.AlternateSources))
		copy(clone.Verification.AlternateSources, c.Verification.AlternateSources)
	}

	if len(c.WebSocket.ExcludePatterns) > 0 {
		clone.WebSocket.ExcludePatterns = make([]string, len(c.WebSocket.ExcludePatterns))
		copy(clone.WebSocket.ExcludePatterns, c.WebSocket.ExcludePatterns)
	}

	if len(c.WebSocket.AllowedEvents) > 0 {
		clone.WebSocket.AllowedEvents = make([]string, len(c.WebSocket.AllowedEvents))
		copy(clone.WebSocket.AllowedEvents, c.WebSocket.AllowedEvents)
	}

	if len(c.WebSocket.ThrottleIntervals) > 0 {
		clone.WebSocket.ThrottleIntervals = make(map[string]string, len(c.WebSocket.ThrottleIntervals))
		for k, v := range c.WebSocket.ThrottleIntervals {
			clone.WebSocket.ThrottleIntervals[k] = v
		}
	}

	return &clone
}
