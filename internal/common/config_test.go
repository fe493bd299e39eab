package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 5000, config.Pipeline.SyncThresholdBytes)
	assert.Equal(t, 100*1024, config.Pipeline.ForceSyncCapBytes)
	assert.Equal(t, 10*1024*1024, config.Pipeline.MaxInputBytes)
	assert.Equal(t, 86400, config.Pipeline.JobTTLSeconds)
	assert.Equal(t, 180, config.Authority.RateLimitPerMin)
	assert.Equal(t, 50, config.Authority.Burst)
	assert.Equal(t, 50, config.Verification.BatchSize)
	assert.Equal(t, 4, config.Verification.MaxConcurrentBatches)
	assert.Equal(t, 1, config.Verification.MaxRetries)
	assert.GreaterOrEqual(t, config.Queue.Concurrency, 1)

	require.NoError(t, config.Validate())
}

func TestLoadFromFiles_MergesAndOverrides(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(`
[server]
port = 9090

[authority]
base_url = "https://base.example.com"
rate_limit_per_min = 60
`), 0644))

	override := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(override, []byte(`
[authority]
base_url = "https://override.example.com"
`), 0644))

	config, err := LoadFromFiles(nil, base, override)
	require.NoError(t, err)

	// Later file wins, untouched values survive from the earlier file
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "https://override.example.com", config.Authority.BaseURL)
	assert.Equal(t, 60, config.Authority.RateLimitPerMin)

	// Defaults remain where no file spoke
	assert.Equal(t, 5000, config.Pipeline.SyncThresholdBytes)
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles(nil, "/nonexistent/path/shepard.toml")
	require.Error(t, err)
}

func TestApplyEnvOverrides_CanonicalNames(t *testing.T) {
	t.Setenv("AUTHORITY_API_KEY", "tok-env")
	t.Setenv("AUTHORITY_BASE_URL", "https://env.example.com")
	t.Setenv("RATE_LIMIT_PER_MIN", "90")
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("SYNC_THRESHOLD_BYTES", "2500")
	t.Setenv("JOB_TTL_SECONDS", "3600")
	t.Setenv("WORKER_CONCURRENCY", "7")

	config := NewDefaultConfig()
	applyEnvOverrides(config)

	assert.Equal(t, "tok-env", config.Authority.APIKey)
	assert.Equal(t, "https://env.example.com", config.Authority.BaseURL)
	assert.Equal(t, 90, config.Authority.RateLimitPerMin)
	assert.Equal(t, 25, config.Verification.BatchSize)
	assert.Equal(t, 2500, config.Pipeline.SyncThresholdBytes)
	assert.Equal(t, 3600, config.Pipeline.JobTTLSeconds)
	assert.Equal(t, 7, config.Queue.Concurrency)
}

func TestApplyEnvOverrides_PrefixedAliases(t *testing.T) {
	t.Setenv("SHEPARD_AUTHORITY_API_KEY", "tok-alias")
	t.Setenv("SHEPARD_SERVER_PORT", "7070")
	t.Setenv("SHEPARD_LOG_LEVEL", "debug")

	config := NewDefaultConfig()
	applyEnvOverrides(config)

	assert.Equal(t, "tok-alias", config.Authority.APIKey)
	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestApplyEnvOverrides_CanonicalBeatsAlias(t *testing.T) {
	t.Setenv("AUTHORITY_API_KEY", "tok-canonical")
	t.Setenv("SHEPARD_AUTHORITY_API_KEY", "tok-alias")

	config := NewDefaultConfig()
	applyEnvOverrides(config)

	assert.Equal(t, "tok-canonical", config.Authority.APIKey)
}

func TestApplyEnvOverrides_IgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")
	t.Setenv("BATCH_SIZE", "-5")

	config := NewDefaultConfig()
	applyEnvOverrides(config)

	assert.Equal(t, 180, config.Authority.RateLimitPerMin)
	assert.Equal(t, 50, config.Verification.BatchSize)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 9999, "0.0.0.0")
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)

	// Zero values leave config untouched
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestConfigValidate_Thresholds(t *testing.T) {
	config := NewDefaultConfig()
	config.Pipeline.SyncThresholdBytes = 200 * 1024
	config.Pipeline.ForceSyncCapBytes = 100 * 1024

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync_threshold_bytes")
}

func TestConfigValidate_BadDuration(t *testing.T) {
	config := NewDefaultConfig()
	config.Authority.RequestTimeout = "twenty seconds"

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authority.request_timeout")
}

func TestConfigValidate_BatchSizeCap(t *testing.T) {
	config := NewDefaultConfig()
	config.Verification.BatchSize = 51

	require.Error(t, config.Validate())
}

func TestConfigValidate_Schedule(t *testing.T) {
	config := NewDefaultConfig()
	config.Maintenance.Schedule = "* * * * *"

	err := config.Validate()
	require.Error(t, err)

	config.Maintenance.Schedule = "*/2 * * * *"
	require.Error(t, config.Validate())

	config.Maintenance.Schedule = "*/10 * * * *"
	require.NoError(t, config.Validate())

	// Disabled maintenance skips schedule validation
	config.Maintenance.Schedule = "* * * * *"
	config.Maintenance.Enabled = false
	require.NoError(t, config.Validate())
}

func TestResolveAuthorityAPIKey_Priority(t *testing.T) {
	t.Setenv("AUTHORITY_API_KEY", "")
	t.Setenv("SHEPARD_AUTHORITY_API_KEY", "")

	// Config fallback when nothing else is set
	key := ResolveAuthorityAPIKey(t.Context(), nil, "tok-config")
	assert.Equal(t, "tok-config", key)

	// Environment wins over config
	t.Setenv("AUTHORITY_API_KEY", "tok-env")
	key = ResolveAuthorityAPIKey(t.Context(), nil, "tok-config")
	assert.Equal(t, "tok-env", key)
}

func TestResolveAuthorityAPIKey_EmptyIsNotAnError(t *testing.T) {
	t.Setenv("AUTHORITY_API_KEY", "")
	t.Setenv("SHEPARD_AUTHORITY_API_KEY", "")

	key := ResolveAuthorityAPIKey(t.Context(), nil, "")
	assert.Equal(t, "", key)
}

func TestConfigReplacement_EndToEnd(t *testing.T) {
	logger := arbor.NewLogger()
	kvMap := map[string]string{
		"authority-api-key": "tok-from-kv",
	}

	config := NewDefaultConfig()
	config.Authority.APIKey = "{authority-api-key}"

	require.NoError(t, ReplaceInStruct(config, kvMap, logger))
	assert.Equal(t, "tok-from-kv", config.Authority.APIKey)
}

func TestDeepCloneConfig(t *testing.T) {
	config := NewDefaultConfig()
	config.DeleteOnStartup = []string{"jobs"}
	config.Verification.AlternateSources = []AlternateSourceConfig{
		{Name: "caselaw", URLTemplate: "https://example.org/{volume}/{reporter}/{page}"},
	}

	clone := DeepCloneConfig(config)
	require.NotNil(t, clone)

	clone.DeleteOnStartup[0] = "queue"
	clone.Verification.AlternateSources[0].Name = "changed"
	clone.WebSocket.ThrottleIntervals["job_progress"] = "10s"

	assert.Equal(t, "jobs", config.DeleteOnStartup[0])
	assert.Equal(t, "caselaw", config.Verification.AlternateSources[0].Name)
	assert.Equal(t, "500ms", config.WebSocket.ThrottleIntervals["job_progress"])
}

func TestDeepCloneConfig_Nil(t *testing.T) {
	assert.Nil(t, DeepCloneConfig(nil))
}

func TestDurationOr(t *testing.T) {
	assert.Equal(t, "20s", DurationOr("20s", 0).String())
	assert.Equal(t, "1m0s", DurationOr("", time.Minute).String())
	assert.Equal(t, "1m0s", DurationOr("garbage", time.Minute).String())
}

func TestJobTTL(t *testing.T) {
	p := PipelineConfig{JobTTLSeconds: 3600}
	assert.Equal(t, time.Hour, p.JobTTL())

	p.JobTTLSeconds = 0
	assert.Equal(t, 24*time.Hour, p.JobTTL())
}
