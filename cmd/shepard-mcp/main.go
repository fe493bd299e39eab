package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/shepard/internal/authority"
	"github.com/ternarybob/shepard/internal/citations"
	"github.com/ternarybob/shepard/internal/common"
	"github.com/ternarybob/shepard/internal/pipeline"
	"github.com/ternarybob/shepard/internal/verify"
)

func main() {
	// Load configuration
	configPath := os.Getenv("SHEPARD_CONFIG")
	if configPath == "" {
		// Only use the default path when it exists; otherwise run on
		// built-in defaults so the MCP server works from any directory
		if _, err := os.Stat("shepard.toml"); err == nil {
			configPath = "shepard.toml"
		}
	}

	// Note: MCP server doesn't use KV storage, so nil is appropriate here
	config, err := common.LoadFromFile(nil, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize minimal logger for MCP server (console only, no file output)
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn") // Minimal logging to avoid cluttering MCP stdio

	// Extraction and verification run in-process against the authority API.
	// The job store belongs to the server process (Badger holds a single
	// process lock), so get_job proxies the server's HTTP API instead.
	apiKey := common.ResolveAuthorityAPIKey(context.Background(), nil, config.Authority.APIKey)
	client := authority.NewClient(apiKey,
		authority.WithBaseURL(config.Authority.BaseURL),
		authority.WithLogger(logger),
		authority.WithRateLimit(config.Authority.RateLimitPerMin, config.Authority.Burst),
		authority.WithRequestTimeout(common.DurationOr(config.Authority.RequestTimeout, 20*time.Second)),
		authority.WithBreakerCooldown(common.DurationOr(config.Authority.BreakerCooldown, 60*time.Second)),
	)

	extractor, err := citations.NewExtractor()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize citation extractor")
	}

	alternates := make([]verify.AlternateSource, 0, len(config.Verification.AlternateSources))
	for _, src := range config.Verification.AlternateSources {
		alternates = append(alternates, verify.AlternateSource{Name: src.Name, URLTemplate: src.URLTemplate})
	}
	verifier := verify.New(client, logger, verify.Options{
		BatchSize:            config.Verification.BatchSize,
		MaxConcurrentBatches: config.Verification.MaxConcurrentBatches,
		MaxRetries:           config.Verification.MaxRetries,
		BatchTimeout:         common.DurationOr(config.Authority.BatchTimeout, 60*time.Second),
		Alternates:           alternates,
	})

	textVerifier := pipeline.NewTextVerifier(extractor, verifier, logger)

	serverBaseURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)
	httpClient := &http.Client{Timeout: 15 * time.Second}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"shepard",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	// Register citation tools
	mcpServer.AddTool(createExtractCitationsTool(), handleExtractCitations(textVerifier, logger))
	mcpServer.AddTool(createVerifyCitationsTool(), handleVerifyCitations(textVerifier, logger))
	mcpServer.AddTool(createGetJobTool(), handleGetJob(serverBaseURL, httpClient, logger))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
