package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shepard/internal/pipeline"
)

// handleExtractCitations implements the extract_citations tool
func handleExtractCitations(tv *pipeline.TextVerifier, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Parse text parameter (required)
		text, err := request.RequireString("text")
		if err != nil || strings.TrimSpace(text) == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: text parameter is required"),
				},
			}, nil
		}

		result, err := tv.ExtractDocument(text)
		if err != nil {
			logger.Error().Err(err).Msg("Extraction failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Extraction error: %v", err)),
				},
			}, nil
		}

		payload, err := formatResult(result)
		if err != nil {
			logger.Error().Err(err).Msg("Result encoding failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Encoding error: %v", err)),
				},
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(payload),
			},
		}, nil
	}
}

// handleVerifyCitations implements the verify_citations tool
func handleVerifyCitations(tv *pipeline.TextVerifier, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Parse text parameter (required)
		text, err := request.RequireString("text")
		if err != nil || strings.TrimSpace(text) == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: text parameter is required"),
				},
			}, nil
		}

		result, err := tv.VerifyDocument(ctx, text)
		if err != nil {
			logger.Error().Err(err).Msg("Verification failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Verification error: %v", err)),
				},
			}, nil
		}

		payload, err := formatResult(result)
		if err != nil {
			logger.Error().Err(err).Msg("Result encoding failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Encoding error: %v", err)),
				},
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(payload),
			},
		}, nil
	}
}

// handleGetJob implements the get_job tool. Job records live in the server
// process, so this proxies GET /api/jobs/{id} rather than opening the store.
func handleGetJob(baseURL string, httpClient *http.Client, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Parse job_id parameter (required)
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: job_id parameter is required"),
				},
			}, nil
		}

		endpoint := fmt.Sprintf("%s/api/jobs/%s", baseURL, url.PathEscape(jobID))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Request error: %v", err)),
				},
			}, nil
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("Job lookup failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Job lookup failed (is the Shepard server running at %s?): %v", baseURL, err)),
				},
			}, nil
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Failed to read job response: %v", err)),
				},
			}, nil
		}

		if resp.StatusCode == http.StatusNotFound {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Job not found: %s", jobID)),
				},
			}, nil
		}
		if resp.StatusCode != http.StatusOK {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Job lookup returned %d: %s", resp.StatusCode, string(body))),
				},
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatJobResponse(body)),
			},
		}, nil
	}
}
