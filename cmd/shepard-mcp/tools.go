package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createExtractCitationsTool returns the extract_citations tool definition
func createExtractCitationsTool() mcp.Tool {
	return mcp.NewTool("extract_citations",
		mcp.WithDescription("Extract legal citations from document text without verifying them (clusters parallel citations, makes no authority API calls)"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Document text to scan for reporter citations"),
		),
	)
}

// createVerifyCitationsTool returns the verify_citations tool definition
func createVerifyCitationsTool() mcp.Tool {
	return mcp.NewTool("verify_citations",
		mcp.WithDescription("Extract, cluster, and verify legal citations against the citation authority; returns clusters with canonical case names, dates, and URLs"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Document text whose citations should be verified"),
		),
	)
}

// createGetJobTool returns the get_job tool definition
func createGetJobTool() mcp.Tool {
	return mcp.NewTool("get_job",
		mcp.WithDescription("Fetch a verification job from the running Shepard server by ID (status, progress, and result when complete)"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job ID (format: job_{uuid})"),
		),
	)
}
