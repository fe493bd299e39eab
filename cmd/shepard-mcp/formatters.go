package main

import (
	"bytes"
	"encoding/json"

	"github.com/ternarybob/shepard/internal/models"
)

// formatResult renders the result payload as indented JSON. Tool output
// carries the same shape the HTTP API returns for a completed job.
func formatResult(result *models.Result) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatJobResponse re-indents a raw job payload fetched from the server so
// tool output stays readable. Responses that are not JSON pass through as-is.
func formatJobResponse(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}
