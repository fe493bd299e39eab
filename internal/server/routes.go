// -----------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (job status, progress, and log streaming)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Jobs (citation verification)
	mux.HandleFunc("/api/jobs", s.handleJobsRoute)  // GET (list), POST (submit)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // Handles /api/jobs/{id} and subpaths

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler) // GET - engine status
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler) // Graceful shutdown endpoint (dev mode)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobsRoute routes /api/jobs requests (list and submit)
func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.JobHandler.ListJobsHandler, s.app.JobHandler.SubmitJobHandler)
}

// handleJobRoutes routes job-related requests to the appropriate handler
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// POST /api/jobs/{id}/cancel
	if r.Method == http.MethodPost && strings.HasSuffix(path, "/cancel") {
		s.app.JobHandler.CancelJobHandler(w, r)
		return
	}

	// GET /api/jobs/{id}
	if r.Method == http.MethodGet && len(path) > len("/api/jobs/") {
		s.app.JobHandler.GetJobHandler(w, r)
		return
	}

	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
