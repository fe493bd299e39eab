package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ternarybob/shepard/internal/app"
)

// Server manages the HTTP server and routes
type Server struct {
	app          *app.App
	router       *http.ServeMux
	server       *http.Server
	shutdownChan chan<- struct{}
	shutdownOnce sync.Once
}

// New creates a new HTTP server with the given app
func New(application *app.App) *Server {
	s := &Server{
		app: application,
	}

	// Setup routes
	s.router = s.setupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withConditionalMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetShutdownChannel registers the channel closed when /api/shutdown is hit.
// The main loop selects on it alongside OS signals.
func (s *Server) SetShutdownChannel(ch chan<- struct{}) {
	s.shutdownChan = ch
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.app.Config.Server.Host, s.app.Config.Server.Port)

	s.app.Logger.Info().
		Str("address", addr).
		Msg("HTTP server starting")

	s.app.Logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d/api/jobs", s.app.Config.Server.Host, s.app.Config.Server.Port)).
		Msg("Citation verification API available")
	s.app.Logger.Info().
		Str("url", fmt.Sprintf("ws://%s:%d/ws", s.app.Config.Server.Host, s.app.Config.Server.Port)).
		Msg("Job streaming endpoint available")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}

// ShutdownHandler handles POST /api/shutdown (dev mode graceful stop)
func (s *Server) ShutdownHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.app.Logger.Warn().Str("remote", r.RemoteAddr).Msg("Shutdown requested via API")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"status":"shutting_down"}`))

	if s.shutdownChan != nil {
		s.shutdownOnce.Do(func() {
			close(s.shutdownChan)
		})
	}
}
