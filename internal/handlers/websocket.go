// -----------------------------------------------------------------------
// Last Modified: Tuesday, 10th February 2026 11:20:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shepard/internal/common"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope for every message sent to clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// LogEntry is one streamed log line.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// JobProgressUpdate is the payload of "job.progress" messages.
type JobProgressUpdate struct {
	JobID       string    `json:"job_id"`
	ProgressPct int       `json:"progress_pct"`
	CurrentStep string    `json:"current_step"`
	Timestamp   time.Time `json:"timestamp"`
}

// JobStatusUpdate is the payload of "job.status" messages, sent on every
// lifecycle transition (created, started, completed, failed, promoted).
type JobStatusUpdate struct {
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	ProgressPct int       `json:"progress_pct"`
	CurrentStep string    `json:"current_step,omitempty"`
	Error       string    `json:"error,omitempty"`
	Note        string    `json:"note,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// WebSocketHandler is the connection hub. It owns client registration and
// fan-out; what gets broadcast is decided by the EventSubscriber and the
// log writer feeding it.
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	serverInstanceID string
}

// NewWebSocketHandler creates the hub. The server instance id is minted per
// process start so clients can detect restarts and drop stale job views.
func NewWebSocketHandler(logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: uuid.New().String(),
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized")
	return h
}

// HandleWebSocket handles WebSocket connections
// GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("total", total).Msg("WebSocket client connected")

	h.sendHello(conn)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Int("remaining", remaining).Msg("WebSocket client disconnected")
	}()

	// Read loop keeps the connection alive; clients only listen.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// sendHello greets a new client with the server identity.
func (h *WebSocketHandler) sendHello(conn *websocket.Conn) {
	msg := WSMessage{
		Type: "connected",
		Payload: map[string]string{
			"server_instance_id": h.serverInstanceID,
			"version":            common.GetVersion(),
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal hello message")
		return
	}

	h.mu.RLock()
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()
	if mutex == nil {
		return
	}

	mutex.Lock()
	conn.WriteMessage(websocket.TextMessage, data)
	mutex.Unlock()
}

// Broadcast sends one message to every connected client. Slow clients block
// only their own connection mutex, never the hub lock.
func (h *WebSocketHandler) Broadcast(msgType string, payload interface{}) {
	data, err := json.Marshal(WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Str("type", msgType).Msg("Failed to send message to client")
		}
	}
}

// BroadcastLog streams one log line to all clients as a "log" message.
func (h *WebSocketHandler) BroadcastLog(entry LogEntry) {
	h.Broadcast("log", entry)
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
