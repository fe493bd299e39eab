package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shepard/internal/common"
	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/services/events"
)

func startHub(t *testing.T) (*WebSocketHandler, string, func()) {
	t.Helper()
	handler := NewWebSocketHandler(arbor.NewLogger())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return handler, wsURL, server.Close
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	return conn
}

// readType reads messages until one of the given type arrives, skipping
// the hello and any interleaved log lines.
func readType(t *testing.T, conn *websocket.Conn, msgType string, timeout time.Duration) (WSMessage, bool) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return WSMessage{}, false
		}
		if msg.Type == msgType {
			return msg, true
		}
	}
}

func waitForClients(t *testing.T, handler *WebSocketHandler, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if handler.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d connected clients, got %d", want, handler.ClientCount())
}

func decodePayload(t *testing.T, msg WSMessage, out interface{}) {
	t.Helper()
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		t.Fatalf("Failed to remarshal payload: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
}

func TestWebSocketHello(t *testing.T) {
	_, wsURL, closeServer := startHub(t)
	defer closeServer()

	conn := dial(t, wsURL)
	defer conn.Close()

	msg, ok := readType(t, conn, "connected", 2*time.Second)
	if !ok {
		t.Fatal("Did not receive hello message")
	}

	payload := msg.Payload.(map[string]interface{})
	if payload["server_instance_id"] == "" {
		t.Error("Hello message missing server_instance_id")
	}
}

func TestBroadcastFanOut(t *testing.T) {
	handler, wsURL, closeServer := startHub(t)
	defer closeServer()

	numSubscribers := 5
	subscribers := make([]*websocket.Conn, numSubscribers)
	for i := 0; i < numSubscribers; i++ {
		subscribers[i] = dial(t, wsURL)
		defer subscribers[i].Close()
	}

	waitForClients(t, handler, numSubscribers)

	handler.Broadcast("job.status", JobStatusUpdate{
		JobID:       "job-1",
		Status:      "completed",
		ProgressPct: 100,
		Timestamp:   time.Now(),
	})

	var wg sync.WaitGroup
	failures := make(chan string, numSubscribers)
	for i, conn := range subscribers {
		wg.Add(1)
		go func(idx int, c *websocket.Conn) {
			defer wg.Done()
			msg, ok := readType(t, c, "job.status", 3*time.Second)
			if !ok {
				failures <- "no job.status message"
				return
			}
			var update JobStatusUpdate
			decodePayload(t, msg, &update)
			if update.JobID != "job-1" || update.Status != "completed" {
				failures <- "wrong payload"
			}
		}(i, conn)
	}
	wg.Wait()
	close(failures)

	for f := range failures {
		t.Errorf("Subscriber failed: %s", f)
	}
}

func TestClientCleanupOnDisconnect(t *testing.T) {
	handler, wsURL, closeServer := startHub(t)
	defer closeServer()

	conn := dial(t, wsURL)
	waitForClients(t, handler, 1)

	conn.Close()
	waitForClients(t, handler, 0)
}

func TestEventSubscriberStatusChange(t *testing.T) {
	handler, wsURL, closeServer := startHub(t)
	defer closeServer()

	logger := arbor.NewLogger()
	eventService := events.NewService(logger)
	NewEventSubscriber(handler, eventService, logger, nil)

	conn := dial(t, wsURL)
	defer conn.Close()
	waitForClients(t, handler, 1)

	eventService.PublishSync(context.Background(), interfaces.Event{
		Type: interfaces.EventJobCompleted,
		Payload: map[string]interface{}{
			"job_id":       "job-2",
			"status":       "completed",
			"progress_pct": 100,
			"current_step": "",
		},
	})

	msg, ok := readType(t, conn, "job.status", 3*time.Second)
	if !ok {
		t.Fatal("Did not receive job.status message")
	}
	var update JobStatusUpdate
	decodePayload(t, msg, &update)
	if update.JobID != "job-2" {
		t.Errorf("Expected job_id 'job-2', got %q", update.JobID)
	}
	if update.Status != "completed" {
		t.Errorf("Expected status 'completed', got %q", update.Status)
	}
	if update.Note != "" {
		t.Errorf("Completion must not carry a promotion note, got %q", update.Note)
	}
}

func TestEventSubscriberPromotedNote(t *testing.T) {
	handler, wsURL, closeServer := startHub(t)
	defer closeServer()

	logger := arbor.NewLogger()
	eventService := events.NewService(logger)
	NewEventSubscriber(handler, eventService, logger, nil)

	conn := dial(t, wsURL)
	defer conn.Close()
	waitForClients(t, handler, 1)

	eventService.PublishSync(context.Background(), interfaces.Event{
		Type: interfaces.EventJobPromoted,
		Payload: map[string]interface{}{
			"job_id":       "job-3",
			"status":       "queued",
			"progress_pct": 40,
			"current_step": "verifying_batch_1_of_3",
		},
	})

	msg, ok := readType(t, conn, "job.status", 3*time.Second)
	if !ok {
		t.Fatal("Did not receive job.status message")
	}
	var update JobStatusUpdate
	decodePayload(t, msg, &update)
	if update.Note != "async_promoted" {
		t.Errorf("Expected note 'async_promoted', got %q", update.Note)
	}
	if update.ProgressPct != 40 {
		t.Errorf("Promotion must keep reported progress, got %d", update.ProgressPct)
	}
}

func TestEventSubscriberProgressThrottle(t *testing.T) {
	handler, wsURL, closeServer := startHub(t)
	defer closeServer()

	logger := arbor.NewLogger()
	eventService := events.NewService(logger)
	NewEventSubscriber(handler, eventService, logger, &common.WebSocketConfig{
		ThrottleIntervals: map[string]string{"job_progress": "1h"},
	})

	conn := dial(t, wsURL)
	defer conn.Close()
	waitForClients(t, handler, 1)

	for i := 1; i <= 3; i++ {
		eventService.PublishSync(context.Background(), interfaces.Event{
			Type: interfaces.EventJobProgress,
			Payload: map[string]interface{}{
				"job_id":       "job-4",
				"status":       "running",
				"progress_pct": 25 * i,
				"current_step": "verifying_batch_1_of_3",
			},
		})
	}

	if _, ok := readType(t, conn, "job.progress", 2*time.Second); !ok {
		t.Fatal("First progress tick should pass the throttle")
	}
	if _, ok := readType(t, conn, "job.progress", 300*time.Millisecond); ok {
		t.Error("Throttled progress ticks must not be broadcast")
	}
}

func TestEventSubscriberWhitelist(t *testing.T) {
	handler, wsURL, closeServer := startHub(t)
	defer closeServer()

	logger := arbor.NewLogger()
	eventService := events.NewService(logger)
	NewEventSubscriber(handler, eventService, logger, &common.WebSocketConfig{
		AllowedEvents: []string{"job_progress"},
	})

	conn := dial(t, wsURL)
	defer conn.Close()
	waitForClients(t, handler, 1)

	eventService.PublishSync(context.Background(), interfaces.Event{
		Type:    interfaces.EventJobCompleted,
		Payload: map[string]interface{}{"job_id": "job-5", "status": "completed"},
	})
	eventService.PublishSync(context.Background(), interfaces.Event{
		Type: interfaces.EventJobProgress,
		Payload: map[string]interface{}{
			"job_id":       "job-5",
			"progress_pct": 50,
			"current_step": "verifying_batch_1_of_2",
		},
	})

	// The completion is filtered out, so the first substantive message
	// must be the progress tick.
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Read failed before progress message arrived: %v", err)
		}
		if msg.Type == "connected" || msg.Type == "log" {
			continue
		}
		if msg.Type == "job.status" {
			t.Fatal("Whitelist should have filtered the job.status broadcast")
		}
		if msg.Type == "job.progress" {
			return
		}
	}
}
