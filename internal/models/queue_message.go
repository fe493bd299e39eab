package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoMessage is returned when the queue is empty
var ErrNoMessage = errors.New("no messages in queue")

// Job type routed through the queue. Workers resolve handlers by this stable
// name; the queue never carries function values.
const JobTypeCitationVerification = "citation_verification"

// QueueMessage is the structure stored in the queue.
// Keep it simple - just enough to route the job. Large inputs live in the
// key/value store under the job id, not in the message.
type QueueMessage struct {
	JobID   string          `json:"job_id"`  // References jobs.id
	Type    string          `json:"type"`    // Job type for handler routing
	Payload json.RawMessage `json:"payload"` // Job-specific data (passed through)
}

// NewQueueMessage builds a routed message for a job.
func NewQueueMessage(jobID, jobType string, payload interface{}) (*QueueMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal queue payload: %w", err)
	}
	return &QueueMessage{JobID: jobID, Type: jobType, Payload: raw}, nil
}

// ToJSON serializes the message for queue storage.
func (m *QueueMessage) ToJSON() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal queue message: %w", err)
	}
	return data, nil
}

// QueueMessageFromJSON deserializes a queue message.
func QueueMessageFromJSON(data []byte) (*QueueMessage, error) {
	var msg QueueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue message: %w", err)
	}
	if msg.JobID == "" {
		return nil, errors.New("queue message missing job_id")
	}
	return &msg, nil
}
