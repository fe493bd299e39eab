package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/shepard/internal/models"
)

// QueueDelivery is one received message plus its acknowledgement handle.
// Ack removes the message from the queue; an unacked message becomes
// visible again after the visibility timeout.
type QueueDelivery struct {
	ID           string
	Message      *models.QueueMessage
	ReceiveCount int
	Ack          func() error
}

// DeadLetterHandler is invoked when a message exhausts its receive budget
// and is dropped from the queue.
type DeadLetterHandler func(ctx context.Context, msg *models.QueueMessage, receiveCount int)

// QueueManager manages the persistent message queue
type QueueManager interface {
	Start() error
	Stop() error
	Enqueue(ctx context.Context, msg *models.QueueMessage) error
	EnqueueWithDelay(ctx context.Context, msg *models.QueueMessage, delay time.Duration) error

	// Receive claims the next visible message. Returns models.ErrNoMessage
	// when the queue is empty.
	Receive(ctx context.Context) (*QueueDelivery, error)

	// Extend pushes out the visibility deadline of a claimed message
	Extend(ctx context.Context, deliveryID string, duration time.Duration) error

	// SetDeadLetterHandler registers the hook called for poison messages
	SetDeadLetterHandler(handler DeadLetterHandler)

	GetQueueLength(ctx context.Context) (int, error)
	GetQueueStats(ctx context.Context) (map[string]interface{}, error)
}

// JobHandler processes one queue message
type JobHandler func(ctx context.Context, msg *models.QueueMessage) error

// WorkerPool manages concurrent job processing
type WorkerPool interface {
	RegisterHandler(jobType string, handler JobHandler)
	Start() error
	Stop() error
}
