package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/models"
)

// envelope is the internal structure stored in Badger. The body is the
// routed message; the wrapper carries queue bookkeeping.
type envelope struct {
	ID           string              `json:"id"`
	Body         models.QueueMessage `json:"body"`
	EnqueuedAt   time.Time           `json:"enqueued_at"`
	VisibleAt    time.Time           `json:"visible_at"`
	ReceiveCount int                 `json:"receive_count"`
}

// BadgerManager implements a persistent queue using BadgerDB.
//
// Two key families per queue:
//
//	queue:{name}:msg:{id}                      -> envelope JSON
//	queue:{name}:index:{visibleAt:020d}:{id}   -> empty
//
// The index keys sort by visibility time, so Receive scans the prefix
// and stops at the first future timestamp. Claiming a message moves its
// index key forward by the visibility timeout; an acked message deletes
// both keys. A message received more than maxReceive times is dropped
// and handed to the dead-letter handler.
type BadgerManager struct {
	db                *badger.DB
	queueName         string
	visibilityTimeout time.Duration
	maxReceive        int

	mu         sync.RWMutex
	deadLetter interfaces.DeadLetterHandler
}

// NewBadgerManager creates a new Badger-backed queue manager
func NewBadgerManager(db *badger.DB, queueName string, visibilityTimeout time.Duration, maxReceive int) (*BadgerManager, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute // Default
	}
	if maxReceive <= 0 {
		maxReceive = 3 // Default
	}

	return &BadgerManager{
		db:                db,
		queueName:         queueName,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
	}, nil
}

// Start is a no-op; the underlying Badger DB is managed by the storage layer
func (m *BadgerManager) Start() error {
	return nil
}

// Stop is a no-op; the underlying Badger DB is managed by the storage layer
func (m *BadgerManager) Stop() error {
	return nil
}

// SetDeadLetterHandler registers the hook called when a message exhausts
// its receive budget and is dropped
func (m *BadgerManager) SetDeadLetterHandler(handler interfaces.DeadLetterHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadLetter = handler
}

// Enqueue adds a message to the queue, immediately visible
func (m *BadgerManager) Enqueue(ctx context.Context, msg *models.QueueMessage) error {
	return m.EnqueueWithDelay(ctx, msg, 0)
}

// EnqueueWithDelay adds a message that becomes visible after the delay
func (m *BadgerManager) EnqueueWithDelay(ctx context.Context, msg *models.QueueMessage, delay time.Duration) error {
	if msg == nil {
		return errors.New("message is required")
	}
	if msg.JobID == "" {
		return errors.New("message job_id is required")
	}

	env := envelope{
		ID:           uuid.New().String(),
		Body:         *msg,
		EnqueuedAt:   time.Now(),
		VisibleAt:    time.Now().Add(delay),
		ReceiveCount: 0,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return m.db.Update(func(txn *badger.Txn) error {
		// 1. Store message data
		if err := txn.Set(m.msgKey(env.ID), data); err != nil {
			return err
		}

		// 2. Add to visibility index
		return txn.Set(m.indexKey(env.VisibleAt, env.ID), []byte{})
	})
}

// Receive pulls the next visible message from the queue. Returns
// models.ErrNoMessage when nothing is ready. The returned delivery's Ack
// removes the message; an unacked message reappears after the visibility
// timeout, and a message past its receive budget is dropped to the
// dead-letter handler.
func (m *BadgerManager) Receive(ctx context.Context) (*interfaces.QueueDelivery, error) {
	var claimed envelope
	var poisoned []envelope

	err := m.db.Update(func(txn *badger.Txn) error {
		// Iterate over visibility index to find a ready message
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:index:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		found := false
		var oldIndexKey []byte

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)

			ts, id, err := m.parseIndexKey(key)
			if err != nil {
				continue // Skip invalid keys
			}

			// Index keys sort by timestamp, so the first future entry
			// means nothing else is ready either
			if ts.After(now) {
				break
			}

			msgKey := m.msgKey(id)
			itemMsg, err := txn.Get(msgKey)
			if err != nil {
				if err == badger.ErrKeyNotFound {
					// Index without message, clean up the orphan entry
					if err := txn.Delete(key); err != nil {
						return err
					}
					continue
				}
				return err
			}

			var env envelope
			if err := itemMsg.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return err
			}

			// Drop poison messages that keep reappearing without an ack
			if env.ReceiveCount >= m.maxReceive {
				if err := txn.Delete(key); err != nil {
					return err
				}
				if err := txn.Delete(msgKey); err != nil {
					return err
				}
				poisoned = append(poisoned, env)
				continue
			}

			found = true
			claimed = env
			oldIndexKey = key
			break
		}

		if !found {
			return models.ErrNoMessage
		}

		// Claim: bump receive count and push visibility forward
		claimed.ReceiveCount++
		claimed.VisibleAt = time.Now().Add(m.visibilityTimeout)

		newData, err := json.Marshal(claimed)
		if err != nil {
			return err
		}
		if err := txn.Set(m.msgKey(claimed.ID), newData); err != nil {
			return err
		}

		if err := txn.Delete(oldIndexKey); err != nil {
			return err
		}
		return txn.Set(m.indexKey(claimed.VisibleAt, claimed.ID), []byte{})
	})

	// Dead-letter callbacks run outside the transaction
	m.mu.RLock()
	handler := m.deadLetter
	m.mu.RUnlock()
	if handler != nil {
		for i := range poisoned {
			body := poisoned[i].Body
			handler(ctx, &body, poisoned[i].ReceiveCount)
		}
	}

	if err != nil {
		return nil, err
	}

	msgID := claimed.ID
	body := claimed.Body
	delivery := &interfaces.QueueDelivery{
		ID:           msgID,
		Message:      &body,
		ReceiveCount: claimed.ReceiveCount,
		Ack: func() error {
			return m.delete(msgID)
		},
	}
	return delivery, nil
}

// Extend pushes out the visibility deadline for a claimed message
func (m *BadgerManager) Extend(ctx context.Context, deliveryID string, duration time.Duration) error {
	return m.db.Update(func(txn *badger.Txn) error {
		msgKey := m.msgKey(deliveryID)
		item, err := txn.Get(msgKey)
		if err != nil {
			return err
		}

		var env envelope
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		}); err != nil {
			return err
		}

		oldVisibleAt := env.VisibleAt
		env.VisibleAt = time.Now().Add(duration)

		newData, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if err := txn.Set(msgKey, newData); err != nil {
			return err
		}

		if err := txn.Delete(m.indexKey(oldVisibleAt, deliveryID)); err != nil {
			if err != badger.ErrKeyNotFound {
				return err
			}
		}
		return txn.Set(m.indexKey(env.VisibleAt, deliveryID), []byte{})
	})
}

// GetQueueLength returns the total number of messages in the queue,
// including claimed ones awaiting ack
func (m *BadgerManager) GetQueueLength(ctx context.Context) (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:msg:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count queue messages: %w", err)
	}
	return count, nil
}

// GetQueueStats returns queue depth split into ready and in-flight messages
func (m *BadgerManager) GetQueueStats(ctx context.Context) (map[string]interface{}, error) {
	total := 0
	ready := 0
	now := time.Now()

	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:index:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			total++
			ts, _, err := m.parseIndexKey(it.Item().Key())
			if err != nil {
				continue
			}
			if !ts.After(now) {
				ready++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue index: %w", err)
	}

	return map[string]interface{}{
		"queue_name":         m.queueName,
		"total_messages":     total,
		"pending_messages":   ready,
		"in_flight_messages": total - ready,
	}, nil
}

// delete removes a message and its index entry. Deleting an already-acked
// message is not an error.
func (m *BadgerManager) delete(msgID string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		// Visibility may have moved since the claim, so read the current
		// envelope to locate the live index key
		msgKey := m.msgKey(msgID)
		item, err := txn.Get(msgKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil // Already deleted
			}
			return err
		}

		var env envelope
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		}); err != nil {
			return err
		}

		if err := txn.Delete(m.indexKey(env.VisibleAt, msgID)); err != nil {
			if err != badger.ErrKeyNotFound {
				return err
			}
		}
		return txn.Delete(msgKey)
	})
}

// Helpers

func (m *BadgerManager) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", m.queueName, id))
}

func (m *BadgerManager) indexKey(visibleAt time.Time, id string) []byte {
	ts := visibleAt.UnixNano()
	// Zero pad to 20 digits to ensure string sorting works like number sorting
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", m.queueName, ts, id))
}

func (m *BadgerManager) parseIndexKey(key []byte) (time.Time, string, error) {
	prefixStr := fmt.Sprintf("queue:%s:index:", m.queueName)
	if len(key) <= len(prefixStr) {
		return time.Time{}, "", fmt.Errorf("invalid key length")
	}

	suffix := string(key[len(prefixStr):])
	// Suffix is "{20-digit-ts}:{id}"

	if len(suffix) < 21 { // 20 digits + 1 colon
		return time.Time{}, "", fmt.Errorf("invalid suffix length")
	}

	tsStr := suffix[:20]
	id := suffix[21:]

	var ts int64
	_, err := fmt.Sscanf(tsStr, "%d", &ts)
	if err != nil {
		return time.Time{}, "", err
	}

	return time.Unix(0, ts), id, nil
}
