// Package queue is the durable, ordered list of pending write operations.
//
// The whole list lives under one store key and every mutation rewrites it.
// Mutations are serialized within the process; running two processes
// against the same store can lose updates.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"offlinesync/internal/kvstore"
	"offlinesync/internal/models"

	"github.com/google/uuid"
)

const (
	PendingKey    = "queue/pending"
	DeadLetterKey = "queue/dead_letter"

	DefaultDeadLetterLimit = 100
)

// ErrNotFound is returned when an item id is not in the queue.
var ErrNotFound = errors.New("queue: item not found")

type Queue struct {
	store           kvstore.Store
	mu              sync.Mutex
	deadLetterLimit int
	now             func() time.Time
	newID           func() (string, error)
}

func New(store kvstore.Store, deadLetterLimit int) *Queue {
	if deadLetterLimit <= 0 {
		deadLetterLimit = DefaultDeadLetterLimit
	}
	return &Queue{
		store:           store,
		deadLetterLimit: deadLetterLimit,
		now:             time.Now,
		newID:           newItemID,
	}
}

// newItemID returns a UUIDv7: millisecond timestamp followed by random bits.
func newItemID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate queue id: %w", err)
	}
	return id.String(), nil
}

func (q *Queue) read(ctx context.Context, key string) ([]models.QueueItem, error) {
	raw, ok, err := q.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return []models.QueueItem{}, nil
	}
	var items []models.QueueItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if items == nil {
		items = []models.QueueItem{}
	}
	return items, nil
}

func (q *Queue) write(ctx context.Context, key string, items []models.QueueItem) error {
	if items == nil {
		items = []models.QueueItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := q.store.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Add stamps op with a fresh id, the current time and a zero retry count,
// and appends it to the tail of the queue.
func (q *Queue) Add(ctx context.Context, op models.Operation) (models.QueueItem, error) {
	payload, err := op.EncodePayload()
	if err != nil {
		return models.QueueItem{}, err
	}
	id, err := q.newID()
	if err != nil {
		return models.QueueItem{}, err
	}

	item := models.QueueItem{
		ID:        id,
		Type:      op.Type,
		Entity:    op.Entity,
		Action:    op.Action,
		Payload:   payload,
		Timestamp: q.now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.read(ctx, PendingKey)
	if err != nil {
		return models.QueueItem{}, err
	}
	items = append(items, item)
	if err := q.write(ctx, PendingKey, items); err != nil {
		return models.QueueItem{}, err
	}
	return item, nil
}

// List returns the pending items in insertion order.
func (q *Queue) List(ctx context.Context) ([]models.QueueItem, error) {
	return q.read(ctx, PendingKey)
}

// Len returns the number of pending items.
func (q *Queue) Len(ctx context.Context) (int, error) {
	items, err := q.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Remove deletes the item with id and reports whether it was present.
func (q *Queue) Remove(ctx context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.read(ctx, PendingKey)
	if err != nil {
		return false, err
	}
	kept := items[:0]
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		return false, nil
	}
	return true, q.write(ctx, PendingKey, kept)
}

// Clear empties the pending queue.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.write(ctx, PendingKey, []models.QueueItem{})
}

// RecordFailure persists one more failed attempt for id and returns the
// stored item with its new retry count.
func (q *Queue) RecordFailure(ctx context.Context, id string, cause error) (models.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.read(ctx, PendingKey)
	if err != nil {
		return models.QueueItem{}, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		items[i].RetryCount++
		if cause != nil {
			items[i].LastError = cause.Error()
		}
		if err := q.write(ctx, PendingKey, items); err != nil {
			return models.QueueItem{}, err
		}
		return items[i], nil
	}
	return models.QueueItem{}, ErrNotFound
}

// GiveUp removes item from the pending queue and appends it to the bounded
// dead-letter list, evicting the oldest entries past the limit.
func (q *Queue) GiveUp(ctx context.Context, item models.QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.read(ctx, PendingKey)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, it := range items {
		if it.ID != item.ID {
			kept = append(kept, it)
		}
	}
	if err := q.write(ctx, PendingKey, kept); err != nil {
		return err
	}

	dead, err := q.read(ctx, DeadLetterKey)
	if err != nil {
		return err
	}
	dead = append(dead, item)
	if over := len(dead) - q.deadLetterLimit; over > 0 {
		dead = dead[over:]
	}
	return q.write(ctx, DeadLetterKey, dead)
}

// DeadLetters returns items that exhausted their attempts, oldest first.
func (q *Queue) DeadLetters(ctx context.Context) ([]models.QueueItem, error) {
	return q.read(ctx, DeadLetterKey)
}

// ClearDeadLetters empties the dead-letter list.
func (q *Queue) ClearDeadLetters(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Remove(ctx, DeadLetterKey)
}
