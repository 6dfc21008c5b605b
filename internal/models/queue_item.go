package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OperationType is the kind of write captured in the mutation queue.
type OperationType string

const (
	OpCreate OperationType = "create"
	OpUpdate OperationType = "update"
	OpDelete OperationType = "delete"
)

// Valid reports whether t is one of the known operation types.
func (t OperationType) Valid() bool {
	switch t {
	case OpCreate, OpUpdate, OpDelete:
		return true
	default:
		return false
	}
}

// QueueItem is a pending write operation awaiting remote application.
type QueueItem struct {
	ID         string          `json:"id"`
	Type       OperationType   `json:"type"`
	Entity     string          `json:"entity"`
	Action     string          `json:"action,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
	LastError  string          `json:"lastError,omitempty"`
}

// Operation is a write request before it is stamped with identity and time.
type Operation struct {
	Type    OperationType
	Entity  string
	Action  string
	Payload any
}

// EncodePayload marshals the operation payload. Raw JSON is passed through as is.
func (op Operation) EncodePayload() (json.RawMessage, error) {
	switch p := op.Payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	}
	raw, err := json.Marshal(op.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s payload: %w", op.Entity, op.Type, err)
	}
	return raw, nil
}

// ResolveAction returns the item action, falling back to a top-level
// "action" string carried inside the payload.
func (q QueueItem) ResolveAction() string {
	if q.Action != "" {
		return q.Action
	}
	return PayloadAction(q.Payload)
}

// PayloadAction extracts a top-level "action" string from a JSON object payload.
func PayloadAction(raw json.RawMessage) string {
	if len(raw) == 0 || raw[0] != '{' {
		return ""
	}
	var probe struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.Action
}
