package models

import (
	"encoding/json"
	"time"
)

// CacheEntry is the persisted envelope of a cached value.
type CacheEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	TTL       time.Duration   `json:"ttl"`
}

// Valid reports whether the entry is still fresh at now.
func (e CacheEntry) Valid(now time.Time) bool {
	return now.Sub(e.Timestamp) <= e.TTL
}
