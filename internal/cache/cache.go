// Package cache is a TTL read cache namespaced inside a kvstore.Store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"offlinesync/internal/kvstore"
	"offlinesync/internal/metrics"
	"offlinesync/internal/models"

	"github.com/rs/zerolog"
)

const (
	// Prefix namespaces cache entries in the store.
	Prefix = "cache/"

	DefaultTTL = 5 * time.Minute
)

// Manager reads and writes CacheEntry envelopes under Prefix.
//
// Expired entries are deleted on read. Entries that fail to decode are
// reported as misses and left in place until explicitly invalidated.
type Manager struct {
	store      kvstore.Store
	defaultTTL time.Duration
	logger     *zerolog.Logger
	now        func() time.Time
}

func NewManager(store kvstore.Store, defaultTTL time.Duration, logger *zerolog.Logger) *Manager {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{
		store:      store,
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Key returns the namespaced store key for a cache key.
func Key(key string) string {
	return Prefix + key
}

// Set stores data under key. A non-positive ttl uses the manager default.
func (m *Manager) Set(ctx context.Context, key string, data any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	entry, err := json.Marshal(models.CacheEntry{Data: raw, Timestamp: m.now(), TTL: ttl})
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return m.store.Set(ctx, Key(key), string(entry))
}

// GetRaw returns the cached JSON value for key, or nil on a miss.
func (m *Manager) GetRaw(ctx context.Context, key string) (json.RawMessage, error) {
	val, ok, err := m.store.Get(ctx, Key(key))
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.IncCache("miss")
		return nil, nil
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		metrics.IncCache("corrupt")
		m.logger.Debug().Err(err).Str("key", key).Msg("corrupt cache entry treated as miss")
		return nil, nil
	}

	if !entry.Valid(m.now()) {
		metrics.IncCache("expired")
		if err := m.store.Remove(ctx, Key(key)); err != nil {
			return nil, fmt.Errorf("remove expired cache entry %s: %w", key, err)
		}
		return nil, nil
	}

	metrics.IncCache("hit")
	return entry.Data, nil
}

// Get decodes the cached value for key into out and reports whether it was
// found. A value that cannot be decoded into out is reported as a miss.
func (m *Manager) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := m.GetRaw(ctx, key)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		m.logger.Debug().Err(err).Str("key", key).Msg("cached value does not match requested type")
		return false, nil
	}
	return true, nil
}

// Invalidate removes cache entries whose key contains pattern, or every
// cache entry when pattern is empty. Pattern is matched against the caller's
// key, without the cache/ namespace. It returns the number removed.
func (m *Manager) Invalidate(ctx context.Context, pattern string) (int, error) {
	keys, err := kvstore.KeysWithPrefix(ctx, m.store, Prefix)
	if err != nil {
		return 0, fmt.Errorf("list cache keys: %w", err)
	}

	if pattern != "" {
		filtered := keys[:0]
		for _, k := range keys {
			if strings.Contains(strings.TrimPrefix(k, Prefix), pattern) {
				filtered = append(filtered, k)
			}
		}
		keys = filtered
	}

	if err := m.store.MultiRemove(ctx, keys); err != nil {
		return 0, fmt.Errorf("remove cache keys: %w", err)
	}
	return len(keys), nil
}

// GetAs returns the cached value for key decoded as T.
func GetAs[T any](ctx context.Context, m *Manager, key string) (T, bool, error) {
	var out T
	ok, err := m.Get(ctx, key, &out)
	return out, ok, err
}
