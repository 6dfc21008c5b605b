// Package kvstore provides the durable string key-value primitive the
// offline layer persists its cache entries, queue and sync markers in.
package kvstore

import (
	"context"
	"errors"
	"strings"
)

// ErrClientNil is returned by backends constructed without a client.
var ErrClientNil = errors.New("kvstore: client is nil")

// Store is a durable get/set/remove store of string values that survives
// process restarts.
type Store interface {
	// Get returns the value and true, or "" and false when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	MultiRemove(ctx context.Context, keys []string) error
	GetAllKeys(ctx context.Context) ([]string, error)
}

// KeysWithPrefix lists the keys of s that start with prefix.
func KeysWithPrefix(ctx context.Context, s Store, prefix string) ([]string, error) {
	keys, err := s.GetAllKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}
