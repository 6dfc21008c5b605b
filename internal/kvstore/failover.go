package kvstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStore serves from primary until it errors, then switches to
// fallback and retries primary once per recovery interval. On recovery the
// entries written and removed during the outage are replayed onto primary
// before it serves again.
//
// Keys matching one of the durable prefixes never fall back: their
// operations always go to primary and its errors are returned, so a write
// that was acknowledged is never parked in volatile memory.
type FailoverStore struct {
	primary  Store
	fallback Store
	durable  []string
	logger   *zerolog.Logger
	now      func() time.Time

	isDown    atomic.Bool
	lastCheck atomic.Int64

	// mu serializes fallback use with recovery; removed holds keys deleted
	// while degraded.
	mu      sync.Mutex
	removed map[string]struct{}
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger, durablePrefixes ...string) *FailoverStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		durable:  durablePrefixes,
		logger:   logger,
		now:      time.Now,
		removed:  make(map[string]struct{}),
	}
}

// Degraded reports whether requests are currently served by the fallback.
func (r *FailoverStore) Degraded() bool {
	return r.isDown.Load()
}

func (r *FailoverStore) isDurable(key string) bool {
	for _, p := range r.durable {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func (r *FailoverStore) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary kv store failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverStore) recoveryDue() bool {
	last := time.Unix(0, r.lastCheck.Load())
	return r.now().Sub(last) > recoveryInterval
}

// do runs op against primary while it is healthy. Otherwise op runs against
// the fallback, after an attempt to restore primary when one is due.
// onFallback is called under mu right before a fallback operation.
func (r *FailoverStore) do(ctx context.Context, op func(Store) error, onFallback func()) error {
	if !r.isDown.Load() {
		err := op(r.primary)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isDown.Load() && r.recoveryDue() {
		if err := r.restore(ctx); err != nil {
			r.lastCheck.Store(r.now().UnixNano())
			r.logger.Debug().Err(err).Msg("Primary kv store still unavailable")
		}
	}
	if !r.isDown.Load() {
		err := op(r.primary)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	if onFallback != nil {
		onFallback()
	}
	return op(r.fallback)
}

// restore copies the outage writes and removals onto primary and switches
// back to it. Must be called with mu held.
func (r *FailoverStore) restore(ctx context.Context) error {
	keys, err := r.fallback.GetAllKeys(ctx)
	if err != nil {
		return fmt.Errorf("list fallback keys: %w", err)
	}
	for _, k := range keys {
		v, ok, err := r.fallback.Get(ctx, k)
		if err != nil {
			return fmt.Errorf("read fallback %s: %w", k, err)
		}
		if !ok {
			continue
		}
		if err := r.primary.Set(ctx, k, v); err != nil {
			return err
		}
	}
	if len(r.removed) > 0 {
		if err := r.primary.MultiRemove(ctx, slices.Sorted(maps.Keys(r.removed))); err != nil {
			return err
		}
	}

	if err := r.fallback.MultiRemove(ctx, keys); err != nil {
		return fmt.Errorf("clear fallback: %w", err)
	}
	replayed := len(keys) + len(r.removed)
	clear(r.removed)
	r.isDown.Store(false)
	r.logger.Info().Int("replayed", replayed).Msg("Primary kv store recovered")
	return nil
}

func (r *FailoverStore) Get(ctx context.Context, key string) (string, bool, error) {
	if r.isDurable(key) {
		return r.primary.Get(ctx, key)
	}
	var (
		val string
		ok  bool
	)
	err := r.do(ctx, func(s Store) (err error) {
		val, ok, err = s.Get(ctx, key)
		return err
	}, nil)
	return val, ok, err
}

func (r *FailoverStore) Set(ctx context.Context, key, value string) error {
	if r.isDurable(key) {
		return r.primary.Set(ctx, key, value)
	}
	return r.do(ctx, func(s Store) error { return s.Set(ctx, key, value) }, func() {
		delete(r.removed, key)
	})
}

func (r *FailoverStore) Remove(ctx context.Context, key string) error {
	if r.isDurable(key) {
		return r.primary.Remove(ctx, key)
	}
	return r.do(ctx, func(s Store) error { return s.Remove(ctx, key) }, func() {
		r.removed[key] = struct{}{}
	})
}

func (r *FailoverStore) MultiRemove(ctx context.Context, keys []string) error {
	var durable, volatile []string
	for _, k := range keys {
		if r.isDurable(k) {
			durable = append(durable, k)
		} else {
			volatile = append(volatile, k)
		}
	}
	if len(durable) > 0 {
		if err := r.primary.MultiRemove(ctx, durable); err != nil {
			return err
		}
	}
	if len(volatile) == 0 {
		return nil
	}
	return r.do(ctx, func(s Store) error { return s.MultiRemove(ctx, volatile) }, func() {
		for _, k := range volatile {
			r.removed[k] = struct{}{}
		}
	})
}

// GetAllKeys lists primary keys while healthy and only fallback keys while
// degraded.
func (r *FailoverStore) GetAllKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.do(ctx, func(s Store) (err error) {
		keys, err = s.GetAllKeys(ctx)
		return err
	}, nil)
	return keys, err
}
