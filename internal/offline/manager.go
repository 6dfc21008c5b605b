// Package offline ties the cache, the mutation queue and the dispatcher
// together: it queues writes locally, drains them to the backend while
// online and publishes a SyncStatus after every change.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"offlinesync/internal/cache"
	"offlinesync/internal/events"
	"offlinesync/internal/kvstore"
	"offlinesync/internal/metrics"
	"offlinesync/internal/models"
	"offlinesync/internal/netmon"
	"offlinesync/internal/queue"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// LastSyncKey holds the completion time of the last drain, RFC3339Nano.
const LastSyncKey = "sync/last_sync_time"

const DefaultMaxAttempts = 3

// ErrNotCached is returned by Fetch when the backend cannot be used and no
// valid cached copy exists.
var ErrNotCached = errors.New("offline: no cached copy")

// Dispatcher applies queued operations to the backend.
type Dispatcher interface {
	Validate(item models.QueueItem) error
	Dispatch(ctx context.Context, item models.QueueItem) error
}

// Fetcher reads JSON documents from the backend.
type Fetcher interface {
	Get(ctx context.Context, path string, out any) error
}

type Config struct {
	Store      kvstore.Store
	Cache      *cache.Manager
	Queue      *queue.Queue
	Dispatcher Dispatcher
	// Fetcher is optional; without it Fetch serves the cache only.
	Fetcher         Fetcher
	MaxAttempts     int
	InitiallyOnline bool
	Logger          *zerolog.Logger
}

type Manager struct {
	store       kvstore.Store
	cache       *cache.Manager
	queue       *queue.Queue
	dispatcher  Dispatcher
	fetcher     Fetcher
	maxAttempts int
	bus         *events.Bus[models.SyncStatus]
	gate        *semaphore.Weighted
	online      atomic.Bool
	syncing     atomic.Bool
	logger      *zerolog.Logger
	now         func() time.Time

	// lifetime of background drains
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil || cfg.Cache == nil || cfg.Queue == nil || cfg.Dispatcher == nil {
		return nil, errors.New("offline: store, cache, queue and dispatcher are required")
	}
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:       cfg.Store,
		cache:       cfg.Cache,
		queue:       cfg.Queue,
		dispatcher:  cfg.Dispatcher,
		fetcher:     cfg.Fetcher,
		maxAttempts: cfg.MaxAttempts,
		bus:         events.NewBus[models.SyncStatus](logger),
		gate:        semaphore.NewWeighted(1),
		logger:      logger,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
	}
	m.online.Store(cfg.InitiallyOnline)
	metrics.SetOnline(cfg.InitiallyOnline)
	return m, nil
}

// SetCache stores data under key for ttl (the cache default when ttl <= 0).
func (m *Manager) SetCache(ctx context.Context, key string, data any, ttl time.Duration) error {
	return m.cache.Set(ctx, key, data, ttl)
}

// GetCache decodes a valid cached value into out and reports whether one
// was found.
func (m *Manager) GetCache(ctx context.Context, key string, out any) (bool, error) {
	return m.cache.Get(ctx, key, out)
}

// InvalidateCache removes cache entries whose key contains pattern, or all
// of them when pattern is empty.
func (m *Manager) InvalidateCache(ctx context.Context, pattern string) (int, error) {
	return m.cache.Invalidate(ctx, pattern)
}

// Fetch reads path from the backend into out and caches it under key.
// Offline, or when the backend call fails, the cached copy is served
// instead. fromCache reports which source was used.
func (m *Manager) Fetch(ctx context.Context, key, path string, out any) (fromCache bool, err error) {
	var remoteErr error
	if m.IsOnline() && m.fetcher != nil {
		var raw json.RawMessage
		remoteErr = m.fetcher.Get(ctx, path, &raw)
		if remoteErr == nil {
			if err := m.cache.Set(ctx, key, raw, 0); err != nil {
				m.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache fetched value")
			}
			if err := json.Unmarshal(raw, out); err != nil {
				return false, fmt.Errorf("decode %s: %w", path, err)
			}
			return false, nil
		}
		m.logger.Debug().Err(remoteErr).Str("path", path).Msg("fetch failed, serving cache")
	}

	ok, err := m.cache.Get(ctx, key, out)
	if err != nil {
		return true, err
	}
	if !ok {
		if remoteErr != nil {
			return true, fmt.Errorf("%w: %s: %w", ErrNotCached, key, remoteErr)
		}
		return true, fmt.Errorf("%w: %s", ErrNotCached, key)
	}
	return true, nil
}

// AddToQueue validates op, persists it at the tail of the queue and, when
// online, starts a background drain. Remote outcome is never reported here.
func (m *Manager) AddToQueue(ctx context.Context, op models.Operation) (models.QueueItem, error) {
	payload, err := op.EncodePayload()
	if err != nil {
		return models.QueueItem{}, err
	}
	op.Payload = payload

	probe := models.QueueItem{Type: op.Type, Entity: op.Entity, Action: op.Action, Payload: payload}
	if err := m.dispatcher.Validate(probe); err != nil {
		return models.QueueItem{}, err
	}

	item, err := m.queue.Add(ctx, op)
	if err != nil {
		return models.QueueItem{}, fmt.Errorf("enqueue %s %s: %w", op.Entity, op.Type, err)
	}
	m.logger.Debug().Str("id", item.ID).Str("entity", item.Entity).Str("type", string(item.Type)).Msg("operation queued")

	m.notify(ctx)
	if m.IsOnline() {
		m.drainAsync()
	}
	return item, nil
}

func (m *Manager) GetQueue(ctx context.Context) ([]models.QueueItem, error) {
	return m.queue.List(ctx)
}

// RemoveFromQueue drops the item with id and reports whether it existed.
func (m *Manager) RemoveFromQueue(ctx context.Context, id string) (bool, error) {
	removed, err := m.queue.Remove(ctx, id)
	if err != nil {
		return false, err
	}
	m.notify(ctx)
	return removed, nil
}

func (m *Manager) ClearQueue(ctx context.Context) error {
	if err := m.queue.Clear(ctx); err != nil {
		return err
	}
	m.notify(ctx)
	return nil
}

// DeadLetters returns items dropped after exhausting their attempts.
func (m *Manager) DeadLetters(ctx context.Context) ([]models.QueueItem, error) {
	return m.queue.DeadLetters(ctx)
}

func (m *Manager) ClearDeadLetters(ctx context.Context) error {
	return m.queue.ClearDeadLetters(ctx)
}

// ProcessPendingQueue dispatches queued items in order. It does nothing and
// returns a zero result while offline or while another drain is running.
//
// A failed item has its persisted attempt count advanced; once that count
// reaches the attempt limit it is moved to the dead-letter list and counted
// as dropped rather than failed.
func (m *Manager) ProcessPendingQueue(ctx context.Context) (models.SyncResult, error) {
	if !m.IsOnline() {
		metrics.IncDrain("offline")
		return models.SyncResult{}, nil
	}
	if !m.gate.TryAcquire(1) {
		metrics.IncDrain("busy")
		return models.SyncResult{}, nil
	}
	defer m.gate.Release(1)

	metrics.IncDrain("ran")
	m.syncing.Store(true)
	m.notify(ctx)

	res, err := m.drain(ctx)

	if err == nil {
		if serr := m.store.Set(ctx, LastSyncKey, m.now().UTC().Format(time.RFC3339Nano)); serr != nil {
			err = fmt.Errorf("record last sync time: %w", serr)
		}
	}

	m.syncing.Store(false)
	m.notify(ctx)

	m.logger.Info().
		Int("success", res.Success).
		Int("failed", res.Failed).
		Int("dropped", res.Dropped).
		Err(err).
		Msg("Drain finished")
	return res, err
}

func (m *Manager) drain(ctx context.Context) (models.SyncResult, error) {
	var res models.SyncResult

	items, err := m.queue.List(ctx)
	if err != nil {
		return res, fmt.Errorf("read queue: %w", err)
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		dispatchErr := m.dispatcher.Dispatch(ctx, item)
		if dispatchErr == nil {
			if _, err := m.queue.Remove(ctx, item.ID); err != nil {
				return res, fmt.Errorf("remove %s: %w", item.ID, err)
			}
			res.Success++
			m.notify(ctx)
			continue
		}

		updated, err := m.queue.RecordFailure(ctx, item.ID, dispatchErr)
		if errors.Is(err, queue.ErrNotFound) {
			// removed by someone else while dispatching
			continue
		}
		if err != nil {
			return res, fmt.Errorf("record failure %s: %w", item.ID, err)
		}

		if updated.RetryCount >= m.maxAttempts {
			if err := m.queue.GiveUp(ctx, updated); err != nil {
				return res, fmt.Errorf("give up %s: %w", item.ID, err)
			}
			m.logger.Warn().
				Str("id", item.ID).
				Str("entity", item.Entity).
				Str("type", string(item.Type)).
				Int("attempts", updated.RetryCount).
				Err(dispatchErr).
				Msg("Giving up on queued operation")
			metrics.IncDispatch(item.Entity, metrics.ResultDropped)
			res.Dropped++
			m.notify(ctx)
			continue
		}

		m.logger.Warn().
			Str("id", item.ID).
			Str("entity", item.Entity).
			Int("attempts", updated.RetryCount).
			Err(dispatchErr).
			Msg("Dispatch failed, will retry")
		res.Failed++
	}
	return res, nil
}

// GetStatus returns the current status snapshot.
func (m *Manager) GetStatus(ctx context.Context) (models.SyncStatus, error) {
	status := models.SyncStatus{
		IsOnline:  m.IsOnline(),
		IsSyncing: m.syncing.Load(),
	}

	raw, ok, err := m.store.Get(ctx, LastSyncKey)
	if err != nil {
		return status, fmt.Errorf("read last sync time: %w", err)
	}
	if ok && raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			m.logger.Debug().Err(err).Str("value", raw).Msg("ignoring malformed last sync time")
		} else {
			status.LastSyncTime = &t
		}
	}

	n, err := m.queue.Len(ctx)
	if err != nil {
		return status, fmt.Errorf("read queue length: %w", err)
	}
	status.PendingCount = n
	return status, nil
}

// Subscribe registers listener for status snapshots. Calling the returned
// function stops further deliveries.
func (m *Manager) Subscribe(listener func(models.SyncStatus)) (unsubscribe func()) {
	return m.bus.Subscribe(listener)
}

// notify publishes the current status. It still delivers when ctx has been
// cancelled, so the end of an interrupted drain is always announced.
func (m *Manager) notify(ctx context.Context) {
	status, err := m.GetStatus(context.WithoutCancel(ctx))
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to compute sync status")
		return
	}
	metrics.SetPending(status.PendingCount)
	m.bus.Publish(status)
}

func (m *Manager) IsOnline() bool {
	return m.online.Load()
}

// HandleNetworkEvent records connectivity, notifies subscribers and starts
// a drain on an offline to online transition.
func (m *Manager) HandleNetworkEvent(ev netmon.Event) {
	was := m.online.Swap(ev.IsConnected)
	metrics.SetOnline(ev.IsConnected)
	if was != ev.IsConnected {
		m.logger.Info().Bool("online", ev.IsConnected).Msg("Network state changed")
	}

	m.notify(context.Background())
	if !was && ev.IsConnected {
		m.drainAsync()
	}
}

// Attach subscribes the manager to mon and returns the unsubscribe function.
func (m *Manager) Attach(mon netmon.Monitor) (detach func()) {
	return mon.Subscribe(m.HandleNetworkEvent)
}

func (m *Manager) drainAsync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, err := m.ProcessPendingQueue(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error().Err(err).Msg("Background drain failed")
		}
	}()
}

// Wait blocks until background drains started so far have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels background drains and waits for them to return.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
	return nil
}
