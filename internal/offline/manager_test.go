package offline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"offlinesync/internal/cache"
	"offlinesync/internal/config"
	"offlinesync/internal/dispatch"
	"offlinesync/internal/kvstore"
	"offlinesync/internal/models"
	"offlinesync/internal/netmon"
	"offlinesync/internal/queue"
	"offlinesync/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []string
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeDispatcher) Validate(models.QueueItem) error { return nil }

func (f *fakeDispatcher) Dispatch(ctx context.Context, item models.QueueItem) error {
	f.mu.Lock()
	f.calls = append(f.calls, item.ID)
	f.mu.Unlock()

	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	return f.err
}

func (f *fakeDispatcher) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestManager(t *testing.T, d Dispatcher, online bool) (*Manager, kvstore.Store) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	m, err := NewManager(Config{
		Store:           store,
		Cache:           cache.NewManager(store, time.Minute, nil),
		Queue:           queue.New(store, 10),
		Dispatcher:      d,
		MaxAttempts:     3,
		InitiallyOnline: online,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, store
}

func enqueueN(t *testing.T, m *Manager, n int) []models.QueueItem {
	t.Helper()
	items := make([]models.QueueItem, 0, n)
	for i := 0; i < n; i++ {
		it, err := m.AddToQueue(context.Background(), models.Operation{
			Type:    models.OpCreate,
			Entity:  models.EntityCustomer,
			Payload: models.Customer{Name: "c"},
		})
		require.NoError(t, err)
		items = append(items, it)
	}
	return items
}

func ids(items []models.QueueItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestNewManagerRequiresCollaborators(t *testing.T) {
	_, err := NewManager(Config{})
	assert.Error(t, err)
}

func TestProcessWhileOfflineDoesNothing(t *testing.T) {
	d := &fakeDispatcher{}
	m, _ := newTestManager(t, d, false)
	ctx := context.Background()

	items := enqueueN(t, m, 2)

	res, err := m.ProcessPendingQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{}, res)
	assert.Empty(t, d.called())

	q, err := m.GetQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids(items), ids(q))
}

func TestProcessAllSuccessInOrder(t *testing.T) {
	d := &fakeDispatcher{}
	m, _ := newTestManager(t, d, false)
	ctx := context.Background()

	items := enqueueN(t, m, 5)
	m.online.Store(true)

	res, err := m.ProcessPendingQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Success: 5}, res)
	assert.Equal(t, ids(items), d.called())

	q, err := m.GetQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, q)

	status, err := m.GetStatus(ctx)
	require.NoError(t, err)
	require.NotNil(t, status.LastSyncTime)
	assert.False(t, status.IsSyncing)
	assert.Zero(t, status.PendingCount)
}

func TestProcessIsSingleFlight(t *testing.T) {
	d := &fakeDispatcher{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	m, _ := newTestManager(t, d, false)
	ctx := context.Background()

	enqueueN(t, m, 2)
	m.online.Store(true)

	type outcome struct {
		res models.SyncResult
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := m.ProcessPendingQueue(ctx)
		first <- outcome{res, err}
	}()

	select {
	case <-d.entered:
	case <-time.After(time.Second):
		t.Fatal("first drain never dispatched")
	}

	status, err := m.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsSyncing)

	res, err := m.ProcessPendingQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{}, res)

	close(d.block)
	out := <-first
	require.NoError(t, out.err)
	assert.Equal(t, models.SyncResult{Success: 2}, out.res)
	assert.Len(t, d.called(), 2)
}

func TestFailedItemsAreRetriedThenDropped(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("backend down")}
	m, _ := newTestManager(t, d, false)
	ctx := context.Background()

	items := enqueueN(t, m, 1)
	m.online.Store(true)

	for attempt := 1; attempt < 3; attempt++ {
		res, err := m.ProcessPendingQueue(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.SyncResult{Failed: 1}, res)

		q, err := m.GetQueue(ctx)
		require.NoError(t, err)
		require.Len(t, q, 1)
		assert.Equal(t, attempt, q[0].RetryCount)
		assert.Equal(t, "backend down", q[0].LastError)
	}

	res, err := m.ProcessPendingQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Dropped: 1}, res)

	q, err := m.GetQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, q)

	dead, err := m.DeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, items[0].ID, dead[0].ID)
	assert.Equal(t, 3, dead[0].RetryCount)

	status, err := m.GetStatus(ctx)
	require.NoError(t, err)
	assert.NotNil(t, status.LastSyncTime)
}

func TestUnknownEntityIsRemovedAsSuccess(t *testing.T) {
	srv, hits := recordingServer(t, http.StatusOK)
	d := dispatch.NewDispatcher(remote.NewClient(config.RemoteConfig{BaseURL: srv.URL}, "", nil), nil)
	m, _ := newTestManager(t, d, false)
	ctx := context.Background()

	_, err := m.AddToQueue(ctx, models.Operation{
		Type:    models.OpCreate,
		Entity:  "spaceship",
		Payload: map[string]string{"name": "x"},
	})
	require.NoError(t, err)
	m.online.Store(true)

	res, err := m.ProcessPendingQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Success: 1}, res)

	q, err := m.GetQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, q)
	assert.Empty(t, hits())
}

func TestAddToQueueRejectsInvalidPayload(t *testing.T) {
	d := dispatch.NewDispatcher(remote.NewClient(config.RemoteConfig{BaseURL: "http://127.0.0.1:1"}, "", nil), nil)
	m, _ := newTestManager(t, d, false)
	ctx := context.Background()

	var notified int
	m.Subscribe(func(models.SyncStatus) { notified++ })

	_, err := m.CreateCustomer(ctx, models.Customer{})
	assert.ErrorIs(t, err, models.ErrInvalidPayload)

	_, err = m.AddToQueue(ctx, models.Operation{Type: models.OpDelete, Entity: models.EntityStockMovement, Payload: models.EntityRef{ID: "m1"}})
	assert.ErrorIs(t, err, dispatch.ErrUnsupportedOperation)

	q, err := m.GetQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, q)
	assert.Zero(t, notified)
}

func TestOneNotificationPerMutation(t *testing.T) {
	m, _ := newTestManager(t, &fakeDispatcher{}, false)
	ctx := context.Background()

	var (
		mu      sync.Mutex
		pending []int
	)
	unsubscribe := m.Subscribe(func(s models.SyncStatus) {
		mu.Lock()
		pending = append(pending, s.PendingCount)
		mu.Unlock()
	})

	items := enqueueN(t, m, 3)
	removed, err := m.RemoveFromQueue(ctx, items[1].ID)
	require.NoError(t, err)
	assert.True(t, removed)

	unsubscribe()
	require.NoError(t, m.ClearQueue(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 2}, pending)
}

func TestRemoveFromQueuePreservesOrder(t *testing.T) {
	m, _ := newTestManager(t, &fakeDispatcher{}, false)
	ctx := context.Background()

	items := enqueueN(t, m, 4)
	_, err := m.RemoveFromQueue(ctx, items[2].ID)
	require.NoError(t, err)

	q, err := m.GetQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{items[0].ID, items[1].ID, items[3].ID}, ids(q))

	status, err := m.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(q), status.PendingCount)
}

func TestReconnectOnlyOnEdge(t *testing.T) {
	d := &fakeDispatcher{}
	m, _ := newTestManager(t, d, false)

	enqueueN(t, m, 1)

	var statuses []models.SyncStatus
	var mu sync.Mutex
	m.Subscribe(func(s models.SyncStatus) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	})

	m.HandleNetworkEvent(netmon.Event{IsConnected: false})
	m.Wait()
	assert.Empty(t, d.called())

	m.HandleNetworkEvent(netmon.Event{IsConnected: true})
	m.Wait()
	assert.Len(t, d.called(), 1)

	m.HandleNetworkEvent(netmon.Event{IsConnected: true})
	m.Wait()
	assert.Len(t, d.called(), 1)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, statuses)
	assert.False(t, statuses[0].IsOnline)
	assert.True(t, statuses[len(statuses)-1].IsOnline)
}

func TestCloseStopsBackgroundDrains(t *testing.T) {
	d := &fakeDispatcher{}
	m, _ := newTestManager(t, d, false)

	enqueueN(t, m, 1)
	require.NoError(t, m.Close())

	m.HandleNetworkEvent(netmon.Event{IsConnected: true})
	m.Wait()
	assert.Empty(t, d.called())
}

func recordingServer(t *testing.T, status int) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu   sync.Mutex
		hits []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), hits...)
	}
}

func TestOnlineCreateDrainsAutomatically(t *testing.T) {
	srv, hits := recordingServer(t, http.StatusCreated)
	d := dispatch.NewDispatcher(remote.NewClient(config.RemoteConfig{BaseURL: srv.URL}, "", nil), nil)
	m, _ := newTestManager(t, d, true)
	ctx := context.Background()

	_, err := m.CreateCustomer(ctx, models.Customer{Name: "Ann"})
	require.NoError(t, err)
	m.Wait()

	q, err := m.GetQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, q)
	assert.Equal(t, []string{"POST /customers"}, hits())

	status, err := m.GetStatus(ctx)
	require.NoError(t, err)
	assert.NotNil(t, status.LastSyncTime)
}

func TestOfflineUpdateSyncsOnReconnect(t *testing.T) {
	srv, hits := recordingServer(t, http.StatusOK)
	d := dispatch.NewDispatcher(remote.NewClient(config.RemoteConfig{BaseURL: srv.URL}, "", nil), nil)
	m, _ := newTestManager(t, d, false)
	ctx := context.Background()

	monitor := netmon.NewManual(false, nil)
	detach := m.Attach(monitor)
	defer detach()

	_, err := m.UpdateProduct(ctx, models.Product{ID: "p1", SKU: "S1", Name: "Bolt", Price: 3})
	require.NoError(t, err)
	m.Wait()

	q, err := m.GetQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, q, 1)
	assert.Empty(t, hits())

	monitor.Set(true)
	m.Wait()

	q, err = m.GetQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, q)
	assert.Equal(t, []string{"PUT /products/p1"}, hits())
}

func TestCacheOperations(t *testing.T) {
	m, store := newTestManager(t, &fakeDispatcher{}, false)
	ctx := context.Background()

	require.NoError(t, m.SetCache(ctx, "customers:list", []string{"a", "b"}, 0))
	require.NoError(t, m.SetCache(ctx, "products:list", []string{"p"}, 0))
	enqueueN(t, m, 1)

	var got []string
	ok, err := m.GetCache(ctx, "customers:list", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	n, err := m.InvalidateCache(ctx, "customers")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err = m.GetCache(ctx, "customers:list", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	_, present, err := store.Get(ctx, queue.PendingKey)
	require.NoError(t, err)
	assert.True(t, present)
}

func TestFetchFallsBackToCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"c1","name":"Ann"}]`))
	}))
	t.Cleanup(srv.Close)

	client := remote.NewClient(config.RemoteConfig{BaseURL: srv.URL}, "", nil)
	store := kvstore.NewMemoryStore()
	m, err := NewManager(Config{
		Store:           store,
		Cache:           cache.NewManager(store, time.Minute, nil),
		Queue:           queue.New(store, 0),
		Dispatcher:      dispatch.NewDispatcher(client, nil),
		Fetcher:         client,
		InitiallyOnline: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	ctx := context.Background()

	var customers []models.Customer
	fromCache, err := m.Fetch(ctx, "customers", "/customers", &customers)
	require.NoError(t, err)
	assert.False(t, fromCache)
	require.Len(t, customers, 1)

	m.HandleNetworkEvent(netmon.Event{IsConnected: false})

	customers = nil
	fromCache, err = m.Fetch(ctx, "customers", "/customers", &customers)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, "Ann", customers[0].Name)

	_, err = m.Fetch(ctx, "deals", "/deals", &customers)
	assert.ErrorIs(t, err, ErrNotCached)
}

func newSQLiteManager(t *testing.T, d Dispatcher, online bool) *Manager {
	t.Helper()
	store, err := kvstore.OpenSQLite(filepath.Join(t.TempDir(), "offline.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m, err := NewManager(Config{
		Store:           store,
		Cache:           cache.NewManager(store, time.Minute, nil),
		Queue:           queue.New(store, 10),
		Dispatcher:      d,
		InitiallyOnline: online,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestNetworkEventAfterCloseStillNotifies(t *testing.T) {
	m := newSQLiteManager(t, &fakeDispatcher{}, false)
	enqueueN(t, m, 1)
	require.NoError(t, m.Close())

	var got []models.SyncStatus
	m.Subscribe(func(s models.SyncStatus) { got = append(got, s) })

	m.HandleNetworkEvent(netmon.Event{IsConnected: true})
	m.Wait()

	require.Len(t, got, 1)
	assert.True(t, got[0].IsOnline)
	assert.Equal(t, 1, got[0].PendingCount)
}

func TestCancelledDrainStillAnnouncesEnd(t *testing.T) {
	d := &fakeDispatcher{}
	m := newSQLiteManager(t, d, false)
	enqueueN(t, m, 2)
	m.online.Store(true)

	var got []models.SyncStatus
	m.Subscribe(func(s models.SyncStatus) { got = append(got, s) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.ProcessPendingQueue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.called())

	require.Len(t, got, 2)
	assert.True(t, got[0].IsSyncing)
	assert.False(t, got[1].IsSyncing)
	assert.Equal(t, 2, got[1].PendingCount)
}
