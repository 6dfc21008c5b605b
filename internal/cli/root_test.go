package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"offlinesync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
logging:
  level: error
storage:
  backend: sqlite
  path: %q
remote:
  base_url: %q
  timeout: 2s
network:
  initially_online: false
`, filepath.Join(dir, "offlinesync.db"), baseURL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// seed queues mutations through a manager built from the same config.
func seed(t *testing.T, configPath string, customers ...string) []models.QueueItem {
	t.Helper()
	ctx := context.Background()
	a, err := buildApp(ctx, &RootOptions{ConfigPath: configPath, Format: "text"}, buildOptions{interactive: true})
	require.NoError(t, err)
	defer a.Close()

	var items []models.QueueItem
	for _, name := range customers {
		item, err := a.manager.CreateCustomer(ctx, models.Customer{Name: name})
		require.NoError(t, err)
		items = append(items, item)
	}
	return items
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "status", "sync", "queue", "cache"} {
		assert.True(t, names[want], "missing %s command", want)
	}

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("format"))
}

func TestRootCommandRejectsUnknownFormat(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")

	_, err := run(t, "status", "--config", path, "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestStatusMissingConfig(t *testing.T) {
	_, err := run(t, "status", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestStatusReportsPendingCount(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")
	seed(t, path, "Acme", "Globex")

	out, err := run(t, "status", "--config", path, "--format", "json")
	require.NoError(t, err)

	var status models.SyncStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.False(t, status.IsOnline)
	assert.False(t, status.IsSyncing)
	assert.Equal(t, 2, status.PendingCount)
	assert.Nil(t, status.LastSyncTime)
}

func TestStatusTextOutput(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")

	out, err := run(t, "status", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Pending:")
	assert.Contains(t, out, "never")
}

func TestQueueListKeepsFIFOOrder(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")
	seeded := seed(t, path, "first", "second", "third")

	out, err := run(t, "queue", "list", "--config", path, "--format", "json")
	require.NoError(t, err)

	var items []models.QueueItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 3)
	for i := range seeded {
		assert.Equal(t, seeded[i].ID, items[i].ID)
		assert.Equal(t, models.EntityCustomer, items[i].Entity)
	}
}

func TestQueueListEmptyText(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")

	out, err := run(t, "queue", "list", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Queue is empty")
}

func TestQueueRemove(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")
	seeded := seed(t, path, "first", "second")

	out, err := run(t, "queue", "remove", seeded[0].ID, "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed "+seeded[0].ID)

	_, err = run(t, "queue", "remove", seeded[0].ID, "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	out, err = run(t, "status", "--config", path, "--format", "json")
	require.NoError(t, err)
	var status models.SyncStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 1, status.PendingCount)
}

func TestQueueClear(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")
	seed(t, path, "first", "second")

	out, err := run(t, "queue", "clear", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Queue cleared")

	out, err = run(t, "queue", "list", "--config", path, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestQueueExportWritesWorkbook(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")
	seed(t, path, "Acme")
	dest := filepath.Join(t.TempDir(), "queue.xlsx")

	out, err := run(t, "queue", "export", "--config", path, "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 pending and 0 dead letter items")

	f, err := excelize.OpenFile(dest)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Pending")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestCacheInvalidate(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")

	ctx := context.Background()
	a, err := buildApp(ctx, &RootOptions{ConfigPath: path, Format: "text"}, buildOptions{interactive: true})
	require.NoError(t, err)
	require.NoError(t, a.manager.SetCache(ctx, "customers:list", []string{"a"}, 0))
	require.NoError(t, a.manager.SetCache(ctx, "deals:list", []string{"b"}, 0))
	a.Close()

	out, err := run(t, "cache", "invalidate", "customers", "--config", path, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"removed":1}`, out)

	out, err = run(t, "cache", "invalidate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 cache entries")
}

func TestSyncReplaysQueueWhenBackendReachable(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/customers" {
			posts.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	path := writeConfig(t, srv.URL)
	seed(t, path, "Acme", "Globex")

	out, err := run(t, "sync", "--config", path, "--format", "json")
	require.NoError(t, err)

	var result models.SyncResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, models.SyncResult{Success: 2}, result)
	assert.EqualValues(t, 2, posts.Load())

	out, err = run(t, "status", "--config", path, "--format", "json")
	require.NoError(t, err)
	var status models.SyncStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Zero(t, status.PendingCount)
	assert.NotNil(t, status.LastSyncTime)
}

func TestSyncOfflineLeavesQueue(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")
	seed(t, path, "Acme")

	out, err := run(t, "sync", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Synced 0, failed 0, dropped 0")

	out, err = run(t, "queue", "list", "--config", path, "--format", "json")
	require.NoError(t, err)
	var items []models.QueueItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Len(t, items, 1)
}
