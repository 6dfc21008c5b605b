package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"offlinesync/internal/cache"
	"offlinesync/internal/config"
	"offlinesync/internal/dispatch"
	"offlinesync/internal/kvstore"
	"offlinesync/internal/logging"
	"offlinesync/internal/offline"
	"offlinesync/internal/queue"
	"offlinesync/internal/remote"

	"github.com/rs/zerolog"
)

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

// app is the wired object graph shared by all commands.
type app struct {
	cfg     *config.Config
	logger  *zerolog.Logger
	store   kvstore.Store
	client  *remote.Client
	manager *offline.Manager
	closers []io.Closer
}

type buildOptions struct {
	// probe sets the initial online state from a backend ping instead of
	// network.initially_online.
	probe bool
	// interactive routes stdout logging to stderr so command output stays clean.
	interactive bool
}

func buildApp(ctx context.Context, opts *RootOptions, bo buildOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if bo.interactive {
		switch strings.ToLower(strings.TrimSpace(cfg.Logging.Output)) {
		case "", "stdout":
			cfg.Logging.Output = "stderr"
		}
	}

	logger, logCloser, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	if logCloser != nil {
		a.closers = append(a.closers, logCloser)
	}

	store, storeCloser, err := openStore(ctx, cfg, logging.Component(logger, "kvstore"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	if storeCloser != nil {
		a.closers = append(a.closers, storeCloser)
	}

	a.client = remote.NewClient(cfg.Remote, cfg.Network.ProbePath, logging.Component(logger, "remote"))

	online := cfg.Network.InitiallyOnline
	if bo.probe {
		online = a.client.Ping(ctx) == nil
	}

	a.manager, err = offline.NewManager(offline.Config{
		Store:           store,
		Cache:           cache.NewManager(store, cfg.Sync.CacheTTL, logging.Component(logger, "cache")),
		Queue:           queue.New(store, cfg.Sync.DeadLetterLimit),
		Dispatcher:      dispatch.NewDispatcher(a.client, logging.Component(logger, "dispatch")),
		Fetcher:         a.client,
		MaxAttempts:     cfg.Sync.MaxAttempts,
		InitiallyOnline: online,
		Logger:          logging.Component(logger, "offline"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (kvstore.Store, io.Closer, error) {
	var (
		primary kvstore.Store
		closer  io.Closer
	)

	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		s, err := kvstore.OpenSQLite(cfg.Storage.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		primary, closer = s, s
	case config.BackendRedis:
		client := kvstore.NewRedisClient(cfg.Redis)
		if err := kvstore.Ping(ctx, client); err != nil {
			if !cfg.Storage.Failover {
				_ = client.Close()
				return nil, nil, err
			}
			logger.Warn().Err(err).Msg("redis unreachable, starting on memory fallback")
		}
		s := kvstore.NewRedisStore(client, cfg.Storage.KeyPrefix)
		primary, closer = s, s
	case config.BackendMemory:
		primary = kvstore.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Storage.Failover && cfg.Storage.Backend != config.BackendMemory {
		// Queue and sync markers never fall back to memory.
		fs := kvstore.NewFailoverStore(primary, kvstore.NewMemoryStore(), logger,
			queue.PendingKey, queue.DeadLetterKey, offline.LastSyncKey)
		return fs, closer, nil
	}
	return primary, closer, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	if a.manager != nil {
		_ = a.manager.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}
