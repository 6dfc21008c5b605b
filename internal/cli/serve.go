package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"offlinesync/internal/api"
	"offlinesync/internal/config"
	"offlinesync/internal/logging"
	"offlinesync/internal/metrics"
	"offlinesync/internal/netmon"
	"offlinesync/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the long-running serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync engine with connectivity probing and the operator API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	a, err := buildApp(ctx, opts, buildOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	logger := logging.Component(a.logger, "serve")

	var wg sync.WaitGroup
	startMetrics(ctx, &wg, cfg, logger)

	prober := netmon.NewProber(a.client.Ping, cfg.Network.ProbeInterval, logging.Component(a.logger, "netmon"))
	detach := a.manager.Attach(prober)
	defer detach()

	scheduler := worker.NewScheduler(
		a.manager,
		cfg.Sync.FlushInterval,
		worker.PolicyFromConfig(cfg.Sync),
		logging.Component(a.logger, "scheduler"),
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = prober.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		scheduler.Start(ctx)
	}()

	var (
		httpServer *api.HTTPServer
		grpcServer *api.GRPCServer
	)
	if cfg.API.Enabled {
		httpServer, grpcServer, err = startAPI(ctx, a, logger)
		if err != nil {
			return err
		}
	}

	logger.Info().
		Str("backend", cfg.Storage.Backend).
		Str("remote", cfg.Remote.BaseURL).
		Bool("online", a.manager.IsOnline()).
		Msg("offlinesync started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	wg.Wait()

	logger.Info().Msg("offlinesync stopped")
	return nil
}

func startAPI(ctx context.Context, a *app, logger *zerolog.Logger) (*api.HTTPServer, *api.GRPCServer, error) {
	cfg := a.cfg

	var httpServer *api.HTTPServer
	if cfg.API.HTTP.Enabled {
		httpServer = api.NewHTTPServer(cfg.API, a.manager, logging.Component(a.logger, "http"))
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		srv, err := api.NewGRPCServer(&cfg.API, logging.Component(a.logger, "grpc"))
		if err != nil {
			return nil, nil, fmt.Errorf("create grpc server: %w", err)
		}
		grpcServer = srv

		a.manager.Subscribe(grpcServer.Track)
		if status, err := a.manager.GetStatus(ctx); err == nil {
			grpcServer.Track(status)
		}

		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}
	return httpServer, grpcServer, nil
}

func startMetrics(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	wg.Add(1)
	go func() {
		defer wg.Done()
		startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}()
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
