package api

import (
	"context"
	"fmt"
	"net"

	"offlinesync/internal/config"
	"offlinesync/internal/models"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthService is the gRPC health service name that tracks connectivity.
const HealthService = "offlinesync.Sync"

// GRPCServer serves the standard health protocol. HealthService reports
// SERVING while the backend is reachable and NOT_SERVING otherwise; the
// overall server status ("") stays SERVING while the process is up.
type GRPCServer struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	logger   *zerolog.Logger
}

func NewGRPCServer(cfg *config.APIConfig, logger *zerolog.Logger) (*GRPCServer, error) {
	addr := fmt.Sprintf(":%d", cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc listen %s: %w", addr, err)
	}
	return newGRPCServer(cfg, lis, logger), nil
}

func newGRPCServer(cfg *config.APIConfig, lis net.Listener, logger *zerolog.Logger) *GRPCServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	auth := NewAuthInterceptor(cfg)

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			LoggingUnaryInterceptor(logger),
			RecoveryUnaryInterceptor(logger),
			auth.Unary(),
		),
		grpc.ChainStreamInterceptor(
			RecoveryStreamInterceptor(logger),
			auth.Stream(),
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	if cfg.GRPC.Reflection {
		reflection.Register(srv)
	}

	return &GRPCServer{
		server:   srv,
		health:   hs,
		listener: lis,
		logger:   logger,
	}
}

// Track updates HealthService from a sync status snapshot.
func (s *GRPCServer) Track(status models.SyncStatus) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if status.IsOnline {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(HealthService, st)
}

func (s *GRPCServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *GRPCServer) Serve() error {
	s.logger.Info().Str("addr", s.Addr()).Msg("gRPC API listening")
	return s.server.Serve(s.listener)
}

// Shutdown drains in-flight calls, forcing a stop once ctx expires.
func (s *GRPCServer) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn().Msg("gRPC graceful shutdown timed out, forcing stop")
		s.server.Stop()
	}
}
