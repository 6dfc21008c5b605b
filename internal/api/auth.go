package api

import (
	"context"
	"errors"
	"strings"

	"offlinesync/internal/config"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// AuthInterceptor guards gRPC calls with the configured API keys.
type AuthInterceptor struct {
	guard *guard
}

func NewAuthInterceptor(cfg *config.APIConfig) *AuthInterceptor {
	return &AuthInterceptor{guard: newGuard(*cfg)}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := a.authorize(ctx, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// Stream guards streaming calls such as health Watch.
func (a *AuthInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := a.authorize(ss.Context(), info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

func (a *AuthInterceptor) authorize(ctx context.Context, fullMethod string) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok && a.guard.enabled {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}

	apiKey := firstValue(md.Get(a.guard.header))
	caller := apiKey
	if caller == "" {
		caller = peerAddr(ctx)
	}

	err := a.guard.check(apiKey, caller, requiredPermission(fullMethod))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, errThrottled):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Unauthenticated, err.Error())
	}
}

func requiredPermission(fullMethod string) string {
	if strings.HasPrefix(fullMethod, "/grpc.health.v1.Health/") {
		return permReadStatus
	}
	return ""
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

func firstValue(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
