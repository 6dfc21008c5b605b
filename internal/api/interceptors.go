package api

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const requestIDMetadataKey = "x-request-id"

// LoggingUnaryInterceptor logs one line per call and echoes the request id
// back in the response header, generating one when the caller sent none.
func LoggingUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)

		log.Info().
			Str("request_id", requestID).
			Str("method", info.FullMethod).
			Str("remote", peerAddr(ctx)).
			Stringer("code", status.Code(err)).
			Dur("dur", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}

func requestIDFromMetadata(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if id := firstValue(md.Get(requestIDMetadataKey)); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// RecoveryUnaryInterceptor converts handler panics into codes.Internal.
func RecoveryUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer recoverInto(logger, info.FullMethod, &err)
		return handler(ctx, req)
	}
}

// RecoveryStreamInterceptor is the streaming counterpart of
// RecoveryUnaryInterceptor.
func RecoveryStreamInterceptor(logger *zerolog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer recoverInto(logger, info.FullMethod, &err)
		return handler(srv, ss)
	}
}

func recoverInto(logger *zerolog.Logger, method string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	if logger != nil {
		logger.Error().
			Interface("panic", r).
			Str("method", method).
			Bytes("stack", debug.Stack()).
			Msg("grpc handler panicked")
	}
	*err = status.Error(codes.Internal, "internal error")
}
