package api

import (
	"context"
	"testing"

	"offlinesync/internal/config"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

func okHandler(context.Context, any) (any, error) { return "ok", nil }

func withKey(key string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", key))
}

func TestAuthInterceptor(t *testing.T) {
	cfg := config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "status-key", Name: "monitor", Permissions: []string{"read:status"}},
				{Key: "queue-key", Name: "ops", Permissions: []string{"read:queue"}},
			},
		},
	}
	interceptor := NewAuthInterceptor(&cfg).Unary()
	info := &grpc.UnaryServerInfo{FullMethod: healthCheckMethod}

	tests := []struct {
		name string
		ctx  context.Context
		want codes.Code
	}{
		{"valid key", withKey("status-key"), codes.OK},
		{"no metadata", context.Background(), codes.Unauthenticated},
		{"no key header", metadata.NewIncomingContext(context.Background(), metadata.Pairs()), codes.Unauthenticated},
		{"unknown key", withKey("invalid"), codes.Unauthenticated},
		{"key without permission", withKey("queue-key"), codes.PermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := interceptor(tt.ctx, "req", info, okHandler)
			assert.Equal(t, tt.want, status.Code(err))
			if tt.want == codes.OK {
				assert.Equal(t, "ok", resp)
			}
		})
	}
}

func TestAuthInterceptorStream(t *testing.T) {
	cfg := config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{{Key: "k"}},
		},
	}
	interceptor := NewAuthInterceptor(&cfg).Stream()
	info := &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch"}

	called := false
	handler := func(any, grpc.ServerStream) error {
		called = true
		return nil
	}

	err := interceptor(nil, &fakeStream{ctx: withKey("k")}, info, handler)
	assert.NoError(t, err)
	assert.True(t, called)

	called = false
	err = interceptor(nil, &fakeStream{ctx: withKey("other")}, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.False(t, called)
}

func TestAuthInterceptorRateLimitPerKey(t *testing.T) {
	cfg := config.APIConfig{RateLimit: config.RateLimitConfig{RPS: 1, Burst: 1}}
	interceptor := NewAuthInterceptor(&cfg).Unary()
	info := &grpc.UnaryServerInfo{FullMethod: "test"}

	_, err := interceptor(withKey("key1"), "req", info, okHandler)
	assert.NoError(t, err)

	_, err = interceptor(withKey("key1"), "req", info, okHandler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = interceptor(withKey("key2"), "req", info, okHandler)
	assert.NoError(t, err)
}

func TestGuardPermissions(t *testing.T) {
	g := newGuard(config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "reader", Permissions: []string{" read:queue "}},
				{Key: "admin"},
			},
		},
	})

	assert.NoError(t, g.check("reader", "reader", permReadQueue))
	assert.ErrorIs(t, g.check("reader", "reader", permWriteSync), errForbidden)
	assert.NoError(t, g.check("admin", "admin", permWriteSync))
	assert.NoError(t, g.check("reader", "reader", ""))
	assert.ErrorIs(t, g.check("", "10.0.0.1", permReadQueue), errMissingKey)
	assert.ErrorIs(t, g.check("bogus", "bogus", permReadQueue), errInvalidKey)
}

func TestGuardDisabledAuthStillThrottles(t *testing.T) {
	g := newGuard(config.APIConfig{RateLimit: config.RateLimitConfig{RPS: 0.001, Burst: 2}})

	assert.NoError(t, g.check("", "10.0.0.1", permReadStatus))
	assert.NoError(t, g.check("", "10.0.0.1", permReadStatus))
	assert.ErrorIs(t, g.check("", "10.0.0.1", permReadStatus), errThrottled)
	assert.NoError(t, g.check("", "10.0.0.2", permReadStatus))
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	interceptor := LoggingUnaryInterceptor(nil)
	info := &grpc.UnaryServerInfo{FullMethod: "test"}

	resp, err := interceptor(context.Background(), "req", info, okHandler)
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestRequestIDFromMetadata(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDMetadataKey, "req-1"))
	assert.Equal(t, "req-1", requestIDFromMetadata(ctx))
	assert.NotEmpty(t, requestIDFromMetadata(context.Background()))
}

func TestRecoveryInterceptors(t *testing.T) {
	unary := RecoveryUnaryInterceptor(nil)
	_, err := unary(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "test"}, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))

	stream := RecoveryStreamInterceptor(nil)
	err = stream(nil, &fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{FullMethod: "test"}, func(any, grpc.ServerStream) error {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestRequiredPermission(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{healthCheckMethod, "read:status"},
		{"/grpc.health.v1.Health/Watch", "read:status"},
		{"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo", ""},
		{"other", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, requiredPermission(tt.method))
	}
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeStream) Context() context.Context { return s.ctx }
