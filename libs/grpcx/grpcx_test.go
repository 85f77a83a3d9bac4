package grpcx

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
)

func TestCheckHealthAgainstServer(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv, hs := NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	ctx := context.Background()
	hs.SetServingStatus("booking", healthpb.HealthCheckResponse_SERVING)
	require.NoError(t, CheckHealth(ctx, lis.Addr().String(), "booking", 2*time.Second))

	hs.SetServingStatus("booking", healthpb.HealthCheckResponse_NOT_SERVING)
	err = CheckHealth(ctx, lis.Addr().String(), "booking", 2*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_SERVING")
}

func TestWithRequestIDIgnoresEmpty(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithRequestID(ctx, ""))
	assert.Equal(t, "r-1", RequestIDFromContext(WithRequestID(ctx, "r-1")))
}

func TestServerInterceptorKeepsIncomingRequestID(t *testing.T) {
	intercept := UnaryServerRequestIDInterceptor()
	var seen string
	handler := func(ctx context.Context, _ any) (any, error) {
		seen = RequestIDFromContext(ctx)
		return nil, nil
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDMetadataKey, "req-42"))
	_, err := intercept(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/test/Method"}, handler)
	require.NoError(t, err)
	assert.Equal(t, "req-42", seen)

	_, err = intercept(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/test/Method"}, handler)
	require.NoError(t, err)
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "req-42", seen)
}
