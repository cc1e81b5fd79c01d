package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestMethodNameExtractsBareName(t *testing.T) {
	require.Equal(t, "RegisterWorker", methodName("/muster.Coordinator/RegisterWorker"))
}

func TestMetricsInterceptorPassesThroughResultAndError(t *testing.T) {
	interceptor := MetricsInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/muster.Coordinator/Heartbeat"}

	okHandler := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	resp, err := interceptor(context.Background(), nil, info, okHandler)
	require.NoError(t, err)
	require.Equal(t, "ok", resp)

	wantErr := errors.New("boom")
	failHandler := func(ctx context.Context, req any) (any, error) { return nil, wantErr }
	_, err = interceptor(context.Background(), nil, info, failHandler)
	require.ErrorIs(t, err, wantErr)
}
