package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cuemby/muster/internal/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// methodName extracts the bare RPC name from a full method path, e.g.
// "/muster.Coordinator/RegisterWorker" -> "RegisterWorker".
func methodName(fullMethod string) string {
	parts := strings.Split(fullMethod, "/")
	return parts[len(parts)-1]
}

// MetricsInterceptor records a request-count and latency sample per
// handler, labeled by method and outcome status, feeding the rolled-up
// view the control-plane read API exposes.
func MetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		method := methodName(info.FullMethod)
		timer := metrics.NewTimer()

		resp, err := handler(ctx, req)

		timer.ObserveDurationVec(metrics.RPCRequestDuration, method)
		metrics.RPCRequestsTotal.WithLabelValues(method, statusLabel(err)).Inc()

		return resp, err
	}
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return status.Code(err).String()
}
