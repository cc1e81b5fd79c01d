package rpc

import (
	"fmt"
	"net"

	"github.com/cuemby/muster/internal/logging"
	"google.golang.org/grpc"
)

// Server wraps a grpc.Server configured to speak the JSON codec instead of
// protobuf wire format, mirroring the Start/Stop shape the coordinator's
// ambient stack uses for every long-running listener.
type Server struct {
	grpc *grpc.Server
}

// NewServer constructs the RPC surface, registers handlers against it, and
// chains any interceptors supplied (validation, rate limiting, metrics)
// behind statusInterceptor, which always runs outermost so every error —
// whatever produced it — leaves with a proper gRPC status code.
func NewServer(handlers Handlers, interceptors ...grpc.UnaryServerInterceptor) *Server {
	chain := append([]grpc.UnaryServerInterceptor{statusInterceptor}, interceptors...)
	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.ChainUnaryInterceptor(chain...),
	}
	s := grpc.NewServer(opts...)
	RegisterCoordinatorServer(s, handlers)
	return &Server{grpc: s}
}

// Start listens on addr and blocks serving RPCs until the server is
// stopped or the listener fails.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc: listen on %s: %w", addr, err)
	}
	logging.WithComponent("rpc").Info().Str("addr", addr).Msg("rpc surface listening")
	return s.grpc.Serve(lis)
}

// Stop gracefully drains in-flight RPCs before returning.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}
