package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified name under which the coordinator's
// worker RPC methods are registered.
const ServiceName = "muster.Coordinator"

// Handlers is implemented by internal/coordinator and wires every RPC
// method in §4.6 to the underlying components (ring, registries, barrier
// registry, checkpoint index).
type Handlers interface {
	RegisterWorker(ctx context.Context, req *RegisterWorkerRequest) (*RegisterWorkerResponse, error)
	Heartbeat(ctx context.Context, req *HeartbeatRequest) (*HeartbeatResponse, error)
	RegisterDataset(ctx context.Context, req *RegisterDatasetRequest) (*RegisterDatasetResponse, error)
	GetShardAssignment(ctx context.Context, req *GetShardAssignmentRequest) (*GetShardAssignmentResponse, error)
	WaitBarrier(ctx context.Context, req *WaitBarrierRequest) (*WaitBarrierResponse, error)
	NotifyCheckpoint(ctx context.Context, req *NotifyCheckpointRequest) (*NotifyCheckpointResponse, error)
	GetLatestCheckpoint(ctx context.Context, req *GetLatestCheckpointRequest) (*GetLatestCheckpointResponse, error)
}

// RegisterCoordinatorServer attaches handlers to s under ServiceDesc, the
// hand-written equivalent of what protoc-gen-go-grpc would generate from a
// .proto file.
func RegisterCoordinatorServer(s *grpc.Server, handlers Handlers) {
	s.RegisterService(&serviceDesc, handlers)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handlers)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterWorker", Handler: registerWorkerHandler},
		{MethodName: "Heartbeat", Handler: heartbeatHandler},
		{MethodName: "RegisterDataset", Handler: registerDatasetHandler},
		{MethodName: "GetShardAssignment", Handler: getShardAssignmentHandler},
		{MethodName: "WaitBarrier", Handler: waitBarrierHandler},
		{MethodName: "NotifyCheckpoint", Handler: notifyCheckpointHandler},
		{MethodName: "GetLatestCheckpoint", Handler: getLatestCheckpointHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/rpc/service.go",
}

func registerWorkerHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RegisterWorkerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handlers).RegisterWorker(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/RegisterWorker"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handlers).RegisterWorker(ctx, req.(*RegisterWorkerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func heartbeatHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HeartbeatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handlers).Heartbeat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Heartbeat"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handlers).Heartbeat(ctx, req.(*HeartbeatRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func registerDatasetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RegisterDatasetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handlers).RegisterDataset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/RegisterDataset"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handlers).RegisterDataset(ctx, req.(*RegisterDatasetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getShardAssignmentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetShardAssignmentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handlers).GetShardAssignment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetShardAssignment"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handlers).GetShardAssignment(ctx, req.(*GetShardAssignmentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func waitBarrierHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(WaitBarrierRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handlers).WaitBarrier(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/WaitBarrier"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handlers).WaitBarrier(ctx, req.(*WaitBarrierRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func notifyCheckpointHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(NotifyCheckpointRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handlers).NotifyCheckpoint(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/NotifyCheckpoint"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handlers).NotifyCheckpoint(ctx, req.(*NotifyCheckpointRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getLatestCheckpointHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetLatestCheckpointRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handlers).GetLatestCheckpoint(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetLatestCheckpoint"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handlers).GetLatestCheckpoint(ctx, req.(*GetLatestCheckpointRequest))
	}
	return interceptor(ctx, in, info, handler)
}
