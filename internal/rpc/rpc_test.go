package rpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/muster/internal/types"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := jsonCodec{}
	in := &RegisterWorkerRequest{
		ID:      "worker-1",
		Address: "10.0.0.5:9090",
		Capacity: types.WorkerCapacity{
			GPUCount:    4,
			MemoryBytes: 1 << 30,
		},
	}

	data, err := codec.Marshal(in)
	require.NoError(t, err)

	out := new(RegisterWorkerRequest)
	require.NoError(t, codec.Unmarshal(data, out))
	require.Equal(t, in, out)
	require.Equal(t, "json", codec.Name())
}

func TestJSONCodecRoundTripCheckpointResponse(t *testing.T) {
	codec := jsonCodec{}
	now := time.Unix(1700000000, 0).UTC()
	in := &GetLatestCheckpointResponse{
		Checkpoint: &types.Checkpoint{
			ID:          42,
			Namespace:   "run-a",
			Step:        1000,
			Status:      types.CheckpointCompleted,
			StoragePath: "/data/ckpt/run-a/1000",
			CreatedAt:   now,
		},
	}

	data, err := codec.Marshal(in)
	require.NoError(t, err)

	out := new(GetLatestCheckpointResponse)
	require.NoError(t, codec.Unmarshal(data, out))
	require.Equal(t, in.Checkpoint.ID, out.Checkpoint.ID)
	require.Equal(t, in.Checkpoint.Namespace, out.Checkpoint.Namespace)
	require.True(t, in.Checkpoint.CreatedAt.Equal(out.Checkpoint.CreatedAt))
}

// fakeHandlers implements Handlers for exercising the hand-rolled
// grpc.MethodDesc wrappers directly, without a live network listener.
type fakeHandlers struct {
	registerWorkerCalled bool
	failWith             error
}

func (f *fakeHandlers) RegisterWorker(ctx context.Context, req *RegisterWorkerRequest) (*RegisterWorkerResponse, error) {
	f.registerWorkerCalled = true
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &RegisterWorkerResponse{ID: req.ID, RingEpoch: 3}, nil
}

func (f *fakeHandlers) Heartbeat(ctx context.Context, req *HeartbeatRequest) (*HeartbeatResponse, error) {
	return &HeartbeatResponse{ServerTimeMillis: 1}, nil
}

func (f *fakeHandlers) RegisterDataset(ctx context.Context, req *RegisterDatasetRequest) (*RegisterDatasetResponse, error) {
	return &RegisterDatasetResponse{ID: req.ID}, nil
}

func (f *fakeHandlers) GetShardAssignment(ctx context.Context, req *GetShardAssignmentRequest) (*GetShardAssignmentResponse, error) {
	return &GetShardAssignmentResponse{}, nil
}

func (f *fakeHandlers) WaitBarrier(ctx context.Context, req *WaitBarrierRequest) (*WaitBarrierResponse, error) {
	return &WaitBarrierResponse{Kind: "waiting"}, nil
}

func (f *fakeHandlers) NotifyCheckpoint(ctx context.Context, req *NotifyCheckpointRequest) (*NotifyCheckpointResponse, error) {
	return &NotifyCheckpointResponse{ID: 7}, nil
}

func (f *fakeHandlers) GetLatestCheckpoint(ctx context.Context, req *GetLatestCheckpointRequest) (*GetLatestCheckpointResponse, error) {
	return &GetLatestCheckpointResponse{}, nil
}

func TestRegisterWorkerHandlerDecodesAndDispatches(t *testing.T) {
	srv := &fakeHandlers{}
	dec := func(v any) error {
		req := v.(*RegisterWorkerRequest)
		*req = RegisterWorkerRequest{ID: "w-1"}
		return nil
	}

	out, err := registerWorkerHandler(srv, context.Background(), dec, nil)
	require.NoError(t, err)
	require.True(t, srv.registerWorkerCalled)
	resp := out.(*RegisterWorkerResponse)
	require.Equal(t, "w-1", resp.ID)
	require.Equal(t, uint64(3), resp.RingEpoch)
}

func TestRegisterWorkerHandlerPropagatesDecodeError(t *testing.T) {
	srv := &fakeHandlers{}
	wantErr := errors.New("boom")
	dec := func(v any) error { return wantErr }

	_, err := registerWorkerHandler(srv, context.Background(), dec, nil)
	require.ErrorIs(t, err, wantErr)
	require.False(t, srv.registerWorkerCalled)
}

func TestRegisterWorkerHandlerPropagatesHandlerError(t *testing.T) {
	wantErr := errors.New("already registered")
	srv := &fakeHandlers{failWith: wantErr}
	dec := func(v any) error {
		*(v.(*RegisterWorkerRequest)) = RegisterWorkerRequest{ID: "w-1"}
		return nil
	}

	_, err := registerWorkerHandler(srv, context.Background(), dec, nil)
	require.ErrorIs(t, err, wantErr)
}

func TestRegisterWorkerHandlerRunsInterceptorChain(t *testing.T) {
	srv := &fakeHandlers{}
	dec := func(v any) error {
		*(v.(*RegisterWorkerRequest)) = RegisterWorkerRequest{ID: "w-2"}
		return nil
	}

	var sawMethod string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		sawMethod = info.FullMethod
		return handler(ctx, req)
	}

	out, err := registerWorkerHandler(srv, context.Background(), dec, interceptor)
	require.NoError(t, err)
	require.Equal(t, "/"+ServiceName+"/RegisterWorker", sawMethod)
	resp := out.(*RegisterWorkerResponse)
	require.Equal(t, "w-2", resp.ID)
}

func TestServiceDescListsAllSevenMethods(t *testing.T) {
	require.Len(t, serviceDesc.Methods, 7)
	names := make(map[string]bool, len(serviceDesc.Methods))
	for _, m := range serviceDesc.Methods {
		names[m.MethodName] = true
	}
	for _, want := range []string{
		"RegisterWorker", "Heartbeat", "RegisterDataset", "GetShardAssignment",
		"WaitBarrier", "NotifyCheckpoint", "GetLatestCheckpoint",
	} {
		require.True(t, names[want], "missing method %s", want)
	}
}
