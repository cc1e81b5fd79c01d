package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/muster/internal/errs"
	"github.com/cuemby/muster/internal/metrics"
	"github.com/cuemby/muster/internal/rpc"
)

var _ rpc.Handlers = (*Coordinator)(nil)

// RegisterWorker implements internal/rpc.Handlers.
func (c *Coordinator) RegisterWorker(_ context.Context, req *rpc.RegisterWorkerRequest) (*rpc.RegisterWorkerResponse, error) {
	w, err := c.workers.Register(req.ID, req.Address, req.Capacity)
	if err != nil {
		return nil, err
	}
	return &rpc.RegisterWorkerResponse{ID: w.ID, RingEpoch: c.ring.Epoch()}, nil
}

// Heartbeat implements internal/rpc.Handlers.
func (c *Coordinator) Heartbeat(_ context.Context, req *rpc.HeartbeatRequest) (*rpc.HeartbeatResponse, error) {
	if err := c.workers.Heartbeat(req.WorkerID, req.Step, req.Epoch); err != nil {
		return nil, err
	}
	return &rpc.HeartbeatResponse{ServerTimeMillis: time.Now().UnixMilli()}, nil
}

// RegisterDataset implements internal/rpc.Handlers.
func (c *Coordinator) RegisterDataset(_ context.Context, req *rpc.RegisterDatasetRequest) (*rpc.RegisterDatasetResponse, error) {
	ds, err := c.datasets.Register(req.ID, req.Path, req.Format, req.TotalSamples, req.ShardSize, req.Shuffle, req.Seed)
	if err != nil {
		return nil, err
	}
	return &rpc.RegisterDatasetResponse{ID: ds.ID, ShardCount: ds.ShardCount}, nil
}

// GetShardAssignment implements internal/rpc.Handlers. The epoch folded
// into the ring hash is the request's epoch when the dataset has shuffle
// enabled, and 0 otherwise, so shard ownership stays stable across epochs
// for non-shuffling datasets per internal/ring's hashKey contract.
func (c *Coordinator) GetShardAssignment(_ context.Context, req *rpc.GetShardAssignmentRequest) (*rpc.GetShardAssignmentResponse, error) {
	ds, ok := c.datasets.Get(req.DatasetID)
	if !ok {
		return nil, errs.Newf(errs.UnknownDataset, "dataset %q not registered", req.DatasetID)
	}
	if _, ok := c.workers.Get(req.WorkerID); !ok {
		return nil, errs.Newf(errs.UnknownWorker, "worker %q not registered", req.WorkerID)
	}

	epoch := uint64(0)
	if ds.Shuffle {
		epoch = req.Epoch
	}

	assignment, err := c.ring.AssignAll(ds.ID, epoch, ds.ShardCount)
	if err != nil {
		return nil, err
	}

	owned := assignment[req.WorkerID]
	shards := make([]rpc.ShardPath, 0, len(owned))
	for _, idx := range owned {
		shards = append(shards, rpc.ShardPath{
			ShardIndex: idx,
			Path:       shardPath(ds.Path, idx, ds.Format),
		})
	}
	return &rpc.GetShardAssignmentResponse{Shards: shards}, nil
}

func shardPath(datasetPath string, shardIndex uint64, format string) string {
	return fmt.Sprintf("%s/shard_%d.%s", datasetPath, shardIndex, format)
}

// WaitBarrier implements internal/rpc.Handlers.
func (c *Coordinator) WaitBarrier(ctx context.Context, req *rpc.WaitBarrierRequest) (*rpc.WaitBarrierResponse, error) {
	outcome, err := c.barriers.Arrive(ctx, req.Name, req.WorkerID, req.RequiredTotal)
	if err != nil {
		return nil, err
	}
	return &rpc.WaitBarrierResponse{
		Kind:       string(outcome.Kind),
		Generation: outcome.Generation,
		Arrived:    outcome.Arrived,
		Required:   outcome.Required,
		Reason:     outcome.Reason,
	}, nil
}

// NotifyCheckpoint implements internal/rpc.Handlers. RegisterInProgress is
// idempotent per (namespace, worker_id, step), so every status notification
// for a given checkpoint attempt resolves to the same record before
// transitioning it.
func (c *Coordinator) NotifyCheckpoint(ctx context.Context, req *rpc.NotifyCheckpointRequest) (*rpc.NotifyCheckpointResponse, error) {
	rec, err := c.checkpoints.RegisterInProgress(ctx, req.Namespace, req.WorkerID, req.Step, req.Epoch)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case "in_progress":
		metrics.CheckpointsTotal.WithLabelValues("in_progress").Inc()
		return &rpc.NotifyCheckpointResponse{ID: rec.ID}, nil
	case "completed":
		rec, err = c.checkpoints.Complete(ctx, rec.ID, req.SizeBytes, req.StoragePath)
		if err != nil {
			return nil, err
		}
		metrics.CheckpointsTotal.WithLabelValues("completed").Inc()
		metrics.CheckpointSizeBytes.Observe(float64(req.SizeBytes))
		return &rpc.NotifyCheckpointResponse{ID: rec.ID}, nil
	case "failed":
		rec, err = c.checkpoints.Fail(ctx, rec.ID, req.FailReason)
		if err != nil {
			return nil, err
		}
		metrics.CheckpointsTotal.WithLabelValues("failed").Inc()
		return &rpc.NotifyCheckpointResponse{ID: rec.ID}, nil
	default:
		return nil, errs.Newf(errs.Invalid, "unknown checkpoint status %q", req.Status)
	}
}

// GetLatestCheckpoint implements internal/rpc.Handlers.
func (c *Coordinator) GetLatestCheckpoint(_ context.Context, req *rpc.GetLatestCheckpointRequest) (*rpc.GetLatestCheckpointResponse, error) {
	cp, ok := c.checkpoints.Latest(req.Namespace)
	if !ok {
		return nil, errs.Newf(errs.NotFound, "no checkpoint for namespace %q", req.Namespace)
	}
	return &rpc.GetLatestCheckpointResponse{Checkpoint: cp}, nil
}
