package rpc

import "github.com/cuemby/muster/internal/types"

// RegisterWorkerRequest is the wire shape for the RegisterWorker handler.
type RegisterWorkerRequest struct {
	ID       string               `json:"id"`
	Address  string               `json:"address"`
	Capacity types.WorkerCapacity `json:"capacity"`
}

// RegisterWorkerResponse carries the assigned worker id back along with the
// shard ring's current epoch, so the worker can detect staleness of any
// ring state it cached from a prior session.
type RegisterWorkerResponse struct {
	ID        string `json:"id"`
	RingEpoch uint64 `json:"ring_epoch"`
}

// HeartbeatRequest reports a worker's training progress.
type HeartbeatRequest struct {
	WorkerID string `json:"worker_id"`
	Step     uint64 `json:"step"`
	Epoch    uint64 `json:"epoch"`
}

// HeartbeatResponse acknowledges a heartbeat with the coordinator's current
// server time, in milliseconds since the UNIX epoch.
type HeartbeatResponse struct {
	ServerTimeMillis int64 `json:"server_time_millis"`
}

// RegisterDatasetRequest describes a dataset to register.
type RegisterDatasetRequest struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Format       string `json:"format"`
	TotalSamples uint64 `json:"total_samples"`
	ShardSize    uint64 `json:"shard_size"`
	Shuffle      bool   `json:"shuffle"`
	Seed         uint64 `json:"seed"`
}

// RegisterDatasetResponse returns the derived shard count.
type RegisterDatasetResponse struct {
	ID         string `json:"id"`
	ShardCount uint64 `json:"shard_count"`
}

// GetShardAssignmentRequest asks which shards of a dataset a worker owns at
// a given epoch.
type GetShardAssignmentRequest struct {
	DatasetID string `json:"dataset_id"`
	WorkerID  string `json:"worker_id"`
	Epoch     uint64 `json:"epoch"`
}

// ShardPath is one resolved shard: its index within the dataset and the
// file path the worker should read.
type ShardPath struct {
	ShardIndex uint64 `json:"shard_index"`
	Path       string `json:"path"`
}

// GetShardAssignmentResponse is the ordered list of shards owned by the
// requesting worker.
type GetShardAssignmentResponse struct {
	Shards []ShardPath `json:"shards"`
}

// WaitBarrierRequest registers a worker's arrival at a named barrier.
type WaitBarrierRequest struct {
	Name          string `json:"name"`
	WorkerID      string `json:"worker_id"`
	RequiredTotal int    `json:"required_total"`
}

// WaitBarrierResponse mirrors barrier.Outcome over the wire.
type WaitBarrierResponse struct {
	Kind       string `json:"kind"` // "waiting", "released", or "aborted"
	Generation uint64 `json:"generation"`
	Arrived    int    `json:"arrived"`
	Required   int    `json:"required"`
	Reason     string `json:"reason,omitempty"`
}

// NotifyCheckpointRequest reports a checkpoint's progress or outcome.
type NotifyCheckpointRequest struct {
	Namespace   string `json:"namespace"`
	WorkerID    string `json:"worker_id"`
	Step        uint64 `json:"step"`
	Epoch       uint64 `json:"epoch"`
	SizeBytes   int64  `json:"size_bytes"`
	StoragePath string `json:"storage_path"`
	Status      string `json:"status"` // "in_progress", "completed", or "failed"
	FailReason  string `json:"fail_reason,omitempty"`
}

// NotifyCheckpointResponse returns the assigned checkpoint id.
type NotifyCheckpointResponse struct {
	ID uint64 `json:"id"`
}

// GetLatestCheckpointRequest asks for the newest completed checkpoint in a
// namespace.
type GetLatestCheckpointRequest struct {
	Namespace string `json:"namespace"`
}

// GetLatestCheckpointResponse carries the checkpoint record, if any.
type GetLatestCheckpointResponse struct {
	Checkpoint *types.Checkpoint `json:"checkpoint"`
}
