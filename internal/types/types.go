package types

import "time"

// WorkerID is an opaque, caller-supplied identifier, unique within the
// coordinator's lifetime. Must match [A-Za-z0-9_-]{1,128}.
type WorkerID = string

// WorkerStatus is the lifecycle state of a registered worker.
type WorkerStatus string

const (
	WorkerActive WorkerStatus = "active"
	WorkerIdle   WorkerStatus = "idle"
	WorkerFailed WorkerStatus = "failed"
)

// WorkerCapacity describes the resources a worker reported at registration.
type WorkerCapacity struct {
	GPUCount    int   `json:"gpu_count"`
	MemoryBytes int64 `json:"memory_bytes"`
}

// Worker is exclusively owned by internal/registry. It is created on
// RegisterWorker, mutated by Heartbeat, the liveness sweeper, and a
// RegisterWorker that revives a Failed worker, and destroyed only by
// explicit deregistration; a Failed worker is not removed automatically.
type Worker struct {
	ID                 WorkerID       `json:"id"`
	Address            string         `json:"address"`
	Capacity           WorkerCapacity `json:"capacity"`
	Status             WorkerStatus   `json:"status"`
	LastHeartbeat      time.Time      `json:"last_heartbeat"`
	CurrentEpoch       uint64         `json:"current_epoch"`
	CurrentStep        uint64         `json:"current_step"`
	AssignedShardCount int            `json:"assigned_shard_count"`
	RegisteredAt       time.Time      `json:"registered_at"`
	FailedAt           time.Time      `json:"failed_at,omitempty"`
}

// Dataset is immutable once registered. Re-registering an id with
// different content fails with errs.AlreadyRegistered.
type Dataset struct {
	ID           string    `json:"id"`
	Path         string    `json:"path"`
	Format       string    `json:"format"`
	TotalSamples uint64    `json:"total_samples"`
	ShardSize    uint64    `json:"shard_size"`
	ShardCount   uint64    `json:"shard_count"`
	Shuffle      bool      `json:"shuffle"`
	Seed         uint64    `json:"seed"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ShardAssignment is derived, never stored: computed on demand by the
// shard ring and expanded into a storage path by the RPC surface.
type ShardAssignment struct {
	DatasetID     string `json:"dataset_id"`
	Epoch         uint64 `json:"epoch"`
	ShardIndex    uint64 `json:"shard_index"`
	OwnerWorkerID string `json:"owner_worker_id"`
	Path          string `json:"path"`
}

// BarrierStatus is the lifecycle state of a named barrier round.
type BarrierStatus string

const (
	BarrierGathering BarrierStatus = "gathering"
	BarrierReleased  BarrierStatus = "released"
	BarrierAborted   BarrierStatus = "aborted"
)

// BarrierSnapshot is a read-only view of a barrier's current round, used by
// the control plane and by tests; it never aliases the live barrier state.
type BarrierSnapshot struct {
	Name          string        `json:"name"`
	Generation    uint64        `json:"generation"`
	RequiredTotal int           `json:"required_total"`
	Arrived       int           `json:"arrived"`
	Status        BarrierStatus `json:"status"`
	AbortReason   string        `json:"abort_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// CheckpointStatus is the lifecycle state of a checkpoint record.
type CheckpointStatus string

const (
	CheckpointInProgress CheckpointStatus = "in_progress"
	CheckpointCompleted  CheckpointStatus = "completed"
	CheckpointFailed     CheckpointStatus = "failed"
)

// Checkpoint is exclusively owned by internal/checkpoint. It is created
// InProgress on notification and transitions to Completed or Failed;
// Failed is terminal.
type Checkpoint struct {
	ID          uint64           `json:"id"`
	Namespace   string           `json:"namespace"`
	Step        uint64           `json:"step"`
	Epoch       uint64           `json:"epoch"`
	SizeBytes   int64            `json:"size_bytes"`
	StoragePath string           `json:"storage_path"`
	Status      CheckpointStatus `json:"status"`
	WorkerID    WorkerID         `json:"worker_id"`
	FailReason  string           `json:"fail_reason,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt time.Time        `json:"completed_at,omitempty"`
}

// TaskStatus is the lifecycle state of an operator task annotation. Tasks
// are pure bookkeeping: they never gate sharding, barriers, or checkpoint
// acceptance.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task is an operator-driven annotation over the fleet, owned by
// internal/controlplane.
type Task struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Kind            string     `json:"kind"`
	Status          TaskStatus `json:"status"`
	WorkerIDs       []string   `json:"worker_ids"`
	DatasetID       string     `json:"dataset_id,omitempty"`
	ProgressPercent int        `json:"progress_percent"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     time.Time  `json:"completed_at,omitempty"`
	LogTail         []string   `json:"log_tail,omitempty"`
}
