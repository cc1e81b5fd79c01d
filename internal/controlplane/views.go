package controlplane

import (
	"time"

	"github.com/cuemby/muster/internal/types"
)

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

type workerView struct {
	ID                 string               `json:"id"`
	Address            string               `json:"address"`
	Capacity           types.WorkerCapacity `json:"capacity"`
	Status             types.WorkerStatus   `json:"status"`
	LastHeartbeatMs    int64                `json:"last_heartbeat_ms"`
	CurrentEpoch       uint64               `json:"current_epoch"`
	CurrentStep        uint64               `json:"current_step"`
	AssignedShardCount int                  `json:"assigned_shard_count"`
	RegisteredAtMs     int64                `json:"registered_at_ms"`
	FailedAtMs         int64                `json:"failed_at_ms,omitempty"`
}

func newWorkerView(w *types.Worker) workerView {
	return workerView{
		ID:                 w.ID,
		Address:            w.Address,
		Capacity:           w.Capacity,
		Status:             w.Status,
		LastHeartbeatMs:    millis(w.LastHeartbeat),
		CurrentEpoch:       w.CurrentEpoch,
		CurrentStep:        w.CurrentStep,
		AssignedShardCount: w.AssignedShardCount,
		RegisteredAtMs:     millis(w.RegisteredAt),
		FailedAtMs:         millis(w.FailedAt),
	}
}

type datasetView struct {
	ID             string `json:"id"`
	Path           string `json:"path"`
	Format         string `json:"format"`
	TotalSamples   uint64 `json:"total_samples"`
	ShardSize      uint64 `json:"shard_size"`
	ShardCount     uint64 `json:"shard_count"`
	Shuffle        bool   `json:"shuffle"`
	Seed           uint64 `json:"seed"`
	RegisteredAtMs int64  `json:"registered_at_ms"`
}

func newDatasetView(d *types.Dataset) datasetView {
	return datasetView{
		ID:             d.ID,
		Path:           d.Path,
		Format:         d.Format,
		TotalSamples:   d.TotalSamples,
		ShardSize:      d.ShardSize,
		ShardCount:     d.ShardCount,
		Shuffle:        d.Shuffle,
		Seed:           d.Seed,
		RegisteredAtMs: millis(d.RegisteredAt),
	}
}

type checkpointView struct {
	ID            uint64 `json:"id"`
	Namespace     string `json:"namespace"`
	Step          uint64 `json:"step"`
	Epoch         uint64 `json:"epoch"`
	SizeBytes     int64  `json:"size_bytes"`
	StoragePath   string `json:"storage_path"`
	Status        string `json:"status"`
	WorkerID      string `json:"worker_id"`
	FailReason    string `json:"fail_reason,omitempty"`
	CreatedAtMs   int64  `json:"created_at_ms"`
	CompletedAtMs int64  `json:"completed_at_ms,omitempty"`
}

func newCheckpointView(c *types.Checkpoint) checkpointView {
	return checkpointView{
		ID:            c.ID,
		Namespace:     c.Namespace,
		Step:          c.Step,
		Epoch:         c.Epoch,
		SizeBytes:     c.SizeBytes,
		StoragePath:   c.StoragePath,
		Status:        string(c.Status),
		WorkerID:      c.WorkerID,
		FailReason:    c.FailReason,
		CreatedAtMs:   millis(c.CreatedAt),
		CompletedAtMs: millis(c.CompletedAt),
	}
}

type barrierView struct {
	Name          string `json:"name"`
	Generation    uint64 `json:"generation"`
	RequiredTotal int    `json:"required_total"`
	Arrived       int    `json:"arrived"`
	Status        string `json:"status"`
	AbortReason   string `json:"abort_reason,omitempty"`
	CreatedAtMs   int64  `json:"created_at_ms"`
}

func newBarrierView(b types.BarrierSnapshot) barrierView {
	return barrierView{
		Name:          b.Name,
		Generation:    b.Generation,
		RequiredTotal: b.RequiredTotal,
		Arrived:       b.Arrived,
		Status:        string(b.Status),
		AbortReason:   b.AbortReason,
		CreatedAtMs:   millis(b.CreatedAt),
	}
}

type taskView struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Kind            string   `json:"kind"`
	Status          string   `json:"status"`
	WorkerIDs       []string `json:"worker_ids"`
	DatasetID       string   `json:"dataset_id,omitempty"`
	ProgressPercent int      `json:"progress_percent"`
	StartedAtMs     int64    `json:"started_at_ms"`
	CompletedAtMs   int64    `json:"completed_at_ms,omitempty"`
	LogTail         []string `json:"log_tail,omitempty"`
}

func newTaskView(tk *types.Task) taskView {
	return taskView{
		ID:              tk.ID,
		Name:            tk.Name,
		Kind:            tk.Kind,
		Status:          string(tk.Status),
		WorkerIDs:       tk.WorkerIDs,
		DatasetID:       tk.DatasetID,
		ProgressPercent: tk.ProgressPercent,
		StartedAtMs:     millis(tk.StartedAt),
		CompletedAtMs:   millis(tk.CompletedAt),
		LogTail:         tk.LogTail,
	}
}
