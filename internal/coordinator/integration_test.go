package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/muster/internal/barrier"
	"github.com/cuemby/muster/internal/config"
	"github.com/cuemby/muster/internal/rpc"
	"github.com/cuemby/muster/internal/types"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T, mutate func(*config.Config)) *Coordinator {
	t.Helper()
	cfg := config.Defaults()
	cfg.Storage.DataDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	co, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, co.checkpoints.Rehydrate(context.Background()))
	return co
}

func registerWorkers(t *testing.T, co *Coordinator, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := co.RegisterWorker(context.Background(), &rpc.RegisterWorkerRequest{
			ID:      id,
			Address: id + ":9090",
		})
		require.NoError(t, err)
	}
}

// Scenario 1: balanced assignment across 4 workers and a non-shuffling
// dataset with exactly one shard per worker.
func TestScenarioBalancedAssignment(t *testing.T) {
	co := newTestCoordinator(t, nil)
	ctx := context.Background()

	registerWorkers(t, co, "w0", "w1", "w2", "w3")
	// Ring rebuilds are coalesced on a debounce timer; give it a moment.
	time.Sleep(100 * time.Millisecond)
	_, err := co.RegisterDataset(ctx, &rpc.RegisterDatasetRequest{
		ID: "d1", Path: "/data/d1", Format: "jsonl",
		TotalSamples: 40000, ShardSize: 10000, Shuffle: false,
	})
	require.NoError(t, err)

	seen := make(map[uint64]string)
	for _, w := range []string{"w0", "w1", "w2", "w3"} {
		resp, err := co.GetShardAssignment(ctx, &rpc.GetShardAssignmentRequest{DatasetID: "d1", WorkerID: w})
		require.NoError(t, err)
		require.Len(t, resp.Shards, 1)
		for _, s := range resp.Shards {
			_, dup := seen[s.ShardIndex]
			require.False(t, dup, "shard %d assigned to more than one worker", s.ShardIndex)
			seen[s.ShardIndex] = w
			require.Equal(t, "/data/d1/shard_"+itoa(s.ShardIndex)+".jsonl", s.Path)
		}
	}
	require.Len(t, seen, 4)
	for i := uint64(0); i < 4; i++ {
		require.Contains(t, seen, i)
	}
}

// Scenario 2: adding a 5th worker moves at most one shard and the owner set
// remains a partition of the same shard indices.
func TestScenarioStableOnRehash(t *testing.T) {
	co := newTestCoordinator(t, nil)
	ctx := context.Background()

	registerWorkers(t, co, "w0", "w1", "w2", "w3")
	// Ring rebuilds are coalesced on a debounce timer; give it a moment.
	time.Sleep(100 * time.Millisecond)
	_, err := co.RegisterDataset(ctx, &rpc.RegisterDatasetRequest{
		ID: "d1", Path: "/data/d1", Format: "jsonl",
		TotalSamples: 40000, ShardSize: 10000, Shuffle: false,
	})
	require.NoError(t, err)

	before := make(map[uint64]string)
	for _, w := range []string{"w0", "w1", "w2", "w3"} {
		resp, err := co.GetShardAssignment(ctx, &rpc.GetShardAssignmentRequest{DatasetID: "d1", WorkerID: w})
		require.NoError(t, err)
		for _, s := range resp.Shards {
			before[s.ShardIndex] = w
		}
	}

	registerWorkers(t, co, "w4")
	// Ring rebuilds are coalesced on a debounce timer; give it a moment.
	time.Sleep(100 * time.Millisecond)

	after := make(map[uint64]string)
	for _, w := range []string{"w0", "w1", "w2", "w3", "w4"} {
		resp, err := co.GetShardAssignment(ctx, &rpc.GetShardAssignmentRequest{DatasetID: "d1", WorkerID: w})
		require.NoError(t, err)
		for _, s := range resp.Shards {
			after[s.ShardIndex] = w
		}
	}

	require.Len(t, after, 4)
	moved := 0
	for idx, owner := range before {
		if after[idx] != owner {
			moved++
		}
	}
	require.LessOrEqual(t, moved, 1)
}

// Scenario 3: the third arrival at a 3-party barrier releases all three
// waiters, and a later arrival starts a new generation.
func TestScenarioBarrierRelease(t *testing.T) {
	co := newTestCoordinator(t, nil)
	registerWorkers(t, co, "w0", "w1", "w2")

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := make(map[string]*rpc.WaitBarrierResponse)

	wg.Add(2)
	for _, id := range []string{"w0", "w1"} {
		go func(id string) {
			defer wg.Done()
			resp, err := co.WaitBarrier(context.Background(), &rpc.WaitBarrierRequest{
				Name: "epoch_0", WorkerID: id, RequiredTotal: 3,
			})
			require.NoError(t, err)
			mu.Lock()
			outcomes[id] = resp
			mu.Unlock()
		}(id)
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	resp3, err := co.WaitBarrier(context.Background(), &rpc.WaitBarrierRequest{
		Name: "epoch_0", WorkerID: "w2", RequiredTotal: 3,
	})
	require.NoError(t, err)
	require.Equal(t, "released", resp3.Kind)
	require.Equal(t, uint64(0), resp3.Generation)

	wg.Wait()
	require.Equal(t, "released", outcomes["w0"].Kind)
	require.Equal(t, "released", outcomes["w1"].Kind)

	snap, ok := co.barriers.Snapshot("epoch_0")
	require.True(t, ok)
	require.Equal(t, uint64(1), snap.Generation)
}

// Scenario 4: a participant that misses its heartbeat timeout is swept to
// Failed, which aborts every barrier it was still gathering in.
func TestScenarioFailedParticipantAbortsBarrier(t *testing.T) {
	co := newTestCoordinator(t, func(cfg *config.Config) {
		cfg.Coordinator.HeartbeatTimeout = 100 * time.Millisecond
	})
	registerWorkers(t, co, "w0", "w1", "w2")

	co.workers.StartSweeper(func(id types.WorkerID) { co.barriers.NotifyWorkerFailed(id) })
	defer co.workers.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := make(map[string]*rpc.WaitBarrierResponse)

	wg.Add(2)
	for _, id := range []string{"w0", "w1"} {
		go func(id string) {
			defer wg.Done()
			resp, err := co.WaitBarrier(context.Background(), &rpc.WaitBarrierRequest{
				Name: "ckpt_sync", WorkerID: id, RequiredTotal: 3,
			})
			require.NoError(t, err)
			mu.Lock()
			outcomes[id] = resp
			mu.Unlock()
		}(id)
	}

	// None of the three workers heartbeat, so the sweeper (which ticks every
	// second) evicts all of them well past the 100ms timeout configured above.
	wg.Wait()

	require.Equal(t, "aborted", outcomes["w0"].Kind)
	require.Equal(t, barrier.ParticipantFailed, outcomes["w0"].Reason)
	require.Equal(t, "aborted", outcomes["w1"].Kind)
	require.Equal(t, barrier.ParticipantFailed, outcomes["w1"].Reason)
}

// Scenario 5: a checkpoint completed before restart is still the latest
// completed record once the coordinator rehydrates against the same
// storage directory.
func TestScenarioCheckpointRecoveryAcrossRestart(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()

	co1 := newTestCoordinator(t, func(cfg *config.Config) { cfg.Storage.DataDir = dataDir })
	_, err := co1.NotifyCheckpoint(ctx, &rpc.NotifyCheckpointRequest{
		Namespace: "model-a", WorkerID: "w0", Step: 1000, Status: "in_progress",
	})
	require.NoError(t, err)
	completed, err := co1.NotifyCheckpoint(ctx, &rpc.NotifyCheckpointRequest{
		Namespace: "model-a", WorkerID: "w0", Step: 1000,
		Status: "completed", SizeBytes: 123456, StoragePath: "/ckpt/model-a/1000",
	})
	require.NoError(t, err)
	require.NoError(t, co1.backend.Close())

	co2 := newTestCoordinator(t, func(cfg *config.Config) { cfg.Storage.DataDir = dataDir })
	resp, err := co2.GetLatestCheckpoint(ctx, &rpc.GetLatestCheckpointRequest{Namespace: "model-a"})
	require.NoError(t, err)
	require.NotNil(t, resp.Checkpoint)
	require.Equal(t, completed.ID, resp.Checkpoint.ID)
	require.Equal(t, types.CheckpointCompleted, resp.Checkpoint.Status)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
