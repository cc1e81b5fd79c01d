package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/cuemby/muster/internal/types"
	"github.com/stretchr/testify/require"
)

// fakeRing records every Reconcile call it receives.
type fakeRing struct {
	mu    sync.Mutex
	calls [][]string
}

func (f *fakeRing) Reconcile(ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]string(nil), ids...)
	f.calls = append(f.calls, cp)
}

func (f *fakeRing) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRing) lastCall() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func TestRegisterCreatesActiveWorker(t *testing.T) {
	ring := &fakeRing{}
	reg := NewWorkerRegistry(ring, time.Minute)

	w, err := reg.Register("w0", "10.0.0.1:9000", types.WorkerCapacity{GPUCount: 8})
	require.NoError(t, err)
	require.Equal(t, types.WorkerActive, w.Status)
}

func TestRegisterDuplicateActiveFails(t *testing.T) {
	ring := &fakeRing{}
	reg := NewWorkerRegistry(ring, time.Minute)

	_, err := reg.Register("w0", "addr", types.WorkerCapacity{})
	require.NoError(t, err)

	_, err = reg.Register("w0", "addr", types.WorkerCapacity{})
	require.Error(t, err)
}

func TestReregisterFailedWorkerRevives(t *testing.T) {
	ring := &fakeRing{}
	reg := NewWorkerRegistry(ring, time.Minute)

	_, err := reg.Register("w0", "addr", types.WorkerCapacity{})
	require.NoError(t, err)

	reg.mu.Lock()
	reg.workers["w0"].Status = types.WorkerFailed
	reg.mu.Unlock()

	w, err := reg.Register("w0", "addr2", types.WorkerCapacity{})
	require.NoError(t, err)
	require.Equal(t, types.WorkerActive, w.Status)
	require.Equal(t, "addr2", w.Address)
}

func TestHeartbeatUpdatesProgress(t *testing.T) {
	ring := &fakeRing{}
	reg := NewWorkerRegistry(ring, time.Minute)
	_, err := reg.Register("w0", "addr", types.WorkerCapacity{})
	require.NoError(t, err)

	require.NoError(t, reg.Heartbeat("w0", 42, 3))

	w, ok := reg.Get("w0")
	require.True(t, ok)
	require.Equal(t, uint64(42), w.CurrentStep)
	require.Equal(t, uint64(3), w.CurrentEpoch)
}

func TestHeartbeatUnknownWorkerFails(t *testing.T) {
	ring := &fakeRing{}
	reg := NewWorkerRegistry(ring, time.Minute)
	err := reg.Heartbeat("ghost", 1, 1)
	require.Error(t, err)
}

func TestHeartbeatFailedWorkerFails(t *testing.T) {
	ring := &fakeRing{}
	reg := NewWorkerRegistry(ring, time.Minute)
	_, err := reg.Register("w0", "addr", types.WorkerCapacity{})
	require.NoError(t, err)

	reg.mu.Lock()
	reg.workers["w0"].Status = types.WorkerFailed
	reg.mu.Unlock()

	err = reg.Heartbeat("w0", 1, 1)
	require.Error(t, err)
}

func TestDeregisterRemovesWorkerAndRebuilds(t *testing.T) {
	ring := &fakeRing{}
	reg := NewWorkerRegistry(ring, time.Minute)
	_, err := reg.Register("w0", "addr", types.WorkerCapacity{})
	require.NoError(t, err)

	require.NoError(t, reg.Deregister("w0"))
	_, ok := reg.Get("w0")
	require.False(t, ok)

	reg.trigger.Flush()
	require.Greater(t, ring.callCount(), 0)
	require.Empty(t, ring.lastCall())
}

func TestDeregisterUnknownWorkerFails(t *testing.T) {
	ring := &fakeRing{}
	reg := NewWorkerRegistry(ring, time.Minute)
	err := reg.Deregister("ghost")
	require.Error(t, err)
}

func TestSweepTransitionsTimedOutWorkerToFailed(t *testing.T) {
	ring := &fakeRing{}
	reg := NewWorkerRegistry(ring, 10*time.Millisecond)
	_, err := reg.Register("w0", "addr", types.WorkerCapacity{})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	var notified []types.WorkerID
	reg.sweep([]FailureListener{func(id types.WorkerID) { notified = append(notified, id) }})

	w, ok := reg.Get("w0")
	require.True(t, ok)
	require.Equal(t, types.WorkerFailed, w.Status)
	require.Equal(t, []types.WorkerID{"w0"}, notified)
}

func TestSweepLeavesFreshWorkersAlone(t *testing.T) {
	ring := &fakeRing{}
	reg := NewWorkerRegistry(ring, time.Minute)
	_, err := reg.Register("w0", "addr", types.WorkerCapacity{})
	require.NoError(t, err)

	reg.sweep(nil)

	w, ok := reg.Get("w0")
	require.True(t, ok)
	require.Equal(t, types.WorkerActive, w.Status)
}

func TestRebuildTriggerCoalescesBurst(t *testing.T) {
	var count int
	var mu sync.Mutex
	trigger := NewRebuildTrigger(func() {
		mu.Lock()
		count++
		mu.Unlock()
	}, 20*time.Millisecond)

	for i := 0; i < 10; i++ {
		trigger.Enqueue()
	}
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, count, "a burst of Enqueue calls within the debounce window should produce one rebuild")
}

func TestListWorkersReturnsSnapshot(t *testing.T) {
	ring := &fakeRing{}
	reg := NewWorkerRegistry(ring, time.Minute)
	_, err := reg.Register("w0", "addr", types.WorkerCapacity{})
	require.NoError(t, err)
	_, err = reg.Register("w1", "addr2", types.WorkerCapacity{})
	require.NoError(t, err)

	list := reg.ListWorkers()
	require.Len(t, list, 2)
}
