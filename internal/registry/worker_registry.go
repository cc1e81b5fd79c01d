package registry

import (
	"sync"
	"time"

	"github.com/cuemby/muster/internal/errs"
	"github.com/cuemby/muster/internal/logging"
	"github.com/cuemby/muster/internal/metrics"
	"github.com/cuemby/muster/internal/types"
	"github.com/rs/zerolog"
)

const (
	// DefaultHeartbeatInterval is the interval workers are expected to send
	// heartbeats at.
	DefaultHeartbeatInterval = time.Second
	// DefaultHeartbeatTimeout is how long a worker may go silent before the
	// sweeper marks it Failed.
	DefaultHeartbeatTimeout = 30 * time.Second
	// sweepInterval is how often the sweeper scans for expired workers.
	sweepInterval = time.Second
)

// Ring is the subset of internal/ring.Ring the worker registry drives.
type Ring interface {
	Reconcile(liveWorkerIDs []string)
}

// WorkerRegistry tracks worker liveness and drives shard-ring membership.
// Reads take a read lock; every mutation that changes the live-worker set
// enqueues a coalesced ring rebuild rather than rebuilding inline.
type WorkerRegistry struct {
	mu      sync.RWMutex
	workers map[types.WorkerID]*types.Worker

	timeout time.Duration
	trigger *RebuildTrigger

	stopCh chan struct{}
	logger zerolog.Logger
}

// NewWorkerRegistry creates a registry that drives ring on every liveness
// transition, coalesced through a debounce window.
func NewWorkerRegistry(ring Ring, heartbeatTimeout time.Duration) *WorkerRegistry {
	if heartbeatTimeout <= 0 {
		heartbeatTimeout = DefaultHeartbeatTimeout
	}
	r := &WorkerRegistry{
		workers: make(map[types.WorkerID]*types.Worker),
		timeout: heartbeatTimeout,
		stopCh:  make(chan struct{}),
		logger:  logging.WithComponent("registry"),
	}
	r.trigger = NewRebuildTrigger(func() { ring.Reconcile(r.liveWorkerIDs()) }, 50*time.Millisecond)
	return r
}

// Register creates a new Active worker, or revives a Failed one back to
// Active if re-registered under the same id.
func (r *WorkerRegistry) Register(id types.WorkerID, address string, capacity types.WorkerCapacity) (*types.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.workers[id]; ok {
		if existing.Status != types.WorkerFailed {
			return nil, errs.Newf(errs.AlreadyRegistered, "worker %q already registered", id)
		}
		existing.Status = types.WorkerActive
		existing.Address = address
		existing.Capacity = capacity
		existing.LastHeartbeat = now
		existing.RegisteredAt = now
		existing.FailedAt = time.Time{}
		r.trigger.Enqueue()
		metrics.WorkersTotal.WithLabelValues(string(types.WorkerActive)).Inc()
		cp := *existing
		return &cp, nil
	}

	w := &types.Worker{
		ID:            id,
		Address:       address,
		Capacity:      capacity,
		Status:        types.WorkerActive,
		LastHeartbeat: now,
		RegisteredAt:  now,
	}
	r.workers[id] = w
	r.trigger.Enqueue()
	cp := *w
	return &cp, nil
}

// Heartbeat updates liveness and progress for an Active worker.
func (r *WorkerRegistry) Heartbeat(id types.WorkerID, step, epoch uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.workers[id]
	if !ok || w.Status == types.WorkerFailed {
		return errs.Newf(errs.UnknownWorker, "worker %q is unknown or failed", id)
	}
	w.LastHeartbeat = time.Now()
	w.CurrentStep = step
	w.CurrentEpoch = epoch
	metrics.WorkerHeartbeatsTotal.Inc()
	return nil
}

// Deregister explicitly removes a worker and triggers a ring rebuild.
func (r *WorkerRegistry) Deregister(id types.WorkerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workers[id]; !ok {
		return errs.Newf(errs.UnknownWorker, "worker %q is unknown", id)
	}
	delete(r.workers, id)
	r.trigger.Enqueue()
	return nil
}

// Get returns a copy of the worker record, if present.
func (r *WorkerRegistry) Get(id types.WorkerID) (*types.Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[id]
	if !ok {
		return nil, false
	}
	cp := *w
	return &cp, true
}

// ListWorkers returns a snapshot of every known worker, regardless of
// status. Satisfies internal/metrics.WorkerSource.
func (r *WorkerRegistry) ListWorkers() []*types.Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*types.Worker, 0, len(r.workers))
	for _, w := range r.workers {
		cp := *w
		out = append(out, &cp)
	}
	return out
}

func (r *WorkerRegistry) liveWorkerIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.workers))
	for id, w := range r.workers {
		if w.Status == types.WorkerActive {
			ids = append(ids, id)
		}
	}
	return ids
}

// FailureListener is notified with the id of every worker the sweeper
// transitions to Failed, so that e.g. the barrier registry can abort any
// barrier that worker was gathering for.
type FailureListener func(id types.WorkerID)

// StartSweeper launches the background liveness sweeper, which transitions
// any Active worker whose last heartbeat exceeded the configured timeout to
// Failed and notifies listeners. It runs until Stop is called.
func (r *WorkerRegistry) StartSweeper(listeners ...FailureListener) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep(listeners)
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop halts the sweeper. Stop must not be called more than once.
func (r *WorkerRegistry) Stop() {
	close(r.stopCh)
}

func (r *WorkerRegistry) sweep(listeners []FailureListener) {
	now := time.Now()

	r.mu.Lock()
	var failed []types.WorkerID
	for id, w := range r.workers {
		if w.Status == types.WorkerActive && now.Sub(w.LastHeartbeat) > r.timeout {
			w.Status = types.WorkerFailed
			w.FailedAt = now
			failed = append(failed, id)
		}
	}
	r.mu.Unlock()

	if len(failed) == 0 {
		return
	}
	r.trigger.Enqueue()
	metrics.WorkerFailuresTotal.Add(float64(len(failed)))
	for _, id := range failed {
		r.logger.Warn().Str("worker_id", id).Msg("worker missed heartbeat timeout, marking failed")
		for _, l := range listeners {
			l(id)
		}
	}
}
