package barrier

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/muster/internal/errs"
	"github.com/cuemby/muster/internal/metrics"
	"github.com/cuemby/muster/internal/types"
)

// OutcomeKind identifies which of the three arrive() outcomes a caller got.
type OutcomeKind string

const (
	Waiting  OutcomeKind = "waiting"
	Released OutcomeKind = "released"
	Aborted  OutcomeKind = "aborted"
)

// ParticipantFailed is the abort reason used when the sweeper reports that
// a worker holding an arrival in a still-gathering barrier has failed.
const ParticipantFailed = "ParticipantFailed"

// Outcome is the result of an Arrive call, or of waking from one.
type Outcome struct {
	Kind       OutcomeKind
	Generation uint64
	Arrived    int
	Required   int
	Reason     string // set only when Kind == Aborted
}

type waiter struct {
	workerID string
	ch       chan Outcome
}

type namedBarrier struct {
	mu          sync.Mutex
	name        string
	generation  uint64
	required    int
	arrived     map[string]bool
	waiters     []waiter
	status      types.BarrierStatus
	abortReason string
	createdAt   time.Time
}

// Registry is the coordinator's Barrier Registry: a map of independently
// synchronized named barriers. The map itself is only locked for
// create/lookup; all rendezvous logic runs under the individual barrier's
// own mutex, so one barrier's release never blocks on another's.
type Registry struct {
	mu       sync.Mutex
	barriers map[string]*namedBarrier
}

// New creates an empty barrier registry.
func New() *Registry {
	return &Registry{barriers: make(map[string]*namedBarrier)}
}

func (r *Registry) getOrCreate(name string, requiredTotal int) *namedBarrier {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.barriers[name]
	if !ok {
		b = &namedBarrier{
			name:      name,
			required:  requiredTotal,
			arrived:   make(map[string]bool),
			status:    types.BarrierGathering,
			createdAt: time.Now(),
		}
		r.barriers[name] = b
		metrics.BarriersActive.Inc()
	}
	return b
}

// Arrive registers workerID's arrival at the named barrier. It blocks until
// the barrier releases or aborts, unless this call itself is the one that
// completes the barrier (in which case it returns Released immediately —
// it is the releaser), the barrier is currently Aborted, or workerID has
// already arrived in the current generation (in which case it returns the
// current Waiting state at once, without blocking or counting the arrival
// twice). Cancelling ctx while waiting removes the caller's hold on the
// wait queue but leaves its arrival recorded; a later release can still
// happen without it.
func (r *Registry) Arrive(ctx context.Context, name, workerID string, requiredTotal int) (Outcome, error) {
	b := r.getOrCreate(name, requiredTotal)

	b.mu.Lock()
	if requiredTotal != b.required {
		b.mu.Unlock()
		return Outcome{}, errs.Newf(errs.BarrierMismatch, "barrier %q required_total %d disagrees with live value %d", name, requiredTotal, b.required)
	}

	if b.status == types.BarrierAborted {
		out := Outcome{Kind: Aborted, Generation: b.generation, Reason: b.abortReason}
		b.mu.Unlock()
		return out, nil
	}

	if b.arrived[workerID] {
		// Idempotent re-arrival within the same generation: report current
		// state without counting twice.
		out := Outcome{Kind: Waiting, Generation: b.generation, Arrived: len(b.arrived), Required: b.required}
		b.mu.Unlock()
		return out, nil
	}

	b.arrived[workerID] = true
	gen := b.generation

	if len(b.arrived) == b.required {
		// This caller's arrival completed the barrier: it is the releaser.
		released := Outcome{Kind: Released, Generation: gen}
		b.releaseLocked(released)
		b.mu.Unlock()
		return released, nil
	}

	ch := make(chan Outcome, 1)
	b.waiters = append(b.waiters, waiter{workerID: workerID, ch: ch})
	waitOutcome := Outcome{Kind: Waiting, Generation: gen, Arrived: len(b.arrived), Required: b.required}
	b.mu.Unlock()

	timer := metrics.NewTimer()
	select {
	case out := <-ch:
		outcome := "released"
		if out.Kind == Aborted {
			outcome = "aborted"
		}
		timer.ObserveDurationVec(metrics.BarrierWaitDuration, name, outcome)
		return out, nil
	case <-ctx.Done():
		b.removeWaiter(ch)
		timer.ObserveDurationVec(metrics.BarrierWaitDuration, name, "canceled")
		return waitOutcome, ctx.Err()
	}
}

// releaseLocked must be called with b.mu held. It wakes every current
// waiter with out, then resets the barrier for the next generation.
func (b *namedBarrier) releaseLocked(out Outcome) {
	for _, w := range b.waiters {
		w.ch <- out
	}
	b.waiters = nil
	b.generation++
	b.arrived = make(map[string]bool)
	b.status = types.BarrierGathering
}

func (b *namedBarrier) removeWaiter(target chan Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, w := range b.waiters {
		if w.ch == target {
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			break
		}
	}
}

// Abort force-releases every current waiter on name with Aborted, advances
// the generation, and clears the recorded arrivals. The barrier stays
// Aborted afterwards: later arrivals also return Aborted until Reopen is
// called.
func (r *Registry) Abort(name, reason string) error {
	r.mu.Lock()
	b, ok := r.barriers[name]
	r.mu.Unlock()
	if !ok {
		return errs.Newf(errs.NotFound, "barrier %q does not exist", name)
	}

	b.mu.Lock()
	wasGathering := b.status == types.BarrierGathering
	out := Outcome{Kind: Aborted, Generation: b.generation, Reason: reason}
	for _, w := range b.waiters {
		w.ch <- out
	}
	b.waiters = nil
	b.status = types.BarrierAborted
	b.abortReason = reason
	b.generation++
	b.arrived = make(map[string]bool)
	b.mu.Unlock()

	if wasGathering {
		metrics.BarriersActive.Dec()
	}
	metrics.BarrierAbortsTotal.WithLabelValues(reason).Inc()
	return nil
}

// Reopen clears an Aborted barrier back to Gathering with a new
// requiredTotal, discarding any arrivals recorded before the abort. It is
// the explicit action a reconfigurer takes after a ParticipantFailed abort
// so the remaining participants can arrive again at the corrected total;
// without it an aborted barrier stays Aborted forever, since Arrive itself
// never transitions a barrier out of Aborted. Reopen on a barrier that is
// not currently Aborted is a no-op error, not a silent reset.
func (r *Registry) Reopen(name string, newRequiredTotal int) error {
	r.mu.Lock()
	b, ok := r.barriers[name]
	r.mu.Unlock()
	if !ok {
		return errs.Newf(errs.NotFound, "barrier %q does not exist", name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status != types.BarrierAborted {
		return errs.Newf(errs.Invalid, "barrier %q is not aborted, cannot reopen", name)
	}
	b.status = types.BarrierGathering
	b.required = newRequiredTotal
	b.arrived = make(map[string]bool)
	b.abortReason = ""
	metrics.BarriersActive.Inc()
	return nil
}

// NotifyWorkerFailed is called by the worker registry's sweeper when a
// worker transitions to Failed. Any barrier still gathering in which that
// worker holds an arrival aborts with ParticipantFailed.
func (r *Registry) NotifyWorkerFailed(workerID string) {
	r.mu.Lock()
	barriers := make([]*namedBarrier, 0, len(r.barriers))
	for _, b := range r.barriers {
		barriers = append(barriers, b)
	}
	r.mu.Unlock()

	for _, b := range barriers {
		b.mu.Lock()
		affected := b.status == types.BarrierGathering && b.arrived[workerID]
		b.mu.Unlock()
		if affected {
			_ = r.Abort(b.name, ParticipantFailed)
		}
	}
}

// Snapshot returns a read-only view of a barrier's current state.
func (r *Registry) Snapshot(name string) (types.BarrierSnapshot, bool) {
	r.mu.Lock()
	b, ok := r.barriers[name]
	r.mu.Unlock()
	if !ok {
		return types.BarrierSnapshot{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return types.BarrierSnapshot{
		Name:          b.name,
		Generation:    b.generation,
		RequiredTotal: b.required,
		Arrived:       len(b.arrived),
		Status:        b.status,
		AbortReason:   b.abortReason,
		CreatedAt:     b.createdAt,
	}, true
}

// List returns a snapshot of every barrier currently known to the registry.
func (r *Registry) List() []types.BarrierSnapshot {
	r.mu.Lock()
	names := make([]string, 0, len(r.barriers))
	for name := range r.barriers {
		names = append(names, name)
	}
	r.mu.Unlock()

	out := make([]types.BarrierSnapshot, 0, len(names))
	for _, name := range names {
		if snap, ok := r.Snapshot(name); ok {
			out = append(out, snap)
		}
	}
	return out
}
