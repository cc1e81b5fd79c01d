package ring

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/cuemby/muster/internal/errs"
)

// DefaultVirtualNodes is V from the spec: the number of virtual tokens each
// live worker contributes to the ring.
const DefaultVirtualNodes = 150

// hashSeed is folded into every hashed key so that two coordinator
// processes built from the same binary always produce identical rings for
// the same live-worker set. Changing this constant changes the protocol.
const hashSeed = "muster-ring-v1"

// token is one virtual node: a point on the ring owned by a worker.
type token struct {
	hash     uint64
	workerID string
	vindex   int
}

// snapshot is an immutable, fully-built ring. Readers only ever see a
// complete snapshot, published atomically by rebuildLocked.
type snapshot struct {
	tokens []token // sorted ascending by hash
}

// Ring is a consistent-hash ring mapping dataset shards to live workers.
// Lookup is lock-free; Add/Remove serialize on buildMu and publish a new
// snapshot with a single atomic store.
type Ring struct {
	v         int
	buildMu   sync.Mutex
	workers   map[string]struct{} // live set, guarded by buildMu
	snap      atomic.Pointer[snapshot]
	epoch     atomic.Uint64 // incremented on every rebuild; exposed to callers as a cheap membership-version counter
	onRebuild func()        // test hook, nil in production
}

// New creates an empty ring with the given virtual-node count (0 uses
// DefaultVirtualNodes).
func New(virtualNodes int) *Ring {
	if virtualNodes <= 0 {
		virtualNodes = DefaultVirtualNodes
	}
	r := &Ring{
		v:       virtualNodes,
		workers: make(map[string]struct{}),
	}
	r.snap.Store(&snapshot{})
	return r
}

// AddWorker inserts V virtual tokens for id. Idempotent: adding an id
// already present is a no-op.
func (r *Ring) AddWorker(id string) {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	if _, ok := r.workers[id]; ok {
		return
	}
	r.workers[id] = struct{}{}
	r.rebuildLocked()
}

// RemoveWorker removes all virtual tokens for id. Idempotent: removing an
// id not present is a no-op.
func (r *Ring) RemoveWorker(id string) {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	if _, ok := r.workers[id]; !ok {
		return
	}
	delete(r.workers, id)
	r.rebuildLocked()
}

// Reconcile replaces the live-worker set wholesale and rebuilds once. It is
// the entry point the worker registry's coalesced rebuild trigger uses so
// that many transitions inside one debounce window still cost a single
// rebuild instead of one per transition.
func (r *Ring) Reconcile(liveWorkerIDs []string) {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	next := make(map[string]struct{}, len(liveWorkerIDs))
	for _, id := range liveWorkerIDs {
		next[id] = struct{}{}
	}
	r.workers = next
	r.rebuildLocked()
}

// rebuildLocked recomputes the full token slice from the current live set
// and publishes it atomically. Called with buildMu held.
func (r *Ring) rebuildLocked() {
	tokens := make([]token, 0, len(r.workers)*r.v)
	for id := range r.workers {
		for i := 0; i < r.v; i++ {
			tokens = append(tokens, token{
				hash:     hashToken(id, i),
				workerID: id,
				vindex:   i,
			})
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].hash != tokens[j].hash {
			return tokens[i].hash < tokens[j].hash
		}
		// Tie-break: lexicographic (worker_id, virtual_index).
		if tokens[i].workerID != tokens[j].workerID {
			return tokens[i].workerID < tokens[j].workerID
		}
		return tokens[i].vindex < tokens[j].vindex
	})
	r.snap.Store(&snapshot{tokens: tokens})
	r.epoch.Add(1)
	if r.onRebuild != nil {
		r.onRebuild()
	}
}

// Epoch returns the number of rebuilds this ring has performed since
// creation. Callers use it as a cheap, monotonic membership-version
// counter — e.g. returned to a newly registered worker so it can tell
// whether its view of the ring is stale.
func (r *Ring) Epoch() uint64 {
	return r.epoch.Load()
}

// hashToken hashes the (workerID, virtualIndex) pair that anchors one
// virtual node on the ring.
func hashToken(workerID string, vindex int) uint64 {
	return xxhash.Sum64String(hashSeed + "|t|" + workerID + "|" + strconv.Itoa(vindex))
}

// hashKey hashes a (dataset, epoch, shard) lookup key. If shuffle is false
// the caller passes epoch 0, per spec: folding epoch into the hash gives a
// free per-epoch permutation, and suppressing it when shuffle is disabled
// keeps shard ownership stable across epochs.
func hashKey(datasetID string, epoch, shardIndex uint64) uint64 {
	return xxhash.Sum64String(hashSeed + "|k|" + datasetID + ":" + strconv.FormatUint(epoch, 10) + ":" + strconv.FormatUint(shardIndex, 10))
}

// Lookup returns the owner of the given shard. Lock-free: it only reads
// the currently published snapshot.
func (r *Ring) Lookup(datasetID string, epoch, shardIndex uint64) (string, error) {
	snap := r.snap.Load()
	if len(snap.tokens) == 0 {
		return "", errs.New(errs.NoWorkers, "shard ring has no live workers")
	}
	h := hashKey(datasetID, epoch, shardIndex)
	tokens := snap.tokens
	idx := sort.Search(len(tokens), func(i int) bool { return tokens[i].hash >= h })
	if idx == len(tokens) {
		idx = 0 // wrap to the lowest token
	}
	return tokens[idx].workerID, nil
}

// AssignAll computes the full shard-to-worker assignment for a dataset's
// epoch: each shard index in [0, shardCount) is looked up and grouped by
// owner, with each owner's shard list sorted ascending.
func (r *Ring) AssignAll(datasetID string, epoch, shardCount uint64) (map[string][]uint64, error) {
	if shardCount == 0 {
		return map[string][]uint64{}, nil
	}
	out := make(map[string][]uint64)
	for i := uint64(0); i < shardCount; i++ {
		owner, err := r.Lookup(datasetID, epoch, i)
		if err != nil {
			return nil, err
		}
		out[owner] = append(out[owner], i)
	}
	// Shard lists come out sorted already since i increases monotonically,
	// but keep the sort explicit — it is a documented contract, not an
	// implementation accident.
	for owner := range out {
		shards := out[owner]
		sort.Slice(shards, func(i, j int) bool { return shards[i] < shards[j] })
	}
	return out, nil
}

// Size returns the number of live workers currently on the ring.
func (r *Ring) Size() int {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	return len(r.workers)
}

// LiveWorkers returns a snapshot of the current live-worker id set.
func (r *Ring) LiveWorkers() []string {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	out := make([]string, 0, len(r.workers))
	for id := range r.workers {
		out = append(out, id)
	}
	return out
}
