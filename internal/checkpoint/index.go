package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuemby/muster/internal/errs"
	"github.com/cuemby/muster/internal/storage"
	"github.com/cuemby/muster/internal/types"
)

const keyPrefix = "checkpoint/"

func recordKey(namespace string, id uint64) string {
	return fmt.Sprintf("%s%s/%020d", keyPrefix, namespace, id)
}

type inProgressKey struct {
	namespace string
	workerID  string
	step      uint64
}

// Index is the coordinator's checkpoint metadata index. All mutation
// methods take the same lock; readers (latest, list) take a read lock over
// the same in-memory maps, which are kept current with the storage backend
// on every mutation.
type Index struct {
	backend storage.Backend

	mu          sync.RWMutex
	records     map[uint64]*types.Checkpoint
	byNamespace map[string][]uint64 // unordered id sets, namespace -> ids
	inProgress  map[inProgressKey]uint64

	nextID atomic.Uint64
}

// New creates an empty index backed by backend. Call Rehydrate before
// serving traffic on an existing backend.
func New(backend storage.Backend) *Index {
	return &Index{
		backend:     backend,
		records:     make(map[uint64]*types.Checkpoint),
		byNamespace: make(map[string][]uint64),
		inProgress:  make(map[inProgressKey]uint64),
	}
}

// Rehydrate rebuilds the in-memory index by listing every record under the
// checkpoint key prefix and replaying it. It also advances nextID past the
// highest id found, so ids remain monotonic across restarts.
func (idx *Index) Rehydrate(ctx context.Context) error {
	entries, err := idx.backend.List(ctx, keyPrefix)
	if err != nil {
		return errs.Wrap(errs.Transient, "list checkpoint records", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var maxID uint64
	for _, e := range entries {
		var rec types.Checkpoint
		if err := json.Unmarshal(e.Value, &rec); err != nil {
			return errs.Wrap(errs.Internal, fmt.Sprintf("decode checkpoint record %s", e.Key), err)
		}
		idx.records[rec.ID] = &rec
		idx.byNamespace[rec.Namespace] = append(idx.byNamespace[rec.Namespace], rec.ID)
		if rec.Status == types.CheckpointInProgress {
			idx.inProgress[inProgressKey{rec.Namespace, rec.WorkerID, rec.Step}] = rec.ID
		}
		if rec.ID > maxID {
			maxID = rec.ID
		}
	}
	idx.nextID.Store(maxID)
	return nil
}

// RegisterInProgress records a new in-progress checkpoint. A duplicate
// notification for the same (namespace, worker_id, step) returns the
// existing record rather than creating a second one.
func (idx *Index) RegisterInProgress(ctx context.Context, namespace, workerID string, step, epoch uint64) (*types.Checkpoint, error) {
	key := inProgressKey{namespace, workerID, step}

	idx.mu.Lock()
	if id, ok := idx.inProgress[key]; ok {
		existing := idx.records[id]
		idx.mu.Unlock()
		return existing, nil
	}
	id := idx.nextID.Add(1)
	rec := &types.Checkpoint{
		ID:        id,
		Namespace: namespace,
		Step:      step,
		Epoch:     epoch,
		Status:    types.CheckpointInProgress,
		WorkerID:  workerID,
		CreatedAt: time.Now(),
	}
	idx.records[id] = rec
	idx.byNamespace[namespace] = append(idx.byNamespace[namespace], id)
	idx.inProgress[key] = id
	idx.mu.Unlock()

	if err := idx.persist(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Complete transitions an InProgress record to Completed. It rejects ids
// that do not exist or are not currently InProgress.
func (idx *Index) Complete(ctx context.Context, id uint64, sizeBytes int64, storagePath string) (*types.Checkpoint, error) {
	idx.mu.Lock()
	rec, ok := idx.records[id]
	if !ok {
		idx.mu.Unlock()
		return nil, errs.Newf(errs.NotFound, "checkpoint %d not found", id)
	}
	if rec.Status != types.CheckpointInProgress {
		idx.mu.Unlock()
		return nil, errs.Newf(errs.Invalid, "checkpoint %d is %s, not in_progress", id, rec.Status)
	}
	rec.Status = types.CheckpointCompleted
	rec.SizeBytes = sizeBytes
	rec.StoragePath = storagePath
	rec.CompletedAt = time.Now()
	delete(idx.inProgress, inProgressKey{rec.Namespace, rec.WorkerID, rec.Step})
	idx.mu.Unlock()

	if err := idx.persist(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Fail transitions an InProgress record to Failed. Calling Fail again on an
// already-Failed record with the same reason is a no-op returning the
// existing record, matching the at-least-once delivery the worker RPC
// transport may produce.
func (idx *Index) Fail(ctx context.Context, id uint64, reason string) (*types.Checkpoint, error) {
	idx.mu.Lock()
	rec, ok := idx.records[id]
	if !ok {
		idx.mu.Unlock()
		return nil, errs.Newf(errs.NotFound, "checkpoint %d not found", id)
	}
	if rec.Status == types.CheckpointFailed && rec.FailReason == reason {
		idx.mu.Unlock()
		return rec, nil
	}
	if rec.Status != types.CheckpointInProgress {
		idx.mu.Unlock()
		return nil, errs.Newf(errs.Invalid, "checkpoint %d is %s, not in_progress", id, rec.Status)
	}
	rec.Status = types.CheckpointFailed
	rec.FailReason = reason
	rec.CompletedAt = time.Now()
	delete(idx.inProgress, inProgressKey{rec.Namespace, rec.WorkerID, rec.Step})
	idx.mu.Unlock()

	if err := idx.persist(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Latest returns the Completed record in namespace with the greatest step,
// breaking ties by the greatest completed_at.
func (idx *Index) Latest(namespace string) (*types.Checkpoint, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var best *types.Checkpoint
	for _, id := range idx.byNamespace[namespace] {
		rec := idx.records[id]
		if rec.Status != types.CheckpointCompleted {
			continue
		}
		if best == nil || rec.Step > best.Step ||
			(rec.Step == best.Step && rec.CompletedAt.After(best.CompletedAt)) {
			best = rec
		}
	}
	if best == nil {
		return nil, false
	}
	cp := *best
	return &cp, true
}

// List returns up to limit records in namespace, most recently created
// first. limit <= 0 means unbounded.
func (idx *Index) List(namespace string, limit int) []*types.Checkpoint {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ids := append([]uint64(nil), idx.byNamespace[namespace]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] }) // higher id == more recent

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*types.Checkpoint, 0, len(ids))
	for _, id := range ids {
		cp := *idx.records[id]
		out = append(out, &cp)
	}
	return out
}

// Prune removes records in namespace older than cutoff, never removing a
// record that Latest would currently return.
func (idx *Index) Prune(ctx context.Context, namespace string, cutoff time.Time) (int, error) {
	idx.mu.Lock()
	latest, _ := idx.latestLocked(namespace)
	var toDelete []uint64
	kept := idx.byNamespace[namespace][:0]
	for _, id := range idx.byNamespace[namespace] {
		rec := idx.records[id]
		if latest != nil && rec.ID == latest.ID {
			kept = append(kept, id)
			continue
		}
		if rec.Status == types.CheckpointInProgress || rec.CreatedAt.After(cutoff) {
			kept = append(kept, id)
			continue
		}
		toDelete = append(toDelete, id)
	}
	idx.byNamespace[namespace] = kept
	for _, id := range toDelete {
		delete(idx.records, id)
	}
	idx.mu.Unlock()

	for _, id := range toDelete {
		if err := idx.backend.Delete(ctx, recordKey(namespace, id)); err != nil {
			return len(toDelete), errs.Wrap(errs.Transient, "delete pruned checkpoint record", err)
		}
	}
	return len(toDelete), nil
}

func (idx *Index) latestLocked(namespace string) (*types.Checkpoint, bool) {
	var best *types.Checkpoint
	for _, id := range idx.byNamespace[namespace] {
		rec := idx.records[id]
		if rec.Status != types.CheckpointCompleted {
			continue
		}
		if best == nil || rec.Step > best.Step ||
			(rec.Step == best.Step && rec.CompletedAt.After(best.CompletedAt)) {
			best = rec
		}
	}
	return best, best != nil
}

func (idx *Index) persist(ctx context.Context, rec *types.Checkpoint) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(errs.Internal, "encode checkpoint record", err)
	}
	if err := idx.backend.Put(ctx, recordKey(rec.Namespace, rec.ID), data); err != nil {
		return errs.Wrap(errs.Transient, "persist checkpoint record", err)
	}
	return nil
}
