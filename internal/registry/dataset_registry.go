package registry

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/muster/internal/errs"
	"github.com/cuemby/muster/internal/types"
)

// DatasetRegistry is an append-only index of registered datasets. Records
// are immutable once created: shard_count is derived at registration time
// and becomes the authoritative bound for every later ShardAssignment.
type DatasetRegistry struct {
	mu       sync.RWMutex
	datasets map[string]*types.Dataset
}

// NewDatasetRegistry creates an empty dataset registry.
func NewDatasetRegistry() *DatasetRegistry {
	return &DatasetRegistry{datasets: make(map[string]*types.Dataset)}
}

// Register validates and records a new dataset, deriving shard_count from
// total_samples and shard_size.
func (d *DatasetRegistry) Register(id, path, format string, totalSamples, shardSize uint64, shuffle bool, seed uint64) (*types.Dataset, error) {
	if totalSamples == 0 {
		return nil, errs.New(errs.Invalid, "total_samples must be > 0")
	}
	if shardSize == 0 {
		return nil, errs.New(errs.Invalid, "shard_size must be > 0")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errs.New(errs.Invalid, "path must not be empty")
	}
	if strings.Contains(path, "..") || !filepath.IsLocal(trimAbs(path)) {
		return nil, errs.New(errs.Invalid, "path must not contain traversal segments")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.datasets[id]; ok {
		return nil, errs.Newf(errs.AlreadyRegistered, "dataset %q already registered", id)
	}

	shardCount := (totalSamples + shardSize - 1) / shardSize

	ds := &types.Dataset{
		ID:           id,
		Path:         path,
		Format:       format,
		TotalSamples: totalSamples,
		ShardSize:    shardSize,
		ShardCount:   shardCount,
		Shuffle:      shuffle,
		Seed:         seed,
		RegisteredAt: time.Now(),
	}
	d.datasets[id] = ds
	cp := *ds
	return &cp, nil
}

// trimAbs strips a single leading slash so an absolute dataset path (the
// common case — datasets usually live at an absolute filesystem or object
// store path) can still be checked for ".." traversal with filepath.IsLocal,
// which only accepts relative paths.
func trimAbs(path string) string {
	return strings.TrimPrefix(path, "/")
}

// Get returns a copy of the dataset, if present.
func (d *DatasetRegistry) Get(id string) (*types.Dataset, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ds, ok := d.datasets[id]
	if !ok {
		return nil, false
	}
	cp := *ds
	return &cp, true
}

// ListDatasets returns a snapshot of every registered dataset. Satisfies
// internal/metrics.DatasetSource.
func (d *DatasetRegistry) ListDatasets() []*types.Dataset {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*types.Dataset, 0, len(d.datasets))
	for _, ds := range d.datasets {
		cp := *ds
		out = append(out, &cp)
	}
	return out
}
