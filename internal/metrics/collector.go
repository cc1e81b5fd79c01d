package metrics

import (
	"time"

	"github.com/cuemby/muster/internal/types"
)

// WorkerSource is the subset of the worker registry the collector needs.
// Defined here rather than imported so that internal/metrics has no
// dependency edge on internal/registry.
type WorkerSource interface {
	ListWorkers() []*types.Worker
}

// DatasetSource is the subset of the dataset registry the collector needs.
type DatasetSource interface {
	ListDatasets() []*types.Dataset
}

// RingSource is the subset of the shard ring the collector needs.
type RingSource interface {
	Size() int
}

// Collector periodically samples worker, dataset, and ring state into the
// gauge metrics above. Counters and histograms are updated inline by their
// owning packages as events happen; only point-in-time gauges are sampled
// here.
type Collector struct {
	workers  WorkerSource
	datasets DatasetSource
	ring     RingSource
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a collector sampling every interval (0 uses 15s).
func NewCollector(workers WorkerSource, datasets DatasetSource, ring RingSource, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		workers:  workers,
		datasets: datasets,
		ring:     ring,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sampling loop in a background goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the sampling loop. Stop must not be called more than once.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectWorkerMetrics()
	c.collectDatasetMetrics()
	c.collectRingMetrics()
}

func (c *Collector) collectWorkerMetrics() {
	if c.workers == nil {
		return
	}
	counts := make(map[types.WorkerStatus]int)
	for _, w := range c.workers.ListWorkers() {
		counts[w.Status]++
	}
	for status, count := range counts {
		WorkersTotal.WithLabelValues(string(status)).Set(float64(count))
	}
}

func (c *Collector) collectDatasetMetrics() {
	if c.datasets == nil {
		return
	}
	DatasetsTotal.Set(float64(len(c.datasets.ListDatasets())))
}

func (c *Collector) collectRingMetrics() {
	if c.ring == nil {
		return
	}
	ShardRingSize.Set(float64(c.ring.Size()))
}
