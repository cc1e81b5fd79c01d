package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "muster_workers_total",
			Help: "Total number of registered workers by status",
		},
		[]string{"status"},
	)

	WorkerHeartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_worker_heartbeats_total",
			Help: "Total number of heartbeats received from workers",
		},
	)

	WorkerFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_worker_failures_total",
			Help: "Total number of workers evicted by the liveness sweeper",
		},
	)

	// Dataset / shard metrics
	DatasetsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "muster_datasets_total",
			Help: "Total number of registered datasets",
		},
	)

	ShardRingSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "muster_shard_ring_size",
			Help: "Number of live workers currently on the shard ring",
		},
	)

	RingRebuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_ring_rebuilds_total",
			Help: "Total number of shard ring rebuilds",
		},
	)

	RingRebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "muster_ring_rebuild_duration_seconds",
			Help:    "Time taken to rebuild the shard ring in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ShardsMovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_shards_moved_total",
			Help: "Total number of shard reassignments caused by ring rebuilds",
		},
	)

	// Barrier metrics
	BarriersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "muster_barriers_active",
			Help: "Number of barrier groups currently gathering",
		},
	)

	BarrierWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "muster_barrier_wait_duration_seconds",
			Help:    "Time a participant waited at a barrier before release or abort",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"name", "outcome"},
	)

	BarrierAbortsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muster_barrier_aborts_total",
			Help: "Total number of barrier aborts by reason",
		},
		[]string{"reason"},
	)

	// Checkpoint metrics
	CheckpointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muster_checkpoints_total",
			Help: "Total number of checkpoint notifications by outcome",
		},
		[]string{"status"},
	)

	CheckpointSizeBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "muster_checkpoint_size_bytes",
			Help:    "Size in bytes of completed checkpoints",
			Buckets: prometheus.ExponentialBuckets(1<<20, 2, 12), // 1MiB .. 2GiB
		},
	)

	// RPC / API metrics
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muster_rpc_requests_total",
			Help: "Total number of worker RPC requests by method and status",
		},
		[]string{"method", "status"},
	)

	RPCRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "muster_rpc_request_duration_seconds",
			Help:    "Worker RPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	RateLimitedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muster_rate_limited_requests_total",
			Help: "Total number of RPC requests rejected by the rate limiter",
		},
		[]string{"method"},
	)

	ControlPlaneRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muster_control_plane_requests_total",
			Help: "Total number of operator control-plane HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		WorkersTotal,
		WorkerHeartbeatsTotal,
		WorkerFailuresTotal,
		DatasetsTotal,
		ShardRingSize,
		RingRebuildsTotal,
		RingRebuildDuration,
		ShardsMovedTotal,
		BarriersActive,
		BarrierWaitDuration,
		BarrierAbortsTotal,
		CheckpointsTotal,
		CheckpointSizeBytes,
		RPCRequestsTotal,
		RPCRequestDuration,
		RateLimitedRequestsTotal,
		ControlPlaneRequestsTotal,
	)
}

// Handler returns the Prometheus scrape handler mounted by the
// control-plane server at /api/metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed wall-clock time for a single operation and reports
// it to a histogram once the operation completes.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a labeled histogram vec.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
