package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/muster/internal/barrier"
	"github.com/cuemby/muster/internal/checkpoint"
	"github.com/cuemby/muster/internal/config"
	"github.com/cuemby/muster/internal/controlplane"
	"github.com/cuemby/muster/internal/logging"
	"github.com/cuemby/muster/internal/metrics"
	"github.com/cuemby/muster/internal/middleware"
	"github.com/cuemby/muster/internal/registry"
	"github.com/cuemby/muster/internal/ring"
	"github.com/cuemby/muster/internal/rpc"
	"github.com/cuemby/muster/internal/storage"
	"github.com/cuemby/muster/internal/types"
	"github.com/rs/zerolog"
)

// ShutdownReason is the barrier abort reason used for every barrier still
// gathering when the coordinator shuts down gracefully.
const ShutdownReason = "Shutdown"

// Coordinator owns every long-lived component of the training fleet
// coordinator process and implements internal/rpc.Handlers by delegating to
// them.
type Coordinator struct {
	cfg *config.Config

	ring        *ring.Ring
	workers     *registry.WorkerRegistry
	datasets    *registry.DatasetRegistry
	barriers    *barrier.Registry
	checkpoints *checkpoint.Index
	tasks       *controlplane.TaskStore
	backend     storage.Backend

	rateLimiter *middleware.RateLimiter
	rpcServer   *rpc.Server
	cpServer    *controlplane.Server
	collector   *metrics.Collector

	logger zerolog.Logger
}

// New wires every component from cfg. It opens the storage backend but does
// not yet rehydrate the checkpoint index or open any listener — call Run
// for that.
func New(cfg *config.Config) (*Coordinator, error) {
	logger := logging.WithComponent("coordinator")

	var backend storage.Backend
	var err error
	switch cfg.Storage.Backend {
	case "bolt":
		backend, err = storage.NewBoltBackend(cfg.Storage.DataDir)
	default:
		backend, err = storage.NewFileBackend(cfg.Storage.DataDir)
	}
	if err != nil {
		return nil, fmt.Errorf("create storage backend: %w", err)
	}
	metrics.RegisterComponent("storage", true, "ready")

	shardRing := ring.New(cfg.Coordinator.RingVirtualNodes)
	metrics.RegisterComponent("ring", true, "ready")

	c := &Coordinator{
		cfg:         cfg,
		ring:        shardRing,
		workers:     registry.NewWorkerRegistry(shardRing, cfg.Coordinator.HeartbeatTimeout),
		datasets:    registry.NewDatasetRegistry(),
		barriers:    barrier.New(),
		checkpoints: checkpoint.New(backend),
		tasks:       controlplane.NewTaskStore(),
		backend:     backend,
		rateLimiter: middleware.NewRateLimiter(cfg.Limits.RateLimitBurst, cfg.Limits.RateLimitRefillPerSecond),
		logger:      logger,
	}

	c.rpcServer = rpc.NewServer(c,
		middleware.ValidationInterceptor(),
		c.rateLimiter.Interceptor(),
		middleware.MetricsInterceptor(),
	)
	metrics.RegisterComponent("rpc", true, "ready")

	c.cpServer = controlplane.NewServer(c.workers, c.datasets, c.checkpoints, c.barriers, c.ring, c.tasks, logging.Tail)
	c.collector = metrics.NewCollector(c.workers, c.datasets, c.ring, cfg.Coordinator.CollectorInterval)

	return c, nil
}

// Run rehydrates the checkpoint index, starts the liveness sweeper and
// metrics collector, opens both listeners, and blocks until ctx is
// cancelled or a listener fails. It always runs the shutdown sequence
// before returning.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := storage.WithRetry(ctx, storage.DefaultAttempts, func() error {
		return c.checkpoints.Rehydrate(ctx)
	}); err != nil {
		return fmt.Errorf("rehydrate checkpoint index: %w", err)
	}

	c.workers.StartSweeper(func(id types.WorkerID) { c.barriers.NotifyWorkerFailed(id) })
	c.collector.Start()

	errCh := make(chan error, 2)
	go func() {
		if err := c.rpcServer.Start(c.cfg.Coordinator.RPCAddr); err != nil {
			errCh <- fmt.Errorf("rpc server: %w", err)
		}
	}()
	go func() {
		if err := c.cpServer.Start(c.cfg.Coordinator.ControlPlaneAddr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("control-plane server: %w", err)
		}
	}()

	// Give both listeners a moment to bind before declaring readiness,
	// mirroring the teacher's startup settle before generating join tokens.
	time.Sleep(500 * time.Millisecond)
	c.logger.Info().
		Str("rpc_addr", c.cfg.Coordinator.RPCAddr).
		Str("control_plane_addr", c.cfg.Coordinator.ControlPlaneAddr).
		Msg("coordinator ready")

	select {
	case <-ctx.Done():
		c.logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		c.logger.Error().Err(err).Msg("listener failed")
		_ = c.Shutdown()
		return err
	}

	return c.Shutdown()
}

// Shutdown aborts every still-gathering barrier with ShutdownReason, stops
// the sweeper and collector, drains both listeners, and closes the storage
// backend. Workers reconnecting after a restart are expected to
// re-register.
func (c *Coordinator) Shutdown() error {
	for _, snap := range c.barriers.List() {
		if snap.Status == types.BarrierGathering {
			_ = c.barriers.Abort(snap.Name, ShutdownReason)
		}
	}

	c.workers.Stop()
	c.collector.Stop()
	_ = c.cpServer.Stop()
	c.rpcServer.Stop()

	if err := c.backend.Close(); err != nil {
		return fmt.Errorf("close storage backend: %w", err)
	}
	c.logger.Info().Msg("shutdown complete")
	return nil
}

// Seed exposes the registries and task store DEMO_MODE fixtures populate,
// so callers can set up state without going through the RPC transport.
func (c *Coordinator) Seed() (*registry.WorkerRegistry, *registry.DatasetRegistry, *controlplane.TaskStore) {
	return c.workers, c.datasets, c.tasks
}
