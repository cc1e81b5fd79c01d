/*
Package types defines the core data structures shared across the
coordinator: workers, datasets, shard assignments, barriers, checkpoints,
and operator-facing tasks.

These types are the vocabulary every other package speaks. The registry,
ring, barrier, and checkpoint packages own and mutate them; the RPC and
control-plane packages only read and translate them to and from the wire.

# Ownership

  - Worker is owned exclusively by internal/registry.
  - Dataset is owned exclusively by internal/registry and is immutable
    once registered.
  - ShardAssignment is never stored — it is computed on demand by
    internal/ring.
  - Barrier is owned exclusively by internal/barrier.
  - Checkpoint is owned exclusively by internal/checkpoint.
  - Task is operator bookkeeping owned by internal/controlplane; it never
    gates any worker-visible operation.

# Serialization

All types are JSON-serializable for the control-plane API and for storage
backend persistence (internal/storage). Timestamps are stored as Go
time.Time internally. The control-plane views render them as milliseconds
since the UNIX epoch; the RPC surface sends a Checkpoint record as is, so
its timestamps cross that wire in time.Time's default JSON form (RFC 3339).
*/
package types
