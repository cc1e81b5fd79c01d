// Package coordinator wires every component — the shard ring, the worker
// and dataset registries, the barrier registry, the checkpoint index, the
// RPC surface, and the control-plane read API — into a single running
// process, and implements internal/rpc.Handlers by delegating to them.
package coordinator
