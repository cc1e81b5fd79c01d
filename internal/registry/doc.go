/*
Package registry implements the coordinator's Worker Registry and Dataset
Registry.

The Worker Registry tracks worker liveness through two states, Active and
Failed, driven by heartbeats and a background sweeper (types.WorkerIdle
exists, but the registry never assigns it); every
transition that changes the live-worker set enqueues a ring rebuild, and
transitions inside one quiet window are coalesced into a single rebuild via
a debounced trigger built on golang.org/x/sync/singleflight.

The Dataset Registry is a simpler, append-only index: datasets are
registered once and never mutated, so its shard_count computation is the
single source of truth that bounds every later ShardAssignment.
*/
package registry
