/*
Package ring implements the coordinator's consistent-hash shard ring: a
deterministic mapping from (dataset, epoch, shard index) to a live worker.

# Design

Each live worker contributes V virtual tokens (default 150), one per
virtual index, hashed with a fixed 64-bit seed via xxhash. Tokens are kept
sorted; a lookup hashes the lookup key and returns the owner of the first
token at or after that hash, wrapping around the ring if necessary — the
standard consistent-hashing construction, chosen so that adding or removing
one worker only reassigns the tokens adjacent to it rather than the whole
keyspace.

Rebuilds are copy-on-write: Add/Remove mutate a scratch snapshot behind a
single builder mutex, then publish it with one atomic pointer store. Lookup
never takes a lock; it only ever dereferences the currently published
snapshot, so readers observe either the complete old ring or the complete
new one, never a partial rebuild.
*/
package ring
