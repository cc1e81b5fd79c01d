// Package storage defines the coordinator's durable storage abstraction
// (Backend: Put/Get/List/Delete over namespaced string keys) and two
// implementations: FileBackend, a dependency-free one-file-per-key store
// used by default and in DEMO_MODE, and BoltBackend, a single-file bbolt
// database for production deployments that want one durable file instead of
// a directory of small ones.
//
// The caller (internal/checkpoint) owns its key layout —
// "checkpoint/<namespace>/<id>" — and serializes its own records; Backend
// stores opaque bytes.
package storage
