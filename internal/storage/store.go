package storage

import (
	"context"

	"github.com/cuemby/muster/internal/errs"
)

// ErrNotFound is returned by Get when key has no value.
var ErrNotFound = errs.New(errs.NotFound, "storage: key not found")

// Backend is the coordinator's durable storage abstraction: a flat,
// namespace-prefixed key/value store. Persisted records (currently only the
// checkpoint index's) are serialized by their owning package and stored
// under a key it constructs itself; Backend does not know about any domain
// type.
type Backend interface {
	// Put writes value under key, replacing any existing value.
	Put(ctx context.Context, key string, value []byte) error

	// Get returns the value stored under key. It returns ErrNotFound if no
	// value is present.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns every key currently stored with the given prefix, along
	// with its value, ordered lexicographically by key.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// Delete removes key. Deleting a key that does not exist is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// Entry is one key/value pair returned by List.
type Entry struct {
	Key   string
	Value []byte
}
