package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	fb, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	bb, err := NewBoltBackend(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bb.Close() })

	return map[string]Backend{
		"file": fb,
		"bolt": bb,
	}
}

func TestBackendPutGet(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, b.Put(ctx, "a/1", []byte("hello")))
			got, err := b.Get(ctx, "a/1")
			require.NoError(t, err)
			require.Equal(t, []byte("hello"), got)
		})
	}
}

func TestBackendGetMissingReturnsNotFound(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Get(context.Background(), "missing")
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrNotFound) || err == ErrNotFound)
		})
	}
}

func TestBackendListByPrefix(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, b.Put(ctx, "ckpt/ns1/1", []byte("a")))
			require.NoError(t, b.Put(ctx, "ckpt/ns1/2", []byte("b")))
			require.NoError(t, b.Put(ctx, "ckpt/ns2/1", []byte("c")))

			entries, err := b.List(ctx, "ckpt/ns1/")
			require.NoError(t, err)
			require.Len(t, entries, 2)
			require.Equal(t, "ckpt/ns1/1", entries[0].Key)
			require.Equal(t, "ckpt/ns1/2", entries[1].Key)
		})
	}
}

func TestBackendDelete(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, b.Put(ctx, "k", []byte("v")))
			require.NoError(t, b.Delete(ctx, "k"))
			_, err := b.Get(ctx, "k")
			require.Error(t, err)

			// deleting an absent key is not an error
			require.NoError(t, b.Delete(ctx, "k"))
		})
	}
}

func TestBackendPutOverwrites(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, b.Put(ctx, "k", []byte("v1")))
			require.NoError(t, b.Put(ctx, "k", []byte("v2")))
			got, err := b.Get(ctx, "k")
			require.NoError(t, err)
			require.Equal(t, []byte("v2"), got)
		})
	}
}
