package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "a/one", []byte("alpha")))
	require.NoError(t, store.Put(ctx, "a/two", []byte("beta")))
	require.NoError(t, store.Put(ctx, "b/three", []byte("gamma")))

	t.Run("ReadAll", func(t *testing.T) {
		data, err := ReadAll(ctx, store, "a/one")
		require.NoError(t, err)
		assert.Equal(t, []byte("alpha"), data)
	})

	t.Run("ReadAt", func(t *testing.T) {
		b, err := store.Open(ctx, "a/two")
		require.NoError(t, err)
		defer b.Close()

		assert.Equal(t, int64(4), b.Size())
		p := make([]byte, 2)
		n, err := b.ReadAt(p, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []byte("ta"), p)
	})

	t.Run("List", func(t *testing.T) {
		names, err := store.List(ctx, "a/")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a/one", "a/two"}, names)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a/one", []byte("replaced")))
		data, err := ReadAll(ctx, store, "a/one")
		require.NoError(t, err)
		assert.Equal(t, []byte("replaced"), data)
	})

	t.Run("CreateStreaming", func(t *testing.T) {
		w, err := store.Create(ctx, "streamed")
		require.NoError(t, err)
		_, err = w.Write([]byte("part1-"))
		require.NoError(t, err)
		_, err = w.Write([]byte("part2"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		data, err := ReadAll(ctx, store, "streamed")
		require.NoError(t, err)
		assert.Equal(t, []byte("part1-part2"), data)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "b/three"))
		_, err := store.Open(ctx, "b/three")
		assert.ErrorIs(t, err, ErrNotFound)

		// Deleting a missing blob is not an error.
		assert.NoError(t, store.Delete(ctx, "b/three"))
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	testStore(t, store)
}

func TestLocalStoreHidesTempFiles(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	w, err := store.Create(ctx, "pending")
	require.NoError(t, err)
	defer w.Close()

	// The blob is invisible until Close renames it into place.
	_, err = store.Open(ctx, "pending")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}
