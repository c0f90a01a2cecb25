package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/switchboard/internal/storage"
	"github.com/scrypster/switchboard/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStoreInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerFlags(t *testing.T) {
	store := newTestStore(t)

	assert.False(t, store.Bool("exp", types.KeyIsStarted))
	require.NoError(t, store.SaveBool("exp", types.KeyIsStarted, true))
	require.NoError(t, store.SaveBool("exp", types.KeyIsCompleted, true))
	assert.True(t, store.Bool("exp", types.KeyIsStarted))
	assert.False(t, store.Bool("exp2", types.KeyIsStarted))

	require.NoError(t, store.ResetBools("exp", types.KeyIsStarted, types.KeyIsCompleted))
	assert.False(t, store.Bool("exp", types.KeyIsStarted))
	assert.False(t, store.Bool("exp", types.KeyIsCompleted))
}

func TestBadgerSnapshotsPerBucket(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutSnapshot(ctx, "switchboard", "active", []byte("a")))
	require.NoError(t, store.PutSnapshot(ctx, "switchboardDebug", "active", []byte("b")))

	data, err := store.GetSnapshot(ctx, "switchboard", "active")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	require.NoError(t, store.DeleteSnapshot(ctx, "switchboard", "active"))
	_, err = store.GetSnapshot(ctx, "switchboard", "active")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	data, err = store.GetSnapshot(ctx, "switchboardDebug", "active")
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestBadgerPersistsToDisk(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveBool("exp", types.KeyIsCompleted, true))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "double close is harmless")

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()
	assert.True(t, reopened.Bool("exp", types.KeyIsCompleted))
}

func TestBadgerClosed(t *testing.T) {
	store, err := NewStoreInMemory()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.SaveBool("exp", types.KeyIsStarted, true), storage.ErrClosed)
	assert.False(t, store.Bool("exp", types.KeyIsStarted))
}

func TestBadgerRequiresDataDir(t *testing.T) {
	_, err := NewStoreWithOptions(Options{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
