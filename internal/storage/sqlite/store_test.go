package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/switchboard/internal/storage"
	"github.com/scrypster/switchboard/pkg/types"
)

// newTestStore creates an in-memory SQLite store for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err, "failed to create test store")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestFlagsDefaultFalse(t *testing.T) {
	store := newTestStore(t)
	assert.False(t, store.Bool("exp", types.KeyIsStarted))
}

func TestFlagsAreNamespacedPerEntity(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveBool("expA", types.KeyIsStarted, true))
	assert.True(t, store.Bool("expA", types.KeyIsStarted))
	assert.False(t, store.Bool("expB", types.KeyIsStarted))
	assert.False(t, store.Bool("expA", types.KeyIsCompleted))

	require.NoError(t, store.SaveBool("expA", types.KeyIsStarted, false))
	assert.False(t, store.Bool("expA", types.KeyIsStarted))
}

func TestResetBools(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveBool("exp", types.KeyIsStarted, true))
	require.NoError(t, store.SaveBool("exp", types.KeyIsCompleted, true))
	require.NoError(t, store.SaveBool("other", types.KeyIsStarted, true))

	require.NoError(t, store.ResetBools("exp", types.KeyIsStarted, types.KeyIsCompleted))
	assert.False(t, store.Bool("exp", types.KeyIsStarted))
	assert.False(t, store.Bool("exp", types.KeyIsCompleted))
	assert.True(t, store.Bool("other", types.KeyIsStarted))
}

func TestSaveBoolRejectsEmptyName(t *testing.T) {
	store := newTestStore(t)
	assert.ErrorIs(t, store.SaveBool("", types.KeyIsStarted, true), storage.ErrInvalidInput)
}

func TestSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetSnapshot(ctx, "switchboard", "active")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.PutSnapshot(ctx, "switchboard", "active", []byte("one")))
	require.NoError(t, store.PutSnapshot(ctx, "switchboard", "active", []byte("two")))
	require.NoError(t, store.PutSnapshot(ctx, "switchboardDebug", "active", []byte("debug")))

	data, err := store.GetSnapshot(ctx, "switchboard", "active")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	require.NoError(t, store.DeleteSnapshot(ctx, "switchboard", "active"))
	_, err = store.GetSnapshot(ctx, "switchboard", "active")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	data, err = store.GetSnapshot(ctx, "switchboardDebug", "active")
	require.NoError(t, err)
	assert.Equal(t, "debug", string(data), "buckets are independent")
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switchboard.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveBool("exp", types.KeyIsStarted, true))
	require.NoError(t, store.PutSnapshot(context.Background(), "switchboard", "default", []byte("{}")))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.True(t, reopened.Bool("exp", types.KeyIsStarted))
	_, err = reopened.GetSnapshot(context.Background(), "switchboard", "default")
	assert.NoError(t, err)
}

func TestDBPathFromDSN(t *testing.T) {
	assert.Equal(t, "", dbPathFromDSN(":memory:"))
	assert.Equal(t, "/tmp/x.db", dbPathFromDSN("/tmp/x.db"))
	assert.Equal(t, "/tmp/x.db", dbPathFromDSN("file:/tmp/x.db?mode=rwc"))
	assert.Equal(t, "", dbPathFromDSN("file::memory:"))
}
