package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlistapp/playlist-server/internal/store"
	"github.com/playlistapp/playlist-server/internal/store/storetest"
)

func openBadger(t *testing.T) store.Datastore {
	t.Helper()
	ds, err := store.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func TestBadgerStore_Conformance(t *testing.T) {
	storetest.Run(t, openBadger)
}

func TestBadgerStore_InMemoryConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Datastore {
		ds, err := store.OpenInMemory(nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = ds.Close() })
		return ds
	})
}

func TestBadgerStore_IDsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	ds, err := store.Open(dir, nil)
	require.NoError(t, err)
	first, err := ds.AllocateID(ctx, store.KindTrack)
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	ds, err = store.Open(dir, nil)
	require.NoError(t, err)
	defer ds.Close()

	second, err := ds.AllocateID(ctx, store.KindTrack)
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestBadgerStore_PingAfterClose(t *testing.T) {
	ds, err := store.Open(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	assert.ErrorIs(t, ds.Ping(context.Background()), store.ErrClosed)
}
