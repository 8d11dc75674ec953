// Package storetest holds a conformance suite every store.Datastore
// implementation must pass.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlistapp/playlist-server/internal/store"
)

// Factory opens a fresh, empty datastore. Cleanup is registered on t.
type Factory func(t *testing.T) store.Datastore

// Run executes the suite against datastores produced by open.
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, ds store.Datastore)
	}{
		{"AllocateID", testAllocateID},
		{"InsertGet", testInsertGet},
		{"UpdateAppliesMutation", testUpdate},
		{"UpdateAbortsOnError", testUpdateAbort},
		{"UpdateMovesIndex", testUpdateMovesIndex},
		{"DeleteIsIdempotent", testDelete},
		{"QueryPaginates", testQueryPaginates},
		{"QueryFilters", testQueryFilters},
		{"QueryRejectsBadCursor", testQueryBadCursor},
		{"ConcurrentUpdatesDoNotLoseWrites", testConcurrentUpdates},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

type doc struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
	Count int    `json:"count"`
}

func record(t *testing.T, d doc) store.Record {
	t.Helper()
	data, err := json.Marshal(d)
	require.NoError(t, err)
	return store.Record{Data: data, Indexes: map[string]string{"owner": d.Owner}}
}

func decode(t *testing.T, data []byte) doc {
	t.Helper()
	var d doc
	require.NoError(t, json.Unmarshal(data, &d))
	return d
}

func insert(t *testing.T, ds store.Datastore, kind string, d doc) store.Key {
	t.Helper()
	ctx := context.Background()
	id, err := ds.AllocateID(ctx, kind)
	require.NoError(t, err)
	key := store.Key{Kind: kind, ID: id}
	require.NoError(t, ds.Insert(ctx, key, record(t, d)))
	return key
}

func testAllocateID(t *testing.T, ds store.Datastore) {
	ctx := context.Background()

	seen := map[int64]bool{}
	var last int64
	for range 10 {
		id, err := ds.AllocateID(ctx, "Thing")
		require.NoError(t, err)
		assert.Positive(t, id)
		assert.Greater(t, id, last)
		assert.False(t, seen[id])
		seen[id] = true
		last = id
	}

	other, err := ds.AllocateID(ctx, "Other")
	require.NoError(t, err)
	assert.Positive(t, other)
}

func testInsertGet(t *testing.T, ds store.Datastore) {
	ctx := context.Background()
	key := insert(t, ds, "Thing", doc{Name: "a", Owner: "u1"})

	data, err := ds.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "a", decode(t, data).Name)

	err = ds.Insert(ctx, key, record(t, doc{Name: "b"}))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = ds.Get(ctx, store.Key{Kind: "Thing", ID: key.ID + 1000})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = ds.Get(ctx, store.Key{Kind: "Other", ID: key.ID})
	assert.ErrorIs(t, err, store.ErrNotFound, "kinds are separate namespaces")
}

func testUpdate(t *testing.T, ds store.Datastore) {
	ctx := context.Background()
	key := insert(t, ds, "Thing", doc{Name: "a", Owner: "u1"})

	err := ds.Update(ctx, key, func(current []byte) (store.Record, error) {
		d := decode(t, current)
		d.Count++
		return record(t, d), nil
	})
	require.NoError(t, err)

	data, err := ds.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, decode(t, data).Count)

	err = ds.Update(ctx, store.Key{Kind: "Thing", ID: key.ID + 1000}, func([]byte) (store.Record, error) {
		t.Fatal("mutate called for a missing record")
		return store.Record{}, nil
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testUpdateAbort(t *testing.T, ds store.Datastore) {
	ctx := context.Background()
	key := insert(t, ds, "Thing", doc{Name: "a", Owner: "u1"})
	boom := errors.New("boom")

	err := ds.Update(ctx, key, func([]byte) (store.Record, error) {
		return store.Record{}, boom
	})
	assert.ErrorIs(t, err, boom)

	data, err := ds.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "a", decode(t, data).Name)
}

func testUpdateMovesIndex(t *testing.T, ds store.Datastore) {
	ctx := context.Background()
	key := insert(t, ds, "Thing", doc{Name: "a", Owner: "u1"})

	err := ds.Update(ctx, key, func(current []byte) (store.Record, error) {
		d := decode(t, current)
		d.Owner = "u2"
		return record(t, d), nil
	})
	require.NoError(t, err)

	page, err := ds.Query(ctx, store.Query{Kind: "Thing", Filter: &store.Filter{Property: "owner", Value: "u1"}})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = ds.Query(ctx, store.Query{Kind: "Thing", Filter: &store.Filter{Property: "owner", Value: "u2"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, key, page.Items[0].Key)
}

func testDelete(t *testing.T, ds store.Datastore) {
	ctx := context.Background()
	key := insert(t, ds, "Thing", doc{Name: "a", Owner: "u1"})

	removed, err := ds.Delete(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "a", decode(t, removed).Name)

	removed, err = ds.Delete(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, removed)

	_, err = ds.Get(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)

	page, err := ds.Query(ctx, store.Query{Kind: "Thing", Filter: &store.Filter{Property: "owner", Value: "u1"}})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func testQueryPaginates(t *testing.T, ds store.Datastore) {
	ctx := context.Background()
	var want []int64
	for i := range 5 {
		want = append(want, insert(t, ds, "Thing", doc{Name: fmt.Sprintf("t%d", i), Owner: "u1"}).ID)
	}
	insert(t, ds, "Other", doc{Name: "noise"})

	var got []int64
	q := store.Query{Kind: "Thing", Limit: 2}
	pages := 0
	for {
		page, err := ds.Query(ctx, q)
		require.NoError(t, err)
		pages++
		assert.LessOrEqual(t, len(page.Items), 2)
		for _, item := range page.Items {
			assert.Equal(t, "Thing", item.Key.Kind)
			got = append(got, item.Key.ID)
		}
		if page.NextCursor == "" {
			break
		}
		q.Cursor = page.NextCursor
		require.Less(t, pages, 10, "pagination did not terminate")
	}

	assert.Equal(t, want, got)
	assert.Equal(t, 3, pages)

	all, err := ds.Query(ctx, store.Query{Kind: "Thing"})
	require.NoError(t, err)
	assert.Len(t, all.Items, 5)
	assert.Empty(t, all.NextCursor)
}

func testQueryFilters(t *testing.T, ds store.Datastore) {
	ctx := context.Background()
	a := insert(t, ds, "Thing", doc{Name: "a", Owner: "u1"})
	insert(t, ds, "Thing", doc{Name: "b", Owner: "u2"})
	c := insert(t, ds, "Thing", doc{Name: "c", Owner: "u1"})

	page, err := ds.Query(ctx, store.Query{Kind: "Thing", Filter: &store.Filter{Property: "owner", Value: "u1"}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, a, page.Items[0].Key)
	require.NotEmpty(t, page.NextCursor)

	page, err = ds.Query(ctx, store.Query{Kind: "Thing", Filter: &store.Filter{Property: "owner", Value: "u1"}, Limit: 1, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, c, page.Items[0].Key)
	assert.Equal(t, "c", decode(t, page.Items[0].Data).Name)
	assert.Empty(t, page.NextCursor)
}

func testQueryBadCursor(t *testing.T, ds store.Datastore) {
	_, err := ds.Query(context.Background(), store.Query{Kind: "Thing", Cursor: "!!not-a-cursor!!"})
	assert.ErrorIs(t, err, store.ErrInvalidCursor)
}

func testConcurrentUpdates(t *testing.T, ds store.Datastore) {
	ctx := context.Background()
	key := insert(t, ds, "Thing", doc{Name: "counter", Owner: "u1"})

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- ds.Update(ctx, key, func(current []byte) (store.Record, error) {
				var d doc
				if err := json.Unmarshal(current, &d); err != nil {
					return store.Record{}, err
				}
				d.Count++
				data, err := json.Marshal(d)
				return store.Record{Data: data, Indexes: map[string]string{"owner": d.Owner}}, err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	data, err := ds.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, writers, decode(t, data).Count)
}

func testPing(t *testing.T, ds store.Datastore) {
	assert.NoError(t, ds.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ds.Ping(ctx), context.Canceled)
}
