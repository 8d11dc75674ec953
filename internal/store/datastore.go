// Package store persists playlists, tracks and users in a key/value
// document store addressed by (kind, numeric id).
//
// The Datastore interface is the adapter boundary. BadgerStore (this
// package) and sqlite.Store implement it; Collection and the repositories
// build typed access on top.
package store

import "context"

// Kinds stored by the server.
const (
	KindPlaylist = "Playlist"
	KindTrack    = "Track"
	KindUser     = "User"
)

// Key addresses one record.
type Key struct {
	Kind string
	ID   int64
}

// Record is the stored form of an entity: an opaque payload plus the
// single-valued properties that can be used in an equality Filter.
type Record struct {
	Data    []byte
	Indexes map[string]string
}

// Item is one record returned by a query.
type Item struct {
	Key  Key
	Data []byte
}

// Filter restricts a query to records whose indexed property equals Value.
type Filter struct {
	Property string
	Value    string
}

// Query selects records of one kind in ascending id order.
type Query struct {
	Kind   string
	Filter *Filter
	Limit  int    // <= 0 means no limit
	Cursor string // opaque, from Page.NextCursor
}

// Page is one slice of query results. NextCursor is empty on the last page.
type Page struct {
	Items      []Item
	NextCursor string
}

// MutateFunc receives the current payload of a record and returns its
// replacement. Returning an error aborts the write.
type MutateFunc func(current []byte) (Record, error)

// Datastore is the document store adapter.
type Datastore interface {
	// AllocateID reserves a new, never reused id for kind.
	AllocateID(ctx context.Context, kind string) (int64, error)
	// Get returns the payload stored at key or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)
	// Insert stores a new record; ErrAlreadyExists if key is taken.
	Insert(ctx context.Context, key Key, rec Record) error
	// Update atomically replaces the record at key with fn's result.
	// Returns ErrNotFound if nothing is stored there.
	Update(ctx context.Context, key Key, fn MutateFunc) error
	// Delete removes key and returns the payload it held, read in the same
	// transaction. Deleting a missing key returns nil data and no error.
	Delete(ctx context.Context, key Key) ([]byte, error)
	// Query lists records of one kind.
	Query(ctx context.Context, q Query) (*Page, error)
	// Ping reports whether the store is usable.
	Ping(ctx context.Context) error
	// Close releases the store.
	Close() error
}
