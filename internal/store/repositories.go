package store

import (
	"context"

	"github.com/playlistapp/playlist-server/internal/domain"
)

// Index names.
const (
	indexOwner = "owner_id"
	indexSub   = "sub"
)

// PlaylistRepository stores playlists, indexed by owner.
type PlaylistRepository struct {
	*Collection[domain.Playlist]
}

// NewPlaylistRepository creates the playlist repository.
func NewPlaylistRepository(ds Datastore) *PlaylistRepository {
	c := NewCollection(ds, KindPlaylist,
		func(p *domain.Playlist) int64 { return p.ID },
		func(p *domain.Playlist, id int64) { p.ID = id },
	).WithIndex(indexOwner, func(p *domain.Playlist) string { return p.OwnerID })

	return &PlaylistRepository{Collection: c}
}

// ListByOwner returns one page of the playlists owned by subject.
func (r *PlaylistRepository) ListByOwner(ctx context.Context, subject string, page PageRequest) (*PageResult[domain.Playlist], error) {
	return r.ListBy(ctx, indexOwner, subject, page)
}

// TrackRepository stores tracks.
type TrackRepository struct {
	*Collection[domain.Track]
}

// NewTrackRepository creates the track repository.
func NewTrackRepository(ds Datastore) *TrackRepository {
	c := NewCollection(ds, KindTrack,
		func(t *domain.Track) int64 { return t.ID },
		func(t *domain.Track, id int64) { t.ID = id },
	)
	return &TrackRepository{Collection: c}
}

// UserRepository stores users, indexed by subject.
type UserRepository struct {
	*Collection[domain.User]
}

// NewUserRepository creates the user repository.
func NewUserRepository(ds Datastore) *UserRepository {
	c := NewCollection(ds, KindUser,
		func(u *domain.User) int64 { return u.ID },
		func(u *domain.User, id int64) { u.ID = id },
	).WithIndex(indexSub, func(u *domain.User) string { return u.Sub })

	return &UserRepository{Collection: c}
}

// GetBySub returns the first user with the given subject, or ErrNotFound.
func (r *UserRepository) GetBySub(ctx context.Context, sub string) (*domain.User, error) {
	res, err := r.ListBy(ctx, indexSub, sub, PageRequest{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, ErrNotFound
	}
	return res.Items[0], nil
}
