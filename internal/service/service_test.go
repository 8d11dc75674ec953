package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/playlistapp/playlist-server/internal/domain"
	"github.com/playlistapp/playlist-server/internal/store"
)

// testEnv bundles the services over one in-memory store.
type testEnv struct {
	playlists *store.PlaylistRepository
	tracks    *store.TrackRepository
	users     *store.UserRepository
	relations *RelationService

	playlistService *PlaylistService
	trackService    *TrackService
	userService     *UserService
}

func setupServiceTest(t *testing.T) *testEnv {
	t.Helper()

	ds, err := store.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })

	logger := slog.New(slog.DiscardHandler)

	env := &testEnv{
		playlists: store.NewPlaylistRepository(ds),
		tracks:    store.NewTrackRepository(ds),
		users:     store.NewUserRepository(ds),
	}
	env.relations = NewRelationService(env.playlists, env.tracks, RelationConfig{
		Workers: 2,
		Backoff: time.Millisecond,
	}, logger)
	env.relations.Start()
	t.Cleanup(func() { _ = env.relations.Stop(context.Background()) })

	env.playlistService = NewPlaylistService(env.playlists, env.tracks, env.relations, logger)
	env.trackService = NewTrackService(env.tracks, env.relations, logger)
	env.userService = NewUserService(env.users, logger)

	return env
}

func (e *testEnv) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.relations.Flush(ctx))
}

func (e *testEnv) createTrack(t *testing.T, name string) *domain.Track {
	t.Helper()
	track, err := e.trackService.CreateTrack(context.Background(), TrackFields{
		Album:     ptr("Album"),
		Artists:   []domain.Artist{domain.NewArtist("Artist")},
		DurationS: ptr(200),
		Name:      ptr(name),
	})
	require.NoError(t, err)
	return track
}

func (e *testEnv) createPlaylist(t *testing.T, owner domain.Principal, name string) *domain.Playlist {
	t.Helper()
	playlist, err := e.playlistService.CreatePlaylist(context.Background(), owner, PlaylistFields{
		Name:   ptr(name),
		Public: ptr(false),
	})
	require.NoError(t, err)
	return playlist
}

func ptr[T any](v T) *T { return &v }

var (
	alice = domain.Principal{Subject: "sub-alice", Name: "Alice", Email: "alice@example.com"}
	bob   = domain.Principal{Subject: "sub-bob", Name: "Bob", Email: "bob@example.com"}
)
