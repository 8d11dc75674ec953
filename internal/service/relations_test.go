package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlistapp/playlist-server/internal/domain"
	"github.com/playlistapp/playlist-server/internal/store"
)

// flakyStore fails the first n updates.
type flakyStore struct {
	store.Datastore
	failures atomic.Int32
}

var errFlaky = errors.New("flaky write")

func (f *flakyStore) Update(ctx context.Context, key store.Key, fn store.MutateFunc) error {
	if f.failures.Add(-1) >= 0 {
		return errFlaky
	}
	return f.Datastore.Update(ctx, key, fn)
}

func setupRelationTest(t *testing.T, failures int32, cfg RelationConfig) (*RelationService, *store.PlaylistRepository, *store.TrackRepository) {
	t.Helper()

	ds, err := store.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })

	flaky := &flakyStore{Datastore: ds}
	flaky.failures.Store(failures)

	playlists := store.NewPlaylistRepository(flaky)
	tracks := store.NewTrackRepository(flaky)

	if cfg.Backoff == 0 {
		cfg.Backoff = time.Millisecond
	}
	svc := NewRelationService(playlists, tracks, cfg, slog.New(slog.DiscardHandler))
	return svc, playlists, tracks
}

func seedLinkedPair(t *testing.T, playlists *store.PlaylistRepository, tracks *store.TrackRepository) (*domain.Playlist, *domain.Track) {
	t.Helper()
	ctx := context.Background()

	track := &domain.Track{Name: "t", Playlists: []int64{}}
	require.NoError(t, tracks.Create(ctx, track))

	playlist := domain.NewPlaylist("p", false, "owner")
	playlist.Tracks = []int64{track.ID}
	require.NoError(t, playlists.Create(ctx, playlist))

	return playlist, track
}

func flushWithin(t *testing.T, svc *RelationService, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, svc.Flush(ctx))
}

func TestRelationService_RetriesThenSucceeds(t *testing.T) {
	svc, playlists, tracks := setupRelationTest(t, 2, RelationConfig{Workers: 1, MaxAttempts: 3})
	svc.Start()
	defer func() { _ = svc.Stop(context.Background()) }()

	playlist, track := seedLinkedPair(t, playlists, tracks)

	svc.Schedule(RelationJob{Kind: JobLinkTrack, PlaylistID: playlist.ID, TrackID: track.ID})
	flushWithin(t, svc, 5*time.Second)

	stored, err := tracks.Get(context.Background(), track.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{playlist.ID}, stored.Playlists)

	stats := svc.Stats()
	assert.Equal(t, uint64(1), stats.Completed)
	assert.Equal(t, uint64(0), stats.Failed)
	assert.Equal(t, int64(0), stats.Pending)
}

func TestRelationService_GivesUpAfterMaxAttempts(t *testing.T) {
	svc, playlists, tracks := setupRelationTest(t, 10, RelationConfig{Workers: 1, MaxAttempts: 2})
	svc.Start()
	defer func() { _ = svc.Stop(context.Background()) }()

	playlist, track := seedLinkedPair(t, playlists, tracks)

	svc.Schedule(RelationJob{Kind: JobLinkTrack, PlaylistID: playlist.ID, TrackID: track.ID})
	flushWithin(t, svc, 5*time.Second)

	stats := svc.Stats()
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(0), stats.Completed)
}

func TestRelationService_LinkSkipsWhenPlaylistNoLongerHoldsTrack(t *testing.T) {
	svc, playlists, tracks := setupRelationTest(t, 0, RelationConfig{Workers: 1})
	svc.Start()
	defer func() { _ = svc.Stop(context.Background()) }()

	ctx := context.Background()
	playlist, track := seedLinkedPair(t, playlists, tracks)
	_, err := playlists.Mutate(ctx, playlist.ID, func(p *domain.Playlist) error {
		p.RemoveTrack(track.ID)
		return nil
	})
	require.NoError(t, err)

	svc.Schedule(RelationJob{Kind: JobLinkTrack, PlaylistID: playlist.ID, TrackID: track.ID})
	flushWithin(t, svc, 5*time.Second)

	stored, err := tracks.Get(ctx, track.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Playlists)
	assert.Equal(t, uint64(1), svc.Stats().Completed)
}

func TestRelationService_DetachToleratesMissingRecords(t *testing.T) {
	svc, _, tracks := setupRelationTest(t, 0, RelationConfig{Workers: 2})
	svc.Start()
	defer func() { _ = svc.Stop(context.Background()) }()

	ctx := context.Background()
	track := &domain.Track{Name: "t", Playlists: []int64{7, 8}}
	require.NoError(t, tracks.Create(ctx, track))

	svc.Schedule(RelationJob{Kind: JobDetachPlaylist, PlaylistID: 7, TrackIDs: []int64{track.ID, 9999}})
	svc.Schedule(RelationJob{Kind: JobDetachTrack, TrackID: 42, PlaylistIDs: []int64{5555}})
	flushWithin(t, svc, 5*time.Second)

	stored, err := tracks.Get(ctx, track.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{8}, stored.Playlists)

	stats := svc.Stats()
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Pending)
}

func TestRelationService_DropsWhenQueueFull(t *testing.T) {
	svc, _, _ := setupRelationTest(t, 0, RelationConfig{Workers: 1, QueueSize: 1})

	svc.Schedule(RelationJob{Kind: JobUnlinkTrack, PlaylistID: 1, TrackID: 1})
	svc.Schedule(RelationJob{Kind: JobUnlinkTrack, PlaylistID: 1, TrackID: 2})

	stats := svc.Stats()
	assert.Equal(t, uint64(1), stats.Enqueued)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, int64(1), stats.Pending)
}

func TestRelationService_RoutesJobsByTrack(t *testing.T) {
	svc, _, _ := setupRelationTest(t, 0, RelationConfig{Workers: 2, QueueSize: 1})

	// Tracks 2 and 4 share a worker; track 3 has the other one.
	svc.Schedule(RelationJob{Kind: JobLinkTrack, PlaylistID: 1, TrackID: 2})
	svc.Schedule(RelationJob{Kind: JobUnlinkTrack, PlaylistID: 1, TrackID: 4})
	svc.Schedule(RelationJob{Kind: JobUnlinkTrack, PlaylistID: 1, TrackID: 3})

	stats := svc.Stats()
	assert.Equal(t, uint64(2), stats.Enqueued)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestRelationService_SplitsDetachPlaylistPerWorker(t *testing.T) {
	svc, _, _ := setupRelationTest(t, 0, RelationConfig{Workers: 3})

	svc.Schedule(RelationJob{Kind: JobDetachPlaylist, PlaylistID: 1, TrackIDs: []int64{1, 4, 7, 2}})
	svc.Schedule(RelationJob{Kind: JobDetachPlaylist, PlaylistID: 2})

	stats := svc.Stats()
	assert.Equal(t, uint64(2), stats.Enqueued)
	assert.Equal(t, int64(2), stats.Pending)
}

// gatedStore holds the first playlist read until release is closed.
type gatedStore struct {
	store.Datastore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Get(ctx context.Context, key store.Key) ([]byte, error) {
	data, err := g.Datastore.Get(ctx, key)
	if key.Kind == store.KindPlaylist {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return data, err
}

func TestRelationService_JobsForOneTrackRunInOrder(t *testing.T) {
	ds, err := store.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })

	gated := &gatedStore{Datastore: ds, entered: make(chan struct{}), release: make(chan struct{})}
	playlists := store.NewPlaylistRepository(gated)
	tracks := store.NewTrackRepository(gated)

	svc := NewRelationService(playlists, tracks, RelationConfig{Workers: 4, Backoff: time.Millisecond}, slog.New(slog.DiscardHandler))
	svc.Start()
	defer func() { _ = svc.Stop(context.Background()) }()

	ctx := context.Background()
	playlist, track := seedLinkedPair(t, playlists, tracks)

	// The link job reads the playlist while it still holds the track, then
	// waits. The track is removed and the unlink job queued meanwhile; it
	// must not run until the link job has written.
	svc.Schedule(RelationJob{Kind: JobLinkTrack, PlaylistID: playlist.ID, TrackID: track.ID})
	<-gated.entered

	_, err = playlists.Mutate(ctx, playlist.ID, func(p *domain.Playlist) error {
		p.RemoveTrack(track.ID)
		return nil
	})
	require.NoError(t, err)
	svc.Schedule(RelationJob{Kind: JobUnlinkTrack, PlaylistID: playlist.ID, TrackID: track.ID})

	close(gated.release)
	flushWithin(t, svc, 5*time.Second)

	stored, err := tracks.Get(ctx, track.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Playlists)
}

func TestRelationService_LinkDropsDeletedTrackFromPlaylist(t *testing.T) {
	svc, playlists, _ := setupRelationTest(t, 0, RelationConfig{Workers: 2})
	svc.Start()
	defer func() { _ = svc.Stop(context.Background()) }()

	ctx := context.Background()
	playlist := domain.NewPlaylist("p", false, "owner")
	playlist.Tracks = []int64{404, 405}
	require.NoError(t, playlists.Create(ctx, playlist))

	svc.Schedule(RelationJob{Kind: JobLinkTrack, PlaylistID: playlist.ID, TrackID: 404})
	flushWithin(t, svc, 5*time.Second)

	stored, err := playlists.Get(ctx, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{405}, stored.Tracks)
}

func TestRelationService_StopDrainsAndRejects(t *testing.T) {
	svc, playlists, tracks := setupRelationTest(t, 0, RelationConfig{Workers: 1})
	svc.Start()

	playlist, track := seedLinkedPair(t, playlists, tracks)
	svc.Schedule(RelationJob{Kind: JobLinkTrack, PlaylistID: playlist.ID, TrackID: track.ID})

	require.NoError(t, svc.Stop(context.Background()))
	assert.Equal(t, uint64(1), svc.Stats().Completed)

	svc.Schedule(RelationJob{Kind: JobLinkTrack, PlaylistID: playlist.ID, TrackID: track.ID})
	assert.Equal(t, uint64(1), svc.Stats().Dropped)

	assert.NoError(t, svc.Stop(context.Background()), "second stop is a no-op")
}

func TestRelationService_FlushHonoursContext(t *testing.T) {
	svc, _, _ := setupRelationTest(t, 0, RelationConfig{})
	svc.Schedule(RelationJob{Kind: JobUnlinkTrack, PlaylistID: 1, TrackID: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Flush(ctx), context.DeadlineExceeded)
}

func TestRelationService_JobIDsAssigned(t *testing.T) {
	var got []string
	logger := slog.New(slog.NewTextHandler(&captureWriter{fn: func(line string) { got = append(got, line) }}, &slog.HandlerOptions{Level: slog.LevelDebug}))

	svc := NewRelationService(nil, nil, RelationConfig{}, logger)
	svc.Schedule(RelationJob{Kind: JobUnlinkTrack, PlaylistID: 1, TrackID: 1})

	require.NotEmpty(t, got)
	assert.Contains(t, got[0], "job_id=rel-")
}

type captureWriter struct {
	fn func(string)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.fn(string(p))
	return len(p), nil
}
