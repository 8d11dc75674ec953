package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/playlistapp/playlist-server/internal/domain"
	"github.com/playlistapp/playlist-server/internal/id"
	"github.com/playlistapp/playlist-server/internal/store"
)

// RelationJobKind names an inverse-side relationship update.
type RelationJobKind string

// Relation job kinds.
const (
	// JobLinkTrack adds PlaylistID to the track's playlists.
	JobLinkTrack RelationJobKind = "link_track"
	// JobUnlinkTrack removes PlaylistID from the track's playlists.
	JobUnlinkTrack RelationJobKind = "unlink_track"
	// JobDetachPlaylist removes a deleted PlaylistID from every track in
	// TrackIDs. It is split per worker when scheduled.
	JobDetachPlaylist RelationJobKind = "detach_playlist"
	// JobDetachTrack removes a deleted TrackID from every playlist in PlaylistIDs.
	JobDetachTrack RelationJobKind = "detach_track"
)

// RelationJob is one unit of background relationship maintenance.
type RelationJob struct {
	ID          string
	Kind        RelationJobKind
	PlaylistID  int64
	TrackID     int64
	TrackIDs    []int64
	PlaylistIDs []int64
}

// RelationScheduler accepts relationship jobs without waiting for them.
type RelationScheduler interface {
	Schedule(job RelationJob)
}

// RelationStats counts jobs over the life of the service.
type RelationStats struct {
	Enqueued  uint64 `json:"enqueued"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	Pending   int64  `json:"pending"`
}

// RelationConfig tunes the worker pool.
type RelationConfig struct {
	Workers     int
	QueueSize   int // capacity of each worker's queue
	MaxAttempts int
	Backoff     time.Duration // delay before the second attempt, doubled after each retry
	JobTimeout  time.Duration
	FanOut      int // concurrent record updates within one cascade job
}

func (c *RelationConfig) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 100 * time.Millisecond
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 10 * time.Second
	}
	if c.FanOut <= 0 {
		c.FanOut = 8
	}
}

// RelationService keeps the inverse side of playlist/track references in
// step with the side the caller changed. Jobs run outside any request on a
// fixed set of workers, each draining its own bounded queue. Every job that
// touches a track goes to the worker chosen by the track id, so jobs for one
// track run one at a time in the order they were scheduled.
type RelationService struct {
	playlists *store.PlaylistRepository
	tracks    *store.TrackRepository
	logger    *slog.Logger
	cfg       RelationConfig

	queues []chan RelationJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards the lifecycle flags and the pending count.
	mu      sync.Mutex
	closed  bool
	started bool
	pending int64
	idle    chan struct{}

	enqueued  atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewRelationService creates the service. Call Start before scheduling.
func NewRelationService(playlists *store.PlaylistRepository, tracks *store.TrackRepository, cfg RelationConfig, logger *slog.Logger) *RelationService {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	idle := make(chan struct{})
	close(idle)

	queues := make([]chan RelationJob, cfg.Workers)
	for i := range queues {
		queues[i] = make(chan RelationJob, cfg.QueueSize)
	}

	return &RelationService{
		playlists: playlists,
		tracks:    tracks,
		logger:    logger,
		cfg:       cfg,
		queues:    queues,
		ctx:       ctx,
		cancel:    cancel,
		idle:      idle,
	}
}

// Start launches the workers. Calling it again has no effect.
func (s *RelationService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true

	for i := range s.cfg.Workers {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.logger.Info("relation workers started",
		"workers", s.cfg.Workers,
		"queue_size", s.cfg.QueueSize,
		"max_attempts", s.cfg.MaxAttempts,
	)
}

// Schedule enqueues job. It never blocks: a full queue or a stopped service
// drops the job and logs it. A detach_playlist job is split into one job per
// worker that owns any of its tracks.
func (s *RelationService) Schedule(job RelationJob) {
	if job.ID == "" {
		jobID, err := id.Generate("rel")
		if err != nil {
			jobID = fmt.Sprintf("rel-%d", time.Now().UnixNano())
		}
		job.ID = jobID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Kind != JobDetachPlaylist {
		s.enqueue(s.shard(job.TrackID), job)
		return
	}

	parts := make(map[int][]int64)
	for _, trackID := range job.TrackIDs {
		n := s.shard(trackID)
		parts[n] = append(parts[n], trackID)
	}
	for _, n := range slices.Sorted(maps.Keys(parts)) {
		part := job
		part.TrackIDs = parts[n]
		s.enqueue(n, part)
	}
}

// shard picks the worker that owns trackID.
func (s *RelationService) shard(trackID int64) int {
	return int(uint64(trackID) % uint64(len(s.queues)))
}

// enqueue must be called with mu held.
func (s *RelationService) enqueue(n int, job RelationJob) {
	if s.closed {
		s.drop(job, "service stopped")
		return
	}

	select {
	case s.queues[n] <- job:
		if s.pending == 0 {
			s.idle = make(chan struct{})
		}
		s.pending++
		s.enqueued.Add(1)
		s.logger.Debug("relation job enqueued", append(jobAttrs(job), "worker", n)...)
	default:
		s.drop(job, "queue full")
	}
}

// drop must be called with mu held.
func (s *RelationService) drop(job RelationJob, reason string) {
	s.dropped.Add(1)
	s.logger.Error("relation job dropped", append(jobAttrs(job), "reason", reason)...)
}

// Flush blocks until every job scheduled so far has finished or ctx is done.
func (s *RelationService) Flush(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.pending == 0 {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop refuses new jobs, lets the workers drain the queue and waits for
// them. If ctx ends first, in-flight jobs are canceled.
func (s *RelationService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	for _, q := range s.queues {
		close(q)
	}
	s.mu.Unlock()

	if !started {
		s.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.logger.Info("relation workers stopped", "completed", s.completed.Load(), "failed", s.failed.Load())
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return fmt.Errorf("stop relation workers: %w", ctx.Err())
	}
}

// Stats returns a snapshot of the job counters.
func (s *RelationService) Stats() RelationStats {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()

	return RelationStats{
		Enqueued:  s.enqueued.Load(),
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
		Dropped:   s.dropped.Load(),
		Pending:   pending,
	}
}

func (s *RelationService) worker(n int) {
	defer s.wg.Done()
	for job := range s.queues[n] {
		s.run(job, n)
		s.finish()
	}
}

func (s *RelationService) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
}

// run applies job with bounded retries and exponential backoff.
func (s *RelationService) run(job RelationJob, worker int) {
	start := time.Now()
	backoff := s.cfg.Backoff

	var err error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.JobTimeout)
		err = s.apply(ctx, job)
		cancel()

		if err == nil {
			s.completed.Add(1)
			s.logger.Debug("relation job completed",
				append(jobAttrs(job), "worker", worker, "attempt", attempt, "duration", time.Since(start))...)
			return
		}

		if attempt == s.cfg.MaxAttempts || s.ctx.Err() != nil {
			break
		}

		s.logger.Warn("relation job failed, retrying",
			append(jobAttrs(job), "attempt", attempt, "backoff", backoff, "error", err)...)

		select {
		case <-time.After(backoff):
		case <-s.ctx.Done():
		}
		backoff *= 2
	}

	s.failed.Add(1)
	s.logger.Error("relation job failed",
		append(jobAttrs(job), "worker", worker, "duration", time.Since(start), "error", err)...)
}

func (s *RelationService) apply(ctx context.Context, job RelationJob) error {
	switch job.Kind {
	case JobLinkTrack:
		return s.linkTrack(ctx, job.PlaylistID, job.TrackID)
	case JobUnlinkTrack:
		return s.unlinkTrack(ctx, job.PlaylistID, job.TrackID)
	case JobDetachPlaylist:
		return s.fanOut(ctx, job.TrackIDs, func(ctx context.Context, trackID int64) error {
			return s.removePlaylistFromTrack(ctx, trackID, job.PlaylistID)
		})
	case JobDetachTrack:
		return s.fanOut(ctx, job.PlaylistIDs, func(ctx context.Context, playlistID int64) error {
			return s.removeTrackFromPlaylist(ctx, playlistID, job.TrackID)
		})
	default:
		return fmt.Errorf("unknown relation job kind %q", job.Kind)
	}
}

// linkTrack records the playlist on the track, unless the playlist no
// longer holds the track by the time the job runs. If the track was deleted
// after the playlist took it, the track is dropped from the playlist.
func (s *RelationService) linkTrack(ctx context.Context, playlistID, trackID int64) error {
	playlist, err := s.playlists.Get(ctx, playlistID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get playlist %d: %w", playlistID, err)
	}
	if !playlist.ContainsTrack(trackID) {
		return nil
	}

	_, err = s.tracks.Mutate(ctx, trackID, func(t *domain.Track) error {
		if !t.LinkPlaylist(playlistID) {
			return store.ErrNoChange
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return s.removeTrackFromPlaylist(ctx, playlistID, trackID)
	}
	if err != nil {
		return fmt.Errorf("link track %d to playlist %d: %w", trackID, playlistID, err)
	}
	return nil
}

// unlinkTrack drops the playlist from the track unless the track was added
// back in the meantime.
func (s *RelationService) unlinkTrack(ctx context.Context, playlistID, trackID int64) error {
	playlist, err := s.playlists.Get(ctx, playlistID)
	switch {
	case err == nil && playlist.ContainsTrack(trackID):
		return nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("get playlist %d: %w", playlistID, err)
	}
	return s.removePlaylistFromTrack(ctx, trackID, playlistID)
}

func (s *RelationService) removePlaylistFromTrack(ctx context.Context, trackID, playlistID int64) error {
	_, err := s.tracks.Mutate(ctx, trackID, func(t *domain.Track) error {
		if !t.UnlinkPlaylist(playlistID) {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("unlink playlist %d from track %d: %w", playlistID, trackID, err)
	}
	return nil
}

func (s *RelationService) removeTrackFromPlaylist(ctx context.Context, playlistID, trackID int64) error {
	_, err := s.playlists.Mutate(ctx, playlistID, func(p *domain.Playlist) error {
		if !p.RemoveTrack(trackID) {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("remove track %d from playlist %d: %w", trackID, playlistID, err)
	}
	return nil
}

// fanOut runs fn for every id with at most FanOut updates in flight.
func (s *RelationService) fanOut(ctx context.Context, ids []int64, fn func(context.Context, int64) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FanOut)
	for _, recordID := range ids {
		g.Go(func() error {
			return fn(ctx, recordID)
		})
	}
	return g.Wait()
}

func jobAttrs(job RelationJob) []any {
	attrs := []any{"job_id", job.ID, "kind", string(job.Kind)}
	if job.PlaylistID != 0 {
		attrs = append(attrs, "playlist_id", job.PlaylistID)
	}
	if job.TrackID != 0 {
		attrs = append(attrs, "track_id", job.TrackID)
	}
	if len(job.TrackIDs) > 0 {
		attrs = append(attrs, "track_count", len(job.TrackIDs))
	}
	if len(job.PlaylistIDs) > 0 {
		attrs = append(attrs, "playlist_count", len(job.PlaylistIDs))
	}
	return attrs
}
