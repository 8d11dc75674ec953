package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/playlistapp/playlist-server/internal/domain"
	domainerrors "github.com/playlistapp/playlist-server/internal/errors"
	"github.com/playlistapp/playlist-server/internal/store"
)

// TrackFields carries caller-settable track attributes. A nil field was
// absent from the request.
type TrackFields struct {
	Album     *string
	Artists   []domain.Artist
	DurationS *int
	Name      *string
}

// Complete reports whether every field is present.
func (f TrackFields) Complete() bool {
	return f.Album != nil && f.Artists != nil && f.DurationS != nil && f.Name != nil
}

func (f TrackFields) apply(t *domain.Track) {
	if f.Album != nil {
		t.Album = *f.Album
	}
	if f.Artists != nil {
		t.Artists = slices.Clone(f.Artists)
	}
	if f.DurationS != nil {
		t.DurationS = *f.DurationS
	}
	if f.Name != nil {
		t.Name = *f.Name
	}
}

// TrackService manages the track catalog. Tracks have no owner.
type TrackService struct {
	tracks    *store.TrackRepository
	relations RelationScheduler
	logger    *slog.Logger
}

// NewTrackService creates a new track service.
func NewTrackService(tracks *store.TrackRepository, relations RelationScheduler, logger *slog.Logger) *TrackService {
	return &TrackService{
		tracks:    tracks,
		relations: relations,
		logger:    logger,
	}
}

// CreateTrack stores a new track that belongs to no playlist.
func (s *TrackService) CreateTrack(ctx context.Context, fields TrackFields) (*domain.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fields.Complete() {
		return nil, domainerrors.BadRequest("album, artists, duration_s and name are required")
	}

	track := &domain.Track{Playlists: []int64{}}
	fields.apply(track)

	if err := s.tracks.Create(ctx, track); err != nil {
		return nil, fmt.Errorf("create track: %w", err)
	}

	s.logger.Info("track created", "track_id", track.ID, "name", track.Name)
	return track, nil
}

// ListTracks returns one page of tracks.
func (s *TrackService) ListTracks(ctx context.Context, page store.PageRequest) (*store.PageResult[domain.Track], error) {
	res, err := s.tracks.List(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return res, nil
}

// GetTrack retrieves a track by ID.
func (s *TrackService) GetTrack(ctx context.Context, trackID int64) (*domain.Track, error) {
	track, err := s.tracks.Get(ctx, trackID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("track %d", trackID)
		}
		return nil, fmt.Errorf("get track: %w", err)
	}
	return track, nil
}

// UpdateTrack applies the present fields. Playlists are never changed here.
func (s *TrackService) UpdateTrack(ctx context.Context, trackID int64, fields TrackFields) (*domain.Track, error) {
	return s.mutate(ctx, trackID, "updated", func(t *domain.Track) error {
		fields.apply(t)
		return nil
	})
}

// ReplaceTrack overwrites all content fields; each must be present.
func (s *TrackService) ReplaceTrack(ctx context.Context, trackID int64, fields TrackFields) (*domain.Track, error) {
	return s.mutate(ctx, trackID, "replaced", func(t *domain.Track) error {
		if !fields.Complete() {
			return domainerrors.BadRequest("album, artists, duration_s and name are required")
		}
		fields.apply(t)
		return nil
	})
}

// DeleteTrack deletes a track and schedules its removal from the playlists
// that listed it.
func (s *TrackService) DeleteTrack(ctx context.Context, trackID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	track, err := s.tracks.Delete(ctx, trackID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFoundf("track %d", trackID)
	}
	if err != nil {
		return fmt.Errorf("delete track: %w", err)
	}

	s.logger.Info("track deleted", "track_id", trackID, "playlist_count", len(track.Playlists))

	if len(track.Playlists) > 0 {
		s.relations.Schedule(RelationJob{
			Kind:        JobDetachTrack,
			TrackID:     trackID,
			PlaylistIDs: slices.Clone(track.Playlists),
		})
	}
	return nil
}

func (s *TrackService) mutate(ctx context.Context, trackID int64, action string, fn func(*domain.Track) error) (*domain.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	track, err := s.tracks.Mutate(ctx, trackID, func(t *domain.Track) error {
		playlists := t.Playlists
		if err := fn(t); err != nil {
			return err
		}
		t.Playlists = playlists
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("track %d", trackID)
		}
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, fmt.Errorf("update track: %w", err)
	}

	s.logger.Info("track "+action, "track_id", trackID)
	return track, nil
}
