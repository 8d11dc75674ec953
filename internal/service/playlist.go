// Package service provides the business logic for playlists, tracks and users.
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

// PlaylistFields carries caller-settable playlist attributes. A nil field
// was absent from the request.
type PlaylistFields struct {
	Name   *string
	Public *bool
}

// Complete reports whether every field is present.
func (f PlaylistFields) Complete() bool {
	return f.Name != nil && f.Public != nil
}

// PlaylistService orchestrates playlist operations with ownership checks.
type PlaylistService struct {
	playlists *store.PlaylistRepository
	tracks    *store.TrackRepository
	relations RelationScheduler
	logger    *slog.Logger
}

// NewPlaylistService creates a new playlist service.
func NewPlaylistService(playlists *store.PlaylistRepository, tracks *store.TrackRepository, relations RelationScheduler, logger *slog.Logger) *PlaylistService {
	return &PlaylistService{
		playlists: playlists,
		tracks:    tracks,
		relations: relations,
		logger:    logger,
	}
}

// CreatePlaylist creates an empty playlist owned by the principal.
func (s *PlaylistService) CreatePlaylist(ctx context.Context, p domain.Principal, fields PlaylistFields) (*domain.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.IsAuthenticated() {
		return nil, domainerrors.ErrUnauthorized
	}
	if !fields.Complete() {
		return nil, domainerrors.BadRequest("name and public are required")
	}

	playlist := domain.NewPlaylist(*fields.Name, *fields.Public, p.Subject)
	if err := s.playlists.Create(ctx, playlist); err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}

	s.logger.Info("playlist created",
		"playlist_id", playlist.ID,
		"owner_id", p.Subject,
		"name", playlist.Name,
	)

	return playlist, nil
}

// ListPlaylists returns one page of the principal's playlists.
func (s *PlaylistService) ListPlaylists(ctx context.Context, p domain.Principal, page store.PageRequest) (*store.PageResult[domain.Playlist], error) {
	if !p.IsAuthenticated() {
		return nil, domainerrors.ErrUnauthorized
	}
	res, err := s.playlists.ListByOwner(ctx, p.Subject, page)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	return res, nil
}

// GetPlaylist returns a playlist the principal owns.
func (s *PlaylistService) GetPlaylist(ctx context.Context, p domain.Principal, playlistID int64) (*domain.Playlist, error) {
	if !p.IsAuthenticated() {
		return nil, domainerrors.ErrUnauthorized
	}

	playlist, err := s.load(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(playlist, p); err != nil {
		return nil, err
	}
	return playlist, nil
}

// UpdatePlaylist applies the present fields. The principal becomes the
// owner of record.
func (s *PlaylistService) UpdatePlaylist(ctx context.Context, p domain.Principal, playlistID int64, fields PlaylistFields) (*domain.Playlist, error) {
	return s.mutate(ctx, p, playlistID, "updated", func(playlist *domain.Playlist) error {
		applyFields(playlist, fields, p)
		return nil
	})
}

// ReplacePlaylist overwrites name and public; both must be present. Tracks
// are kept.
func (s *PlaylistService) ReplacePlaylist(ctx context.Context, p domain.Principal, playlistID int64, fields PlaylistFields) (*domain.Playlist, error) {
	return s.mutate(ctx, p, playlistID, "replaced", func(playlist *domain.Playlist) error {
		if !fields.Complete() {
			return domainerrors.BadRequest("name and public are required")
		}
		applyFields(playlist, fields, p)
		return nil
	})
}

// AddTrack appends trackID to the playlist. The track side is updated in
// the background.
func (s *PlaylistService) AddTrack(ctx context.Context, p domain.Principal, playlistID, trackID int64) (*domain.Playlist, error) {
	if !p.IsAuthenticated() {
		return nil, domainerrors.ErrUnauthorized
	}

	playlist, err := s.load(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(playlist, p); err != nil {
		return nil, err
	}
	if playlist.ContainsTrack(trackID) {
		return nil, domainerrors.DuplicateTrackf("track %d already in playlist %d", trackID, playlistID)
	}

	if _, err := s.tracks.Get(ctx, trackID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("track %d", trackID)
		}
		return nil, fmt.Errorf("get track: %w", err)
	}

	updated, err := s.mutate(ctx, p, playlistID, "track added", func(playlist *domain.Playlist) error {
		if !playlist.AddTrack(trackID) {
			return domainerrors.DuplicateTrackf("track %d already in playlist %d", trackID, playlistID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.relations.Schedule(RelationJob{Kind: JobLinkTrack, PlaylistID: playlistID, TrackID: trackID})
	return updated, nil
}

// RemoveTrack removes trackID from the playlist. The track side is updated
// in the background.
func (s *PlaylistService) RemoveTrack(ctx context.Context, p domain.Principal, playlistID, trackID int64) error {
	_, err := s.mutate(ctx, p, playlistID, "track removed", func(playlist *domain.Playlist) error {
		if !playlist.RemoveTrack(trackID) {
			return domainerrors.NotFoundf("track %d not in playlist %d", trackID, playlistID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.relations.Schedule(RelationJob{Kind: JobUnlinkTrack, PlaylistID: playlistID, TrackID: trackID})
	return nil
}

// DeletePlaylist deletes a playlist the principal owns and schedules
// removal of its id from the tracks it referenced.
func (s *PlaylistService) DeletePlaylist(ctx context.Context, p domain.Principal, playlistID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.IsAuthenticated() {
		return domainerrors.ErrUnauthorized
	}

	current, err := s.load(ctx, playlistID)
	if err != nil {
		return err
	}
	if err := checkOwner(current, p); err != nil {
		return err
	}

	// The owner never changes, but the track list may have moved since the
	// read above; cascade from the record as it was removed.
	playlist, err := s.playlists.Delete(ctx, playlistID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFoundf("playlist %d", playlistID)
	}
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}

	s.logger.Info("playlist deleted",
		"playlist_id", playlistID,
		"owner_id", p.Subject,
		"track_count", len(playlist.Tracks),
	)

	if len(playlist.Tracks) > 0 {
		s.relations.Schedule(RelationJob{
			Kind:       JobDetachPlaylist,
			PlaylistID: playlistID,
			TrackIDs:   slices.Clone(playlist.Tracks),
		})
	}
	return nil
}

// mutate runs fn on an owned playlist inside one store update.
func (s *PlaylistService) mutate(ctx context.Context, p domain.Principal, playlistID int64, action string, fn func(*domain.Playlist) error) (*domain.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.IsAuthenticated() {
		return nil, domainerrors.ErrUnauthorized
	}

	playlist, err := s.playlists.Mutate(ctx, playlistID, func(playlist *domain.Playlist) error {
		if err := checkOwner(playlist, p); err != nil {
			return err
		}
		return fn(playlist)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("playlist %d", playlistID)
		}
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, fmt.Errorf("update playlist: %w", err)
	}

	s.logger.Info("playlist "+action,
		"playlist_id", playlistID,
		"owner_id", p.Subject,
	)
	return playlist, nil
}

func (s *PlaylistService) load(ctx context.Context, playlistID int64) (*domain.Playlist, error) {
	playlist, err := s.playlists.Get(ctx, playlistID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("playlist %d", playlistID)
		}
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	return playlist, nil
}

func checkOwner(playlist *domain.Playlist, p domain.Principal) error {
	if !playlist.OwnedBy(p.Subject) {
		return domainerrors.Forbiddenf("playlist %d owned by another subject", playlist.ID)
	}
	return nil
}

func applyFields(playlist *domain.Playlist, fields PlaylistFields, p domain.Principal) {
	if fields.Name != nil {
		playlist.Name = *fields.Name
	}
	if fields.Public != nil {
		playlist.Public = *fields.Public
	}
	playlist.OwnerID = p.Subject
}
