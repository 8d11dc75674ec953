package dto

import (
	"github.com/playlistapp/playlist-server/internal/domain"
	"github.com/playlistapp/playlist-server/internal/service"
)

// CreateTrackRequest is the body of POST /tracks and PUT /tracks/{id}.
// Playlists is never read from a request.
type CreateTrackRequest struct {
	Album     *string         `json:"album" validate:"required"`
	Artists   []domain.Artist `json:"artists" validate:"required"`
	DurationS *int            `json:"duration_s" validate:"required,gte=0"`
	Name      *string         `json:"name" validate:"required"`
}

// Fields converts the request to service fields.
func (r CreateTrackRequest) Fields() service.TrackFields {
	return service.TrackFields{
		Album:     r.Album,
		Artists:   r.Artists,
		DurationS: r.DurationS,
		Name:      r.Name,
	}
}

// UpdateTrackRequest is the body of PATCH /tracks/{id}.
type UpdateTrackRequest struct {
	Album     *string         `json:"album"`
	Artists   []domain.Artist `json:"artists"`
	DurationS *int            `json:"duration_s" validate:"omitempty,gte=0"`
	Name      *string         `json:"name"`
}

// Fields converts the request to service fields.
func (r UpdateTrackRequest) Fields() service.TrackFields {
	return service.TrackFields{
		Album:     r.Album,
		Artists:   r.Artists,
		DurationS: r.DurationS,
		Name:      r.Name,
	}
}

// TrackResponse is a track as returned to clients.
type TrackResponse struct {
	ID        int64           `json:"id"`
	Album     string          `json:"album"`
	Artists   []domain.Artist `json:"artists"`
	DurationS int             `json:"duration_s"`
	Name      string          `json:"name"`
	Playlists []int64         `json:"playlists"`
	SelfURL   string          `json:"self_url"`
}

// NewTrackResponse builds the response for t.
func NewTrackResponse(t *domain.Track, baseURL string) TrackResponse {
	t.Normalize()
	return TrackResponse{
		ID:        t.ID,
		Album:     t.Album,
		Artists:   t.Artists,
		DurationS: t.DurationS,
		Name:      t.Name,
		Playlists: t.Playlists,
		SelfURL:   SelfURL(baseURL, TracksPath, t.ID),
	}
}

// NewTrackList builds a response array; never nil.
func NewTrackList(items []*domain.Track, baseURL string) []TrackResponse {
	out := make([]TrackResponse, 0, len(items))
	for _, t := range items {
		out = append(out, NewTrackResponse(t, baseURL))
	}
	return out
}
