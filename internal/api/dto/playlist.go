package dto

import (
	"github.com/playlistapp/playlist-server/internal/domain"
	"github.com/playlistapp/playlist-server/internal/service"
)

// CreatePlaylistRequest is the body of POST /playlists and PUT /playlists/{id}.
type CreatePlaylistRequest struct {
	Name   *string `json:"name" validate:"required"`
	Public *bool   `json:"public" validate:"required"`
}

// Fields converts the request to service fields.
func (r CreatePlaylistRequest) Fields() service.PlaylistFields {
	return service.PlaylistFields{Name: r.Name, Public: r.Public}
}

// UpdatePlaylistRequest is the body of PATCH /playlists/{id}. Tracks and
// owner are not caller-settable and are ignored if sent.
type UpdatePlaylistRequest struct {
	Name   *string `json:"name"`
	Public *bool   `json:"public"`
}

// Fields converts the request to service fields.
func (r UpdatePlaylistRequest) Fields() service.PlaylistFields {
	return service.PlaylistFields{Name: r.Name, Public: r.Public}
}

// PlaylistResponse is a playlist as returned to clients.
type PlaylistResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Public  bool    `json:"public"`
	OwnerID string  `json:"owner_id"`
	Tracks  []int64 `json:"tracks"`
	SelfURL string  `json:"self_url"`
}

// NewPlaylistResponse builds the response for p.
func NewPlaylistResponse(p *domain.Playlist, baseURL string) PlaylistResponse {
	tracks := p.Tracks
	if tracks == nil {
		tracks = []int64{}
	}
	return PlaylistResponse{
		ID:      p.ID,
		Name:    p.Name,
		Public:  p.Public,
		OwnerID: p.OwnerID,
		Tracks:  tracks,
		SelfURL: SelfURL(baseURL, PlaylistsPath, p.ID),
	}
}

// NewPlaylistList builds a response array; never nil.
func NewPlaylistList(items []*domain.Playlist, baseURL string) []PlaylistResponse {
	out := make([]PlaylistResponse, 0, len(items))
	for _, p := range items {
		out = append(out, NewPlaylistResponse(p, baseURL))
	}
	return out
}
