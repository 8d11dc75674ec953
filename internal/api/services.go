package api

import (
	"github.com/playlistapp/playlist-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Playlist  *service.PlaylistService
	Track     *service.TrackService
	User      *service.UserService
	Relations *service.RelationService // optional; reported on /health
}
