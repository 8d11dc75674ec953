package providers

import (
	"github.com/samber/do/v2"

	"github.com/playlistapp/playlist-server/internal/logger"
	"github.com/playlistapp/playlist-server/internal/service"
)

// ProvidePlaylistService provides the playlist service.
func ProvidePlaylistService(i do.Injector) (*service.PlaylistService, error) {
	repos := do.MustInvoke[*Repositories](i)
	relations := do.MustInvoke[*RelationServiceHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPlaylistService(repos.Playlists, repos.Tracks, relations.RelationService, log.Logger), nil
}

// ProvideTrackService provides the track service.
func ProvideTrackService(i do.Injector) (*service.TrackService, error) {
	repos := do.MustInvoke[*Repositories](i)
	relations := do.MustInvoke[*RelationServiceHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTrackService(repos.Tracks, relations.RelationService, log.Logger), nil
}

// ProvideUserService provides the user service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	repos := do.MustInvoke[*Repositories](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(repos.Users, log.Logger), nil
}
