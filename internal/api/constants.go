package api

import (
	"net/http"

	"github.com/playlistapp/playlist-server/internal/api/dto"
)

// API limits and constants.
const (
	// MaxBodySize caps JSON request bodies (1 MB).
	MaxBodySize = 1 << 20
)

// collectionMethods are the verbs a collection endpoint supports.
var collectionMethods = []string{http.MethodGet, http.MethodPost}

// Route prefixes.
const (
	routePlaylists = dto.PlaylistsPath
	routeTracks    = dto.TracksPath
	routeUsers     = dto.UsersPath
)
