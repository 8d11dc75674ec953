// Package dto provides request and response types for the playlist API.
// Request fields are pointers so an absent attribute differs from its zero value.
package dto

import "strconv"

// Resource path segments used to build self links.
const (
	PlaylistsPath = "/playlists"
	TracksPath    = "/tracks"
	UsersPath     = "/users"
)

// SelfURL joins base, the collection path and id into a resource link.
func SelfURL(base, collection string, id int64) string {
	return base + collection + "/" + strconv.FormatInt(id, 10)
}
