package domain

import (
	"encoding/json"
	"slices"
)

// Artist is one artist descriptor, kept exactly as the client sent it.
// Descriptors are usually objects such as {"name": "..."}, but any JSON
// value is accepted.
type Artist json.RawMessage

// NewArtist builds a descriptor that carries only a name.
func NewArtist(name string) Artist {
	data, _ := json.Marshal(map[string]string{"name": name})
	return Artist(data)
}

// MarshalJSON writes the descriptor unchanged.
func (a Artist) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return []byte("null"), nil
	}
	return a, nil
}

// UnmarshalJSON keeps a copy of data.
func (a *Artist) UnmarshalJSON(data []byte) error {
	*a = append((*a)[:0], data...)
	return nil
}

// Track is a catalog entry. Tracks have no owner; Playlists is maintained
// only as a side effect of playlist operations.
type Track struct {
	ID        int64    `json:"id"`
	Album     string   `json:"album"`
	Artists   []Artist `json:"artists"`
	DurationS int      `json:"duration_s"`
	Name      string   `json:"name"`
	Playlists []int64  `json:"playlists"`
}

// InPlaylist checks if the track lists the playlist.
func (t *Track) InPlaylist(playlistID int64) bool {
	return slices.Contains(t.Playlists, playlistID)
}

// LinkPlaylist records that the track belongs to a playlist.
func (t *Track) LinkPlaylist(playlistID int64) bool {
	if t.InPlaylist(playlistID) {
		return false
	}
	t.Playlists = append(t.Playlists, playlistID)
	return true
}

// UnlinkPlaylist drops a playlist reference.
func (t *Track) UnlinkPlaylist(playlistID int64) bool {
	i := slices.Index(t.Playlists, playlistID)
	if i < 0 {
		return false
	}
	t.Playlists = slices.Delete(t.Playlists, i, i+1)
	return true
}

// Normalize replaces nil slices with empty ones.
func (t *Track) Normalize() {
	if t.Artists == nil {
		t.Artists = []Artist{}
	}
	if t.Playlists == nil {
		t.Playlists = []int64{}
	}
}
