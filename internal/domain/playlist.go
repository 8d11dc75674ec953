package domain

import "slices"

// Playlist is an ordered list of track ids owned by a single identity.
// OwnerID is the subject of the principal that created (or last rewrote)
// the playlist and is the sole access boundary: only that subject may read,
// modify or delete it.
type Playlist struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Public  bool    `json:"public"`
	OwnerID string  `json:"owner_id"`
	Tracks  []int64 `json:"tracks"`
}

// NewPlaylist returns an empty playlist owned by ownerID.
func NewPlaylist(name string, public bool, ownerID string) *Playlist {
	return &Playlist{
		Name:    name,
		Public:  public,
		OwnerID: ownerID,
		Tracks:  []int64{},
	}
}

// OwnedBy reports whether subject owns the playlist. The empty subject owns nothing.
func (p *Playlist) OwnedBy(subject string) bool {
	return subject != "" && p.OwnerID == subject
}

// ContainsTrack checks if a track ID is in this playlist.
func (p *Playlist) ContainsTrack(trackID int64) bool {
	return slices.Contains(p.Tracks, trackID)
}

// AddTrack appends a track ID unless it is already present.
func (p *Playlist) AddTrack(trackID int64) bool {
	if p.ContainsTrack(trackID) {
		return false
	}
	p.Tracks = append(p.Tracks, trackID)
	return true
}

// RemoveTrack removes a track ID, preserving the order of the rest.
func (p *Playlist) RemoveTrack(trackID int64) bool {
	i := slices.Index(p.Tracks, trackID)
	if i < 0 {
		return false
	}
	p.Tracks = slices.Delete(p.Tracks, i, i+1)
	return true
}

// Normalize replaces a nil track list with an empty one so the playlist
// always serializes with "tracks": [].
func (p *Playlist) Normalize() {
	if p.Tracks == nil {
		p.Tracks = []int64{}
	}
}
