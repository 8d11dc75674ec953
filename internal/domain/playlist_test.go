package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlaylist_StartsEmpty(t *testing.T) {
	p := NewPlaylist("Road Trip", true, "sub-1")

	assert.Equal(t, "Road Trip", p.Name)
	assert.True(t, p.Public)
	assert.Equal(t, "sub-1", p.OwnerID)
	assert.NotNil(t, p.Tracks)
	assert.Empty(t, p.Tracks)
}

func TestPlaylist_OwnedBy(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		subject string
		want    bool
	}{
		{"owner", "sub-1", "sub-1", true},
		{"other subject", "sub-1", "sub-2", false},
		{"empty subject", "sub-1", "", false},
		{"empty owner and subject", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{OwnerID: tt.owner}
			assert.Equal(t, tt.want, p.OwnedBy(tt.subject))
		})
	}
}

func TestPlaylist_AddTrack_RejectsDuplicates(t *testing.T) {
	p := NewPlaylist("p", false, "sub-1")

	assert.True(t, p.AddTrack(7))
	assert.True(t, p.AddTrack(3))
	assert.False(t, p.AddTrack(7))
	assert.Equal(t, []int64{7, 3}, p.Tracks)
}

func TestPlaylist_RemoveTrack_PreservesOrder(t *testing.T) {
	p := &Playlist{Tracks: []int64{1, 2, 3, 4}}

	assert.True(t, p.RemoveTrack(2))
	assert.False(t, p.RemoveTrack(2))
	assert.Equal(t, []int64{1, 3, 4}, p.Tracks)
	assert.False(t, p.ContainsTrack(2))
}

func TestPlaylist_Normalize_SerializesEmptyTracks(t *testing.T) {
	p := &Playlist{ID: 1, Name: "p"}
	p.Normalize()

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tracks":[]`)
}
