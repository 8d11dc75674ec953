package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlistapp/playlist-server/internal/api/dto"
)

func TestEndToEnd_TrackAndPlaylist(t *testing.T) {
	ts := setupTestServer(t)

	track := ts.createTrack(t, "Song")
	assert.Equal(t, []int64{}, track.Playlists)
	assert.Equal(t, fmt.Sprintf("%s/tracks/%d", testBaseURL, track.ID), track.SelfURL)

	w := ts.do(t, request{method: http.MethodPost, path: "/playlists", token: "alice-token",
		body: map[string]any{"name": "Mix", "public": true}})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	playlist := decode[dto.PlaylistResponse](t, w)
	assert.Equal(t, "Mix", playlist.Name)
	assert.True(t, playlist.Public)
	assert.Equal(t, alice.Subject, playlist.OwnerID)
	assert.Equal(t, []int64{}, playlist.Tracks)
	assert.Equal(t, fmt.Sprintf("%s/playlists/%d", testBaseURL, playlist.ID), playlist.SelfURL)

	addPath := fmt.Sprintf("/playlists/%d/tracks/%d", playlist.ID, track.ID)

	w = ts.do(t, request{method: http.MethodPut, path: addPath, token: "alice-token"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []int64{track.ID}, decode[dto.PlaylistResponse](t, w).Tracks)

	w = ts.do(t, request{method: http.MethodPut, path: addPath, token: "alice-token"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Duplicate tracks are not allowed.", errorMessage(t, w))

	ts.flush(t)
	w = ts.do(t, request{method: http.MethodGet, path: fmt.Sprintf("/tracks/%d", track.ID)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{playlist.ID}, decode[dto.TrackResponse](t, w).Playlists)

	w = ts.do(t, request{method: http.MethodDelete, path: fmt.Sprintf("/playlists/%d", playlist.ID), token: "alice-token", accept: "-"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	ts.flush(t)
	w = ts.do(t, request{method: http.MethodGet, path: fmt.Sprintf("/tracks/%d", track.ID)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[dto.TrackResponse](t, w).Playlists)
}

func TestCreatePlaylist_CheckOrder(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name   string
		req    request
		status int
		msg    string
	}{
		{
			name:   "no token",
			req:    request{method: http.MethodPost, path: "/playlists", accept: "text/html", body: "{"},
			status: http.StatusUnauthorized,
			msg:    "The request is missing a valid auth token.",
		},
		{
			name:   "invalid token is anonymous",
			req:    request{method: http.MethodPost, path: "/playlists", token: "forged", body: map[string]any{"name": "x", "public": true}},
			status: http.StatusUnauthorized,
			msg:    "The request is missing a valid auth token.",
		},
		{
			name:   "wrong accept before body",
			req:    request{method: http.MethodPost, path: "/playlists", token: "alice-token", accept: "text/html", body: "{"},
			status: http.StatusNotAcceptable,
			msg:    "The server only produces responses that conform to an 'application/json' value provided in the request 'Accept' header.",
		},
		{
			name:   "missing public",
			req:    request{method: http.MethodPost, path: "/playlists", token: "alice-token", body: map[string]any{"name": "x"}},
			status: http.StatusBadRequest,
			msg:    "The request object is missing one or more of the required attributes.",
		},
		{
			name:   "malformed body",
			req:    request{method: http.MethodPost, path: "/playlists", token: "alice-token", body: "{not json"},
			status: http.StatusBadRequest,
			msg:    "The request object is missing one or more of the required attributes.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, tt.req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, errorMessage(t, w))
		})
	}
}

func TestCreatePlaylist_PublicFalseIsPresent(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, request{method: http.MethodPost, path: "/playlists", token: "alice-token",
		body: map[string]any{"name": "", "public": false}})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, decode[dto.PlaylistResponse](t, w).Public)
}

func TestGetPlaylist_Ownership(t *testing.T) {
	ts := setupTestServer(t)
	playlist := ts.createPlaylist(t, "alice-token", "Mine")
	path := fmt.Sprintf("/playlists/%d", playlist.ID)

	w := ts.do(t, request{method: http.MethodGet, path: path, token: "alice-token"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, playlist, decode[dto.PlaylistResponse](t, w))

	w = ts.do(t, request{method: http.MethodGet, path: path, token: "bob-token"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: path})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: path, token: "alice-token", accept: "*/*"})
	assert.Equal(t, http.StatusNotAcceptable, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: path, token: "alice-token", accept: "text/html, application/json;q=0.9"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: "/playlists/999", token: "alice-token"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: "/playlists/abc", token: "alice-token"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "A resource with the requested id could not be found.", errorMessage(t, w))
}

func TestListPlaylists(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, request{method: http.MethodGet, path: "/playlists", token: "alice-token"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	for i := range 3 {
		ts.createPlaylist(t, "alice-token", fmt.Sprintf("a%d", i))
	}
	ts.createPlaylist(t, "bob-token", "b")

	w = ts.do(t, request{method: http.MethodGet, path: "/playlists?limit=2", token: "alice-token"})
	require.Equal(t, http.StatusOK, w.Code)
	first := decode[[]dto.PlaylistResponse](t, w)
	require.Len(t, first, 2)

	link := w.Header().Get("Link")
	require.Contains(t, link, `rel="next"`)
	assert.Contains(t, link, "<"+testBaseURL+"/playlists?")

	cursor := ts.nextCursor(t, link)
	w = ts.do(t, request{method: http.MethodGet, path: "/playlists?limit=2&cursor=" + cursor, token: "alice-token"})
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[[]dto.PlaylistResponse](t, w)
	require.Len(t, second, 1)
	assert.Equal(t, "a2", second[0].Name)
	assert.Empty(t, w.Header().Get("Link"))

	w = ts.do(t, request{method: http.MethodGet, path: "/playlists?limit=zero", token: "alice-token"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: "/playlists?cursor=!!!", token: "alice-token"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: "/playlists"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdatePlaylist(t *testing.T) {
	ts := setupTestServer(t)
	playlist := ts.createPlaylist(t, "alice-token", "Before")
	path := fmt.Sprintf("/playlists/%d", playlist.ID)

	w := ts.do(t, request{method: http.MethodPatch, path: path, token: "alice-token",
		body: map[string]any{"public": false, "tracks": []int{99}, "owner_id": "someone"}})
	require.Equal(t, http.StatusOK, w.Code)

	updated := decode[dto.PlaylistResponse](t, w)
	assert.Equal(t, "Before", updated.Name)
	assert.False(t, updated.Public)
	assert.Equal(t, []int64{}, updated.Tracks, "tracks are not caller-settable")
	assert.Equal(t, alice.Subject, updated.OwnerID)

	w = ts.do(t, request{method: http.MethodPatch, path: path, token: "bob-token", body: map[string]any{"name": "x"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, request{method: http.MethodPatch, path: "/playlists/404", token: "alice-token", body: "{bad"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdatePlaylist_EmptyBody(t *testing.T) {
	ts := setupTestServer(t)
	playlist := ts.createPlaylist(t, "alice-token", "Kept")
	path := fmt.Sprintf("/playlists/%d", playlist.ID)

	w := ts.do(t, request{method: http.MethodPatch, path: path, token: "alice-token"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, playlist, decode[dto.PlaylistResponse](t, w))

	w = ts.do(t, request{method: http.MethodPatch, path: path, token: "bob-token"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, request{method: http.MethodPut, path: path, token: "alice-token"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "replace still needs a body")
}

func TestReplacePlaylist_CheckOrder(t *testing.T) {
	ts := setupTestServer(t)
	playlist := ts.createPlaylist(t, "alice-token", "Before")
	path := fmt.Sprintf("/playlists/%d", playlist.ID)

	w := ts.do(t, request{method: http.MethodPut, path: "/playlists/999", token: "alice-token", body: map[string]any{}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, request{method: http.MethodPut, path: path, token: "bob-token", body: map[string]any{}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, request{method: http.MethodPut, path: path, token: "alice-token", body: map[string]any{"name": "only"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, request{method: http.MethodPut, path: path, token: "alice-token", body: map[string]any{"name": "After", "public": false}})
	require.Equal(t, http.StatusOK, w.Code)
	replaced := decode[dto.PlaylistResponse](t, w)
	assert.Equal(t, "After", replaced.Name)
	assert.False(t, replaced.Public)
}

func TestAddTrack_CheckOrder(t *testing.T) {
	ts := setupTestServer(t)
	playlist := ts.createPlaylist(t, "alice-token", "p")

	w := ts.do(t, request{method: http.MethodPut, path: "/playlists/999/tracks/1", token: "alice-token"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, request{method: http.MethodPut, path: fmt.Sprintf("/playlists/%d/tracks/1", playlist.ID), token: "bob-token"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, request{method: http.MethodPut, path: fmt.Sprintf("/playlists/%d/tracks/1", playlist.ID), token: "alice-token"})
	assert.Equal(t, http.StatusNotFound, w.Code, "track does not exist")

	w = ts.do(t, request{method: http.MethodPut, path: fmt.Sprintf("/playlists/%d/tracks/x", playlist.ID), token: "bob-token"})
	assert.Equal(t, http.StatusForbidden, w.Code, "ownership before malformed track id")

	w = ts.do(t, request{method: http.MethodPut, path: fmt.Sprintf("/playlists/%d/tracks/1", playlist.ID), token: "alice-token", accept: "-"})
	assert.Equal(t, http.StatusNotAcceptable, w.Code)
}

func TestRemoveTrack(t *testing.T) {
	ts := setupTestServer(t)
	playlist := ts.createPlaylist(t, "alice-token", "p")
	track := ts.createTrack(t, "t")
	path := fmt.Sprintf("/playlists/%d/tracks/%d", playlist.ID, track.ID)

	w := ts.do(t, request{method: http.MethodDelete, path: path, token: "alice-token"})
	assert.Equal(t, http.StatusNotFound, w.Code, "track not in playlist")

	w = ts.do(t, request{method: http.MethodPut, path: path, token: "alice-token"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, request{method: http.MethodDelete, path: path, token: "bob-token"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, request{method: http.MethodDelete, path: path, token: "alice-token", accept: "-"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	ts.flush(t)

	w = ts.do(t, request{method: http.MethodGet, path: fmt.Sprintf("/playlists/%d", playlist.ID), token: "alice-token"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[dto.PlaylistResponse](t, w).Tracks)

	w = ts.do(t, request{method: http.MethodGet, path: fmt.Sprintf("/tracks/%d", track.ID)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[dto.TrackResponse](t, w).Playlists)
}

func TestDeletePlaylist(t *testing.T) {
	ts := setupTestServer(t)
	playlist := ts.createPlaylist(t, "alice-token", "p")
	path := fmt.Sprintf("/playlists/%d", playlist.ID)

	w := ts.do(t, request{method: http.MethodDelete, path: path})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, request{method: http.MethodDelete, path: path, token: "bob-token"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, request{method: http.MethodDelete, path: path, token: "alice-token", accept: "text/plain"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, request{method: http.MethodDelete, path: path, token: "alice-token"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlaylistCollection_MethodNotAllowed(t *testing.T) {
	ts := setupTestServer(t)

	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			w := ts.do(t, request{method: method, path: "/playlists", token: "alice-token"})
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, "GET, POST", w.Header().Get("Allow"))
			assert.Equal(t, "The request method is not allowed for the endpoint.", errorMessage(t, w))
		})
	}
}

func TestAuthGate_CreatesUserLazily(t *testing.T) {
	ts := setupTestServer(t)

	ts.do(t, request{method: http.MethodGet, path: "/playlists", token: "bob-token"})

	user, err := ts.users.GetBySub(context.Background(), bob.Subject)
	require.NoError(t, err)
	assert.Equal(t, bob.Email, user.Email)
}
