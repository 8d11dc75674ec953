package api

import (
	"net/http"

	"github.com/playlistapp/playlist-server/internal/api/dto"
	"github.com/playlistapp/playlist-server/internal/domain"
	"github.com/playlistapp/playlist-server/internal/http/response"
)

// handleCreatePlaylist creates an empty playlist owned by the caller.
func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	if !p.IsAuthenticated() {
		response.Unauthorized(w, s.logger)
		return
	}
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}

	var req dto.CreatePlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, s.logger)
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	playlist, err := s.services.Playlist.CreatePlaylist(r.Context(), p, req.Fields())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, dto.NewPlaylistResponse(playlist, s.baseURL), s.logger)
}

// handleListPlaylists returns the caller's playlists.
func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	if !p.IsAuthenticated() {
		response.Unauthorized(w, s.logger)
		return
	}
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}

	page, err := parsePageRequest(r)
	if err != nil {
		response.BadRequest(w, s.logger)
		return
	}

	res, err := s.services.Playlist.ListPlaylists(r.Context(), p, page)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.setNextLink(w, r, page, res.NextCursor)
	response.Success(w, dto.NewPlaylistList(res.Items, s.baseURL), s.logger)
}

// handleGetPlaylist returns one playlist the caller owns.
func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	if !p.IsAuthenticated() {
		response.Unauthorized(w, s.logger)
		return
	}
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}
	playlistID, ok := pathID(r, "id")
	if !ok {
		response.NotFound(w, s.logger)
		return
	}

	playlist, err := s.services.Playlist.GetPlaylist(r.Context(), p, playlistID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, dto.NewPlaylistResponse(playlist, s.baseURL), s.logger)
}

// handleUpdatePlaylist applies a partial update of name and public.
func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	if !p.IsAuthenticated() {
		response.Unauthorized(w, s.logger)
		return
	}
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}
	playlistID, ok := pathID(r, "id")
	if !ok {
		response.NotFound(w, s.logger)
		return
	}

	var req dto.UpdatePlaylistRequest
	decodeErr := decodeOptionalJSON(w, r, &req)

	if _, err := s.services.Playlist.GetPlaylist(r.Context(), p, playlistID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if decodeErr != nil {
		response.BadRequest(w, s.logger)
		return
	}

	playlist, err := s.services.Playlist.UpdatePlaylist(r.Context(), p, playlistID, req.Fields())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, dto.NewPlaylistResponse(playlist, s.baseURL), s.logger)
}

// handleReplacePlaylist overwrites name and public. Existence and ownership
// are reported before body problems.
func (s *Server) handleReplacePlaylist(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	if !p.IsAuthenticated() {
		response.Unauthorized(w, s.logger)
		return
	}
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}
	playlistID, ok := pathID(r, "id")
	if !ok {
		response.NotFound(w, s.logger)
		return
	}

	var req dto.CreatePlaylistRequest
	decodeErr := decodeJSON(w, r, &req)

	if _, err := s.services.Playlist.GetPlaylist(r.Context(), p, playlistID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if decodeErr != nil {
		response.BadRequest(w, s.logger)
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	playlist, err := s.services.Playlist.ReplacePlaylist(r.Context(), p, playlistID, req.Fields())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, dto.NewPlaylistResponse(playlist, s.baseURL), s.logger)
}

// handleAddTrack appends a track to the playlist.
func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	if !p.IsAuthenticated() {
		response.Unauthorized(w, s.logger)
		return
	}
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}
	playlistID, ok := pathID(r, "id")
	if !ok {
		response.NotFound(w, s.logger)
		return
	}
	trackID, ok := pathID(r, "track_id")
	if !ok {
		s.rejectUnknownTrack(w, r, p, playlistID)
		return
	}

	playlist, err := s.services.Playlist.AddTrack(r.Context(), p, playlistID, trackID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, dto.NewPlaylistResponse(playlist, s.baseURL), s.logger)
}

// handleRemoveTrack removes a track from the playlist.
func (s *Server) handleRemoveTrack(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	if !p.IsAuthenticated() {
		response.Unauthorized(w, s.logger)
		return
	}
	playlistID, ok := pathID(r, "id")
	if !ok {
		response.NotFound(w, s.logger)
		return
	}
	trackID, ok := pathID(r, "track_id")
	if !ok {
		s.rejectUnknownTrack(w, r, p, playlistID)
		return
	}

	if err := s.services.Playlist.RemoveTrack(r.Context(), p, playlistID, trackID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// rejectUnknownTrack answers a malformed track id with the playlist checks
// first, then 404.
func (s *Server) rejectUnknownTrack(w http.ResponseWriter, r *http.Request, p domain.Principal, playlistID int64) {
	if _, err := s.services.Playlist.GetPlaylist(r.Context(), p, playlistID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NotFound(w, s.logger)
}

// handleDeletePlaylist deletes an owned playlist. Its tracks forget it in
// the background.
func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	if !p.IsAuthenticated() {
		response.Unauthorized(w, s.logger)
		return
	}
	playlistID, ok := pathID(r, "id")
	if !ok {
		response.NotFound(w, s.logger)
		return
	}

	if err := s.services.Playlist.DeletePlaylist(r.Context(), p, playlistID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
