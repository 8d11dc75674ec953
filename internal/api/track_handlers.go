package api

import (
	"net/http"

	"github.com/playlistapp/playlist-server/internal/api/dto"
	"github.com/playlistapp/playlist-server/internal/http/response"
)

// handleCreateTrack adds a track to the catalog. No token is needed.
func (s *Server) handleCreateTrack(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}

	var req dto.CreateTrackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, s.logger)
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	track, err := s.services.Track.CreateTrack(r.Context(), req.Fields())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, dto.NewTrackResponse(track, s.baseURL), s.logger)
}

// handleListTracks pages through every track.
func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}

	page, err := parsePageRequest(r)
	if err != nil {
		response.BadRequest(w, s.logger)
		return
	}

	res, err := s.services.Track.ListTracks(r.Context(), page)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.setNextLink(w, r, page, res.NextCursor)
	response.Success(w, dto.NewTrackList(res.Items, s.baseURL), s.logger)
}

// handleGetTrack returns one track.
func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}
	trackID, ok := pathID(r, "id")
	if !ok {
		response.NotFound(w, s.logger)
		return
	}

	track, err := s.services.Track.GetTrack(r.Context(), trackID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, dto.NewTrackResponse(track, s.baseURL), s.logger)
}

// handleUpdateTrack fills omitted fields from the stored track.
func (s *Server) handleUpdateTrack(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}
	trackID, ok := pathID(r, "id")
	if !ok {
		response.NotFound(w, s.logger)
		return
	}

	var req dto.UpdateTrackRequest
	decodeErr := decodeOptionalJSON(w, r, &req)

	if _, err := s.services.Track.GetTrack(r.Context(), trackID); err != nil {
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

	track, err := s.services.Track.UpdateTrack(r.Context(), trackID, req.Fields())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, dto.NewTrackResponse(track, s.baseURL), s.logger)
}

// handleReplaceTrack requires every content field. A missing track is
// reported before body problems.
func (s *Server) handleReplaceTrack(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}
	trackID, ok := pathID(r, "id")
	if !ok {
		response.NotFound(w, s.logger)
		return
	}

	var req dto.CreateTrackRequest
	decodeErr := decodeJSON(w, r, &req)

	if _, err := s.services.Track.GetTrack(r.Context(), trackID); err != nil {
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

	track, err := s.services.Track.ReplaceTrack(r.Context(), trackID, req.Fields())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, dto.NewTrackResponse(track, s.baseURL), s.logger)
}

// handleDeleteTrack deletes a track and detaches it from its playlists.
func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	trackID, ok := pathID(r, "id")
	if !ok {
		response.NotFound(w, s.logger)
		return
	}

	if err := s.services.Track.DeleteTrack(r.Context(), trackID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
