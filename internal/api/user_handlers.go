package api

import (
	"net/http"

	"github.com/playlistapp/playlist-server/internal/api/dto"
	"github.com/playlistapp/playlist-server/internal/domain"
	"github.com/playlistapp/playlist-server/internal/http/response"
)

// handleCreateUser registers the caller. 201 when the user is new, 200 when
// it already existed.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	if !p.IsAuthenticated() {
		response.Unauthorized(w, s.logger)
		return
	}

	user, created, err := s.services.User.EnsureUser(r.Context(), p)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	body := dto.NewUserResponse(user, s.baseURL)
	if created {
		response.Created(w, body, s.logger)
		return
	}
	response.Success(w, body, s.logger)
}

// handleListUsers pages through every user.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}

	page, err := parsePageRequest(r)
	if err != nil {
		response.BadRequest(w, s.logger)
		return
	}

	res, err := s.services.User.ListUsers(r.Context(), page)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.setNextLink(w, r, page, res.NextCursor)
	response.Success(w, dto.NewUserList(res.Items, s.baseURL), s.logger)
}

// handleGetUser returns one user.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		response.NotAcceptable(w, s.logger)
		return
	}
	userID, ok := pathID(r, "id")
	if !ok {
		response.NotFound(w, s.logger)
		return
	}

	user, err := s.services.User.GetUser(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, dto.NewUserResponse(user, s.baseURL), s.logger)
}
