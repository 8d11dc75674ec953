package dto

import "github.com/playlistapp/playlist-server/internal/domain"

// UserResponse is a user as returned to clients.
type UserResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Sub     string `json:"sub"`
	SelfURL string `json:"self_url"`
}

// NewUserResponse builds the response for u.
func NewUserResponse(u *domain.User, baseURL string) UserResponse {
	return UserResponse{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Sub:     u.Sub,
		SelfURL: SelfURL(baseURL, UsersPath, u.ID),
	}
}

// NewUserList builds a response array; never nil.
func NewUserList(items []*domain.User, baseURL string) []UserResponse {
	out := make([]UserResponse, 0, len(items))
	for _, u := range items {
		out = append(out, NewUserResponse(u, baseURL))
	}
	return out
}
