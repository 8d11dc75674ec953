package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/playlistapp/playlist-server/internal/auth"
	"github.com/playlistapp/playlist-server/internal/domain"
)

// principalHandler receives the verified identity of the caller, or the
// empty principal.
type principalHandler func(w http.ResponseWriter, r *http.Request, p domain.Principal)

// withPrincipal resolves the caller and makes sure a user record exists for
// them. It never rejects a request; handlers decide what an empty principal
// means.
func (s *Server) withPrincipal(h principalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := s.identify(r)
		if p.IsAuthenticated() && s.services.User != nil {
			if _, _, err := s.services.User.EnsureUser(r.Context(), p); err != nil {
				s.logger.Warn("Failed to ensure user", "sub", p.Subject, "error", err)
			}
		}
		h(w, r, p)
	}
}

// withVerifiedPrincipal resolves the caller without touching user records.
func (s *Server) withVerifiedPrincipal(h principalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r, s.identify(r))
	}
}

// identify verifies the bearer token, if any.
func (s *Server) identify(r *http.Request) domain.Principal {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		s.logger.Debug("No bearer token", "path", r.URL.Path)
		return domain.Principal{}
	}
	if s.verifier == nil {
		return domain.Principal{}
	}

	p, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		s.logger.Debug("Token verification failed", "path", r.URL.Path, "error", err)
		return domain.Principal{}
	}
	return p
}

// RequestLogger logs one line per request with the chi request id.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
