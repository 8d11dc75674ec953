// Package api provides the HTTP API server and handlers for the playlist service.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/playlistapp/playlist-server/internal/auth"
	"github.com/playlistapp/playlist-server/internal/http/response"
	"github.com/playlistapp/playlist-server/internal/ratelimit"
	"github.com/playlistapp/playlist-server/internal/store"
	"github.com/playlistapp/playlist-server/internal/validation"
)

// Config holds the HTTP-facing settings of the server.
type Config struct {
	BaseURL            string   // prefix of every self_url, without trailing slash
	CORSAllowedOrigins []string // defaults to "*"
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	datastore store.Datastore
	services  *Services
	verifier  auth.TokenVerifier
	validator *validation.Validator
	limiter   *ratelimit.KeyedRateLimiter
	baseURL   string
	origins   []string
	router    *chi.Mux
	api       huma.API
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// limiter may be nil to disable rate limiting.
func NewServer(datastore store.Datastore, services *Services, verifier auth.TokenVerifier, limiter *ratelimit.KeyedRateLimiter, cfg Config, logger *slog.Logger) *Server {
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		datastore: datastore,
		services:  services,
		verifier:  verifier,
		validator: validation.New(),
		limiter:   limiter,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		origins:   origins,
		router:    chi.NewRouter(),
		logger:    logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Playlist API", "1.0.0")
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Link", "Allow"},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, nil, s.logger)
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()

	s.router.Route(routePlaylists, func(r chi.Router) {
		r.Post("/", s.withPrincipal(s.handleCreatePlaylist))
		r.Get("/", s.withPrincipal(s.handleListPlaylists))
		r.Put("/", s.handleCollectionNotAllowed)
		r.Patch("/", s.handleCollectionNotAllowed)
		r.Delete("/", s.handleCollectionNotAllowed)

		r.Get("/{id}", s.withPrincipal(s.handleGetPlaylist))
		r.Patch("/{id}", s.withPrincipal(s.handleUpdatePlaylist))
		r.Put("/{id}", s.withPrincipal(s.handleReplacePlaylist))
		r.Delete("/{id}", s.withPrincipal(s.handleDeletePlaylist))

		r.Put("/{id}/tracks/{track_id}", s.withPrincipal(s.handleAddTrack))
		r.Delete("/{id}/tracks/{track_id}", s.withPrincipal(s.handleRemoveTrack))
	})

	s.router.Route(routeTracks, func(r chi.Router) {
		r.Post("/", s.handleCreateTrack)
		r.Get("/", s.handleListTracks)
		r.Put("/", s.handleCollectionNotAllowed)
		r.Patch("/", s.handleCollectionNotAllowed)
		r.Delete("/", s.handleCollectionNotAllowed)

		r.Get("/{id}", s.handleGetTrack)
		r.Patch("/{id}", s.handleUpdateTrack)
		r.Put("/{id}", s.handleReplaceTrack)
		r.Delete("/{id}", s.handleDeleteTrack)
	})

	s.router.Route(routeUsers, func(r chi.Router) {
		// POST /users decides between 201 and 200 itself, so the gate must
		// not create the user first.
		r.Post("/", s.withVerifiedPrincipal(s.handleCreateUser))
		r.Get("/", s.handleListUsers)
		r.Get("/{id}", s.handleGetUser)
	})
}

// handleCollectionNotAllowed rejects bulk PUT, PATCH and DELETE.
func (s *Server) handleCollectionNotAllowed(w http.ResponseWriter, _ *http.Request) {
	response.MethodNotAllowed(w, collectionMethods, s.logger)
}
