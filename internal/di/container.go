// Package di provides dependency injection configuration for the playlist server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/playlistapp/playlist-server/internal/auth"
	"github.com/playlistapp/playlist-server/internal/config"
	"github.com/playlistapp/playlist-server/internal/di/providers"
	"github.com/playlistapp/playlist-server/internal/logger"
	"github.com/playlistapp/playlist-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideRepositories)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenVerifier)

	// Workers
	do.Provide(injector, providers.ProvideRelationService)

	// Business services
	do.Provide(injector, providers.ProvidePlaylistService)
	do.Provide(injector, providers.ProvideTrackService)
	do.Provide(injector, providers.ProvideUserService)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once the HTTP server is
// listening in the background.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.Repositories](injector)
	_ = do.MustInvoke[*auth.GoogleVerifier](injector)
	_ = do.MustInvoke[*providers.RelationServiceHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.PlaylistService](injector)
	_ = do.MustInvoke[*service.TrackService](injector)
	_ = do.MustInvoke[*service.UserService](injector)

	// Server
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	return nil
}
