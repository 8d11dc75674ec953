package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/playlistapp/playlist-server/internal/api"
	"github.com/playlistapp/playlist-server/internal/auth"
	"github.com/playlistapp/playlist-server/internal/config"
	"github.com/playlistapp/playlist-server/internal/logger"
	"github.com/playlistapp/playlist-server/internal/ratelimit"
	"github.com/playlistapp/playlist-server/internal/service"
)

// RateLimiterHandle wraps the per-IP limiter. Limiter is nil when rate
// limiting is disabled.
type RateLimiterHandle struct {
	Limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	if h.Limiter != nil {
		h.Limiter.Stop()
	}
	return nil
}

// ProvideRateLimiter provides the per-IP request limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.HTTP.RateLimitRPS <= 0 {
		log.Info("Rate limiting disabled by configuration")
		return &RateLimiterHandle{}, nil
	}

	limiter := ratelimit.New(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, rateLimitIdleTTL)
	return &RateLimiterHandle{Limiter: limiter}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	verifier := do.MustInvoke[*auth.GoogleVerifier](i)
	limiter := do.MustInvoke[*RateLimiterHandle](i)
	relations := do.MustInvoke[*RelationServiceHandle](i)

	services := &api.Services{
		Playlist:  do.MustInvoke[*service.PlaylistService](i),
		Track:     do.MustInvoke[*service.TrackService](i),
		User:      do.MustInvoke[*service.UserService](i),
		Relations: relations.RelationService,
	}

	handler := api.NewServer(storeHandle.Datastore, services, verifier, limiter.Limiter, api.Config{
		BaseURL:            cfg.Server.BaseURL,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr, "base_url", cfg.Server.BaseURL)

	return &HTTPServerHandle{Server: srv}, nil
}
