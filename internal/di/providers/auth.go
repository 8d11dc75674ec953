package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/playlistapp/playlist-server/internal/auth"
	"github.com/playlistapp/playlist-server/internal/config"
	"github.com/playlistapp/playlist-server/internal/logger"
)

// ProvideTokenVerifier provides the Google ID token verifier.
func ProvideTokenVerifier(i do.Injector) (*auth.GoogleVerifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	verifier, err := auth.NewGoogleVerifier(context.Background(), cfg.Auth.ClientID)
	if err != nil {
		return nil, err
	}

	log.Info("Token verifier ready", "audience", cfg.Auth.ClientID)

	return verifier, nil
}
