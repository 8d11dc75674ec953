package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/playlistapp/playlist-server/internal/config"
	"github.com/playlistapp/playlist-server/internal/logger"
	"github.com/playlistapp/playlist-server/internal/service"
)

// RelationServiceHandle wraps the relation workers with shutdown capability.
type RelationServiceHandle struct {
	*service.RelationService
}

// Shutdown implements do.Shutdownable. Queued jobs are drained first.
func (h *RelationServiceHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Stop(ctx)
}

// ProvideRelationService provides and starts the relationship workers.
func ProvideRelationService(i do.Injector) (*RelationServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	repos := do.MustInvoke[*Repositories](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewRelationService(repos.Playlists, repos.Tracks, service.RelationConfig{
		Workers:     cfg.Relations.Workers,
		QueueSize:   cfg.Relations.QueueSize,
		MaxAttempts: cfg.Relations.MaxAttempts,
	}, log.WithComponent("relations").Logger)

	svc.Start()

	log.Info("Relation workers started",
		"workers", cfg.Relations.Workers,
		"queue_size", cfg.Relations.QueueSize,
	)

	return &RelationServiceHandle{RelationService: svc}, nil
}
