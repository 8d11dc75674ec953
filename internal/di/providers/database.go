package providers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/playlistapp/playlist-server/internal/config"
	"github.com/playlistapp/playlist-server/internal/logger"
	"github.com/playlistapp/playlist-server/internal/store"
	"github.com/playlistapp/playlist-server/internal/store/sqlite"
)

// StoreHandle wraps the configured datastore with shutdown capability.
type StoreHandle struct {
	store.Datastore
	closer io.Closer
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.closer.Close()
}

// ProvideStore opens the datastore selected by STORE_DRIVER.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return OpenStore(cfg.Store, log)
}

// OpenStore opens the datastore described by cfg. The command line tools use
// it directly without a container.
func OpenStore(cfg config.StoreConfig, log *logger.Logger) (*StoreHandle, error) {
	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data path: %w", err)
	}

	switch cfg.Driver {
	case config.DriverSQLite:
		path := filepath.Join(cfg.DataPath, "playlist.db")
		db, err := sqlite.Open(path, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", cfg.Driver, "path", path)
		return &StoreHandle{Datastore: db, closer: db}, nil

	default:
		path := filepath.Join(cfg.DataPath, "db")
		db, err := store.Open(path, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", cfg.Driver, "path", path)
		return &StoreHandle{Datastore: db, closer: db}, nil
	}
}

// Repositories groups the typed collections over the datastore.
type Repositories struct {
	Playlists *store.PlaylistRepository
	Tracks    *store.TrackRepository
	Users     *store.UserRepository
}

// NewRepositories builds every repository over ds.
func NewRepositories(ds store.Datastore) *Repositories {
	return &Repositories{
		Playlists: store.NewPlaylistRepository(ds),
		Tracks:    store.NewTrackRepository(ds),
		Users:     store.NewUserRepository(ds),
	}
}

// ProvideRepositories provides the repositories.
func ProvideRepositories(i do.Injector) (*Repositories, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	return NewRepositories(storeHandle.Datastore), nil
}
