// Package main seeds the datastore with sample tracks and a playlist.
//
// Tracks are created through the services, so both sides of the
// playlist/track relationship are written the same way the API writes them.
//
// Usage:
//
//	DATA_PATH=~/PlaylistServer/data go run ./cmd/seed -owner <google-sub>
//	DATA_PATH=~/PlaylistServer/data go run ./cmd/seed -owner <google-sub> -tracks 25
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/playlistapp/playlist-server/internal/config"
	"github.com/playlistapp/playlist-server/internal/di/providers"
	"github.com/playlistapp/playlist-server/internal/domain"
	"github.com/playlistapp/playlist-server/internal/logger"
	"github.com/playlistapp/playlist-server/internal/service"
)

var (
	owner     = flag.String("owner", "", "Subject (Google sub) that owns the seeded playlist")
	numTracks = flag.Int("tracks", 10, "Number of tracks to create")
	name      = flag.String("name", "Seeded Mix", "Playlist name")
)

var (
	albums  = []string{"Blue Hours", "Northern Lines", "Static Bloom", "Low Tide"}
	artists = []string{"The Vantas", "Mira Holt", "Cobalt Choir", "Ezra Lane", "Pale Signal"}
	titles  = []string{"Harbor", "Afterglow", "Paper Moon", "Undertow", "Glasshouse", "Wires", "Lantern", "Drift"}
)

func main() {
	flag.Parse()

	if *owner == "" {
		fmt.Fprintln(os.Stderr, "-owner is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	lg := logger.New(logger.Config{Level: logger.ParseLevel(cfg.Logger.Level), Environment: cfg.App.Environment})

	handle, err := providers.OpenStore(cfg.Store, lg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer handle.Shutdown()

	repos := providers.NewRepositories(handle.Datastore)
	relations := service.NewRelationService(repos.Playlists, repos.Tracks, service.RelationConfig{
		Workers:     cfg.Relations.Workers,
		QueueSize:   max(cfg.Relations.QueueSize, *numTracks),
		MaxAttempts: cfg.Relations.MaxAttempts,
	}, lg.Logger)
	relations.Start()

	playlists := service.NewPlaylistService(repos.Playlists, repos.Tracks, relations, lg.Logger)
	tracks := service.NewTrackService(repos.Tracks, relations, lg.Logger)
	users := service.NewUserService(repos.Users, lg.Logger)

	ctx := context.Background()
	principal := domain.Principal{Subject: *owner, Name: "Seed User"}

	if _, _, err := users.EnsureUser(ctx, principal); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	public := true
	playlist, err := playlists.CreatePlaylist(ctx, principal, service.PlaylistFields{Name: name, Public: &public})
	if err != nil {
		log.Fatalf("Failed to create playlist: %v", err)
	}
	fmt.Printf("Created playlist %d (%s) for %s\n", playlist.ID, playlist.Name, *owner)

	for i := range *numTracks {
		track, err := tracks.CreateTrack(ctx, randomTrack(i))
		if err != nil {
			log.Printf("Failed to create track: %v", err)
			continue
		}
		if _, err := playlists.AddTrack(ctx, principal, playlist.ID, track.ID); err != nil {
			log.Printf("Failed to add track %d: %v", track.ID, err)
			continue
		}
		fmt.Printf("  Added track %d: %s\n", track.ID, track.Name)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := relations.Stop(stopCtx); err != nil {
		log.Printf("Relation workers did not drain: %v", err)
	}

	stats := relations.Stats()
	fmt.Printf("\nSeeding complete! %d links written, %d failed\n", stats.Completed, stats.Failed+stats.Dropped)
}

func randomTrack(i int) service.TrackFields {
	album := albums[rand.IntN(len(albums))]
	title := fmt.Sprintf("%s %d", titles[rand.IntN(len(titles))], i+1)
	duration := 120 + rand.IntN(240)

	credits := []domain.Artist{domain.NewArtist(artists[rand.IntN(len(artists))])}
	if rand.IntN(4) == 0 {
		credits = append(credits, domain.NewArtist(artists[rand.IntN(len(artists))]))
	}

	return service.TrackFields{
		Album:     &album,
		Artists:   credits,
		DurationS: &duration,
		Name:      &title,
	}
}
