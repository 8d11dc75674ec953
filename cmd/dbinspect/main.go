// Package main audits the playlist/track relationship in the configured
// datastore and optionally repairs it.
//
// Usage:
//
//	DATA_PATH=~/PlaylistServer/data go run ./cmd/dbinspect
//	DATA_PATH=~/PlaylistServer/data go run ./cmd/dbinspect -repair
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/playlistapp/playlist-server/internal/config"
	"github.com/playlistapp/playlist-server/internal/di/providers"
	"github.com/playlistapp/playlist-server/internal/logger"
	"github.com/playlistapp/playlist-server/internal/service"
)

var (
	repair  = flag.Bool("repair", false, "Rewrite the track side to match the playlists")
	asJSON  = flag.Bool("json", false, "Print the report as JSON")
	verbose = flag.Bool("v", false, "Log every repaired record")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level := "warn"
	if *verbose {
		level = "info"
	}
	lg := logger.New(logger.Config{Level: logger.ParseLevel(level), Environment: cfg.App.Environment, Writer: os.Stderr})

	handle, err := providers.OpenStore(cfg.Store, lg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer handle.Shutdown()

	repos := providers.NewRepositories(handle.Datastore)
	checker := service.NewConsistencyChecker(repos.Playlists, repos.Tracks, lg.Logger)

	ctx := context.Background()
	run := checker.Audit
	if *repair {
		run = checker.Repair
	}

	report, err := run(ctx)
	if err != nil {
		log.Fatalf("Inspection failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
	} else {
		printReport(report)
	}

	if !report.Consistent() && !*repair {
		os.Exit(2)
	}
}

func printReport(report *service.AuditReport) {
	fmt.Println("=== Relationship Inspection ===")
	fmt.Println()

	counts := make(map[service.ViolationKind]int)
	for i, v := range report.Violations {
		counts[v.Kind]++
		if i < 50 {
			fmt.Printf("  %s\n", v)
		}
	}
	if len(report.Violations) > 50 {
		fmt.Printf("  ... and %d more\n", len(report.Violations)-50)
	}

	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Printf("Playlists: %d\n", report.Playlists)
	fmt.Printf("Tracks: %d\n", report.Tracks)
	fmt.Printf("Dangling tracks: %d\n", counts[service.ViolationDanglingTrack])
	fmt.Printf("Missing back references: %d\n", counts[service.ViolationMissingBackref])
	fmt.Printf("Dangling playlists: %d\n", counts[service.ViolationDanglingPlaylist])
	fmt.Printf("Stale back references: %d\n", counts[service.ViolationStaleBackref])
	if *repair && !report.Consistent() {
		fmt.Println("Repaired.")
	}
}
