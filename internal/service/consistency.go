package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/playlistapp/playlist-server/internal/domain"
	"github.com/playlistapp/playlist-server/internal/store"
)

// ViolationKind classifies a broken playlist/track reference.
type ViolationKind string

const (
	// ViolationDanglingTrack: a playlist lists a track that does not exist.
	ViolationDanglingTrack ViolationKind = "dangling_track"
	// ViolationMissingBackref: a playlist lists a track that does not list it back.
	ViolationMissingBackref ViolationKind = "missing_backref"
	// ViolationDanglingPlaylist: a track lists a playlist that does not exist.
	ViolationDanglingPlaylist ViolationKind = "dangling_playlist"
	// ViolationStaleBackref: a track lists a playlist that does not hold it.
	ViolationStaleBackref ViolationKind = "stale_backref"
)

// Violation is one broken reference.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	PlaylistID int64         `json:"playlist_id"`
	TrackID    int64         `json:"track_id"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: playlist %d, track %d", v.Kind, v.PlaylistID, v.TrackID)
}

// AuditReport summarizes a relationship scan.
type AuditReport struct {
	Playlists  int         `json:"playlists"`
	Tracks     int         `json:"tracks"`
	Violations []Violation `json:"violations"`
}

// Consistent reports whether no violations were found.
func (r *AuditReport) Consistent() bool {
	return len(r.Violations) == 0
}

// ConsistencyChecker audits and repairs the playlist/track relationship.
// The playlist side is authoritative.
type ConsistencyChecker struct {
	playlists *store.PlaylistRepository
	tracks    *store.TrackRepository
	logger    *slog.Logger
}

// NewConsistencyChecker creates a checker.
func NewConsistencyChecker(playlists *store.PlaylistRepository, tracks *store.TrackRepository, logger *slog.Logger) *ConsistencyChecker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ConsistencyChecker{playlists: playlists, tracks: tracks, logger: logger}
}

type snapshot struct {
	playlists map[int64]*domain.Playlist
	tracks    map[int64]*domain.Track
}

func (c *ConsistencyChecker) load(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{
		playlists: make(map[int64]*domain.Playlist),
		tracks:    make(map[int64]*domain.Track),
	}
	for p, err := range c.playlists.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("scan playlists: %w", err)
		}
		snap.playlists[p.ID] = p
	}
	for t, err := range c.tracks.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("scan tracks: %w", err)
		}
		snap.tracks[t.ID] = t
	}
	return snap, nil
}

// Audit scans every playlist and track and reports broken references in
// id order.
func (c *ConsistencyChecker) Audit(ctx context.Context) (*AuditReport, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		Playlists:  len(snap.playlists),
		Tracks:     len(snap.tracks),
		Violations: []Violation{},
	}

	for _, pid := range slices.Sorted(maps.Keys(snap.playlists)) {
		for _, tid := range snap.playlists[pid].Tracks {
			track, ok := snap.tracks[tid]
			switch {
			case !ok:
				report.Violations = append(report.Violations, Violation{Kind: ViolationDanglingTrack, PlaylistID: pid, TrackID: tid})
			case !track.InPlaylist(pid):
				report.Violations = append(report.Violations, Violation{Kind: ViolationMissingBackref, PlaylistID: pid, TrackID: tid})
			}
		}
	}

	for _, tid := range slices.Sorted(maps.Keys(snap.tracks)) {
		for _, pid := range snap.tracks[tid].Playlists {
			playlist, ok := snap.playlists[pid]
			switch {
			case !ok:
				report.Violations = append(report.Violations, Violation{Kind: ViolationDanglingPlaylist, PlaylistID: pid, TrackID: tid})
			case !playlist.ContainsTrack(tid):
				report.Violations = append(report.Violations, Violation{Kind: ViolationStaleBackref, PlaylistID: pid, TrackID: tid})
			}
		}
	}

	return report, nil
}

// Repair audits, then drops dangling track ids from playlists and rewrites
// every affected track's playlist list to match the playlists that hold it.
// It returns the audit taken before repairing.
func (c *ConsistencyChecker) Repair(ctx context.Context) (*AuditReport, error) {
	report, err := c.Audit(ctx)
	if err != nil {
		return nil, err
	}
	if report.Consistent() {
		return report, nil
	}

	dangling := make(map[int64][]int64)
	backrefs := make(map[int64]bool)
	for _, v := range report.Violations {
		switch v.Kind {
		case ViolationDanglingTrack:
			dangling[v.PlaylistID] = append(dangling[v.PlaylistID], v.TrackID)
		case ViolationMissingBackref, ViolationDanglingPlaylist, ViolationStaleBackref:
			backrefs[v.TrackID] = true
		}
	}

	for pid, missing := range dangling {
		_, err := c.playlists.Mutate(ctx, pid, func(p *domain.Playlist) error {
			changed := false
			for _, tid := range missing {
				if p.RemoveTrack(tid) {
					changed = true
				}
			}
			if !changed {
				return store.ErrNoChange
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("repair playlist %d: %w", pid, err)
		}
		c.logger.Info("Dropped dangling tracks from playlist", "playlist_id", pid, "track_ids", missing)
	}

	// Re-read the playlists so the inverse side follows the repaired state.
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	holders := make(map[int64][]int64)
	for _, pid := range slices.Sorted(maps.Keys(snap.playlists)) {
		for _, tid := range snap.playlists[pid].Tracks {
			holders[tid] = append(holders[tid], pid)
		}
	}

	for tid := range backrefs {
		if _, ok := snap.tracks[tid]; !ok {
			continue
		}
		want := holders[tid]
		_, err := c.tracks.Mutate(ctx, tid, func(t *domain.Track) error {
			next := reconcile(t.Playlists, want)
			if slices.Equal(next, t.Playlists) {
				return store.ErrNoChange
			}
			t.Playlists = next
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("repair track %d: %w", tid, err)
		}
		c.logger.Info("Rewrote track playlists", "track_id", tid, "playlists", want)
	}

	return report, nil
}

// reconcile keeps the entries of current that appear in want, in their
// existing order, then appends the rest of want.
func reconcile(current, want []int64) []int64 {
	out := make([]int64, 0, len(want))
	for _, id := range current {
		if slices.Contains(want, id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	for _, id := range want {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
