package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/playlistapp/playlist-server/internal/api/dto"
	"github.com/playlistapp/playlist-server/internal/auth"
	"github.com/playlistapp/playlist-server/internal/domain"
	"github.com/playlistapp/playlist-server/internal/service"
	"github.com/playlistapp/playlist-server/internal/store"
)

const testBaseURL = "http://api.test"

// stubVerifier accepts tokens listed in its map.
type stubVerifier map[string]domain.Principal

func (v stubVerifier) Verify(_ context.Context, token string) (domain.Principal, error) {
	p, ok := v[token]
	if !ok {
		return domain.Principal{}, auth.ErrInvalidToken
	}
	return p, nil
}

var (
	alice = domain.Principal{Subject: "sub-alice", Name: "Alice", Email: "alice@example.com"}
	bob   = domain.Principal{Subject: "sub-bob", Name: "Bob", Email: "bob@example.com"}
)

type testServer struct {
	server    *Server
	datastore *store.BadgerStore
	relations *service.RelationService
	users     *store.UserRepository
}

// setupTestServer creates a test server over an in-memory store.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	ds, err := store.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })

	logger := slog.New(slog.DiscardHandler)

	playlists := store.NewPlaylistRepository(ds)
	tracks := store.NewTrackRepository(ds)
	users := store.NewUserRepository(ds)

	relations := service.NewRelationService(playlists, tracks, service.RelationConfig{Workers: 2, Backoff: time.Millisecond}, logger)
	relations.Start()
	t.Cleanup(func() { _ = relations.Stop(context.Background()) })

	services := &Services{
		Playlist:  service.NewPlaylistService(playlists, tracks, relations, logger),
		Track:     service.NewTrackService(tracks, relations, logger),
		User:      service.NewUserService(users, logger),
		Relations: relations,
	}

	verifier := stubVerifier{"alice-token": alice, "bob-token": bob}
	srv := NewServer(ds, services, verifier, nil, Config{BaseURL: testBaseURL + "/"}, logger)

	return &testServer{server: srv, datastore: ds, relations: relations, users: users}
}

type request struct {
	method string
	path   string
	body   any
	token  string
	accept string
}

func (ts *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	switch b := req.body.(type) {
	case nil:
	case string:
		body.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&body).Encode(b))
	}

	r := httptest.NewRequest(req.method, req.path, &body)
	r.Header.Set("Content-Type", "application/json")
	switch req.accept {
	case "":
		r.Header.Set("Accept", "application/json")
	case "-":
	default:
		r.Header.Set("Accept", req.accept)
	}
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}

	w := httptest.NewRecorder()
	ts.server.ServeHTTP(w, r)
	return w
}

func (ts *testServer) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.relations.Flush(ctx))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]string](t, w)
	return body["Error"]
}

func (ts *testServer) createTrack(t *testing.T, name string) dto.TrackResponse {
	t.Helper()
	w := ts.do(t, request{method: http.MethodPost, path: "/tracks", body: map[string]any{
		"album":      "A",
		"artists":    []map[string]string{{"name": "X"}},
		"duration_s": 180,
		"name":       name,
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.TrackResponse](t, w)
}

func (ts *testServer) createPlaylist(t *testing.T, token, name string) dto.PlaylistResponse {
	t.Helper()
	w := ts.do(t, request{method: http.MethodPost, path: "/playlists", token: token, body: map[string]any{
		"name":   name,
		"public": true,
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.PlaylistResponse](t, w)
}

// nextCursor extracts the cursor from a rel="next" Link header.
func (ts *testServer) nextCursor(t *testing.T, link string) string {
	t.Helper()
	start, end := strings.Index(link, "<"), strings.Index(link, ">")
	require.True(t, start >= 0 && end > start, link)

	u, err := url.Parse(link[start+1 : end])
	require.NoError(t, err)
	cursor := u.Query().Get("cursor")
	require.NotEmpty(t, cursor)
	return url.QueryEscape(cursor)
}
