package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/platform/spotify"
	"github.com/thebackstage/backstage/internal/repository"
	"github.com/thebackstage/backstage/internal/service"
	"golang.org/x/oauth2"
)

type stubConnectionRepo struct {
	due     []*model.Connection
	touched []string
	updated []*model.Connection
}

func (r *stubConnectionRepo) Upsert(conn *model.Connection) error { return nil }

func (r *stubConnectionRepo) BySubmissionAndProvider(submissionID, provider string) (*model.Connection, error) {
	return nil, repository.ErrConnectionNotFound
}

func (r *stubConnectionRepo) ByUserAndProvider(userID, provider string) (*model.Connection, error) {
	return nil, repository.ErrConnectionNotFound
}

func (r *stubConnectionRepo) AutosaveDue(provider string, since time.Time) ([]*model.Connection, error) {
	return r.due, nil
}

func (r *stubConnectionRepo) UpdateTokens(conn *model.Connection) error {
	r.updated = append(r.updated, conn)
	return nil
}

func (r *stubConnectionRepo) TouchAutosave(id string) error {
	r.touched = append(r.touched, id)
	return nil
}

type stubGateRepo struct {
	gates map[string]*model.Gate
}

func (r *stubGateRepo) Create(gate *model.Gate) error { return nil }

func (r *stubGateRepo) ByID(id string) (*model.Gate, error) {
	gate, ok := r.gates[id]
	if !ok {
		return nil, repository.ErrGateNotFound
	}
	return gate, nil
}

func (r *stubGateRepo) BySlug(slug string) (*model.Gate, error) {
	return nil, repository.ErrGateNotFound
}

func (r *stubGateRepo) ByUser(userID string) ([]*model.Gate, error)  { return nil, nil }
func (r *stubGateRepo) CountActiveByUser(userID string) (int, error) { return 0, nil }
func (r *stubGateRepo) Update(gate *model.Gate) error                { return nil }

type stubSubmissionRepo struct {
	subs map[string]*model.Submission
}

func (r *stubSubmissionRepo) Create(sub *model.Submission) error { return nil }

func (r *stubSubmissionRepo) ByID(id string) (*model.Submission, error) {
	sub, ok := r.subs[id]
	if !ok {
		return nil, repository.ErrSubmissionNotFound
	}
	return sub, nil
}

func (r *stubSubmissionRepo) ByGateAndEmail(gateID, email string) (*model.Submission, error) {
	return nil, repository.ErrSubmissionNotFound
}

func (r *stubSubmissionRepo) ListByGate(gateID string) ([]*model.Submission, error) {
	return nil, nil
}

func (r *stubSubmissionRepo) CountByGate(gateID string) (int, error) { return 0, nil }
func (r *stubSubmissionRepo) MarkRepostVerified(id string) error     { return nil }
func (r *stubSubmissionRepo) MarkFollowVerified(id string) error     { return nil }
func (r *stubSubmissionRepo) MarkSpotifyConnected(id string) error   { return nil }
func (r *stubSubmissionRepo) MarkDownloadCompleted(id string) error  { return nil }

// spotifyStub fakes the handful of Web API endpoints the worker hits.
type spotifyStub struct {
	mu          sync.Mutex
	savedIDs    []string
	albumTracks map[string][]string
	albums      []spotify.Album
	artistID    string
}

func (s *spotifyStub) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/tracks/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":      r.PathValue("id"),
			"name":    "Single",
			"artists": []map[string]string{{"id": s.artistID, "name": "Artist"}},
		})
	})
	mux.HandleFunc("GET /v1/artists/{id}/albums", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"items": s.albums})
	})
	mux.HandleFunc("GET /v1/albums/{id}/tracks", func(w http.ResponseWriter, r *http.Request) {
		var items []map[string]string
		for _, id := range s.albumTracks[r.PathValue("id")] {
			items = append(items, map[string]string{"id": id})
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	})
	mux.HandleFunc("PUT /v1/me/tracks", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.savedIDs = append(s.savedIDs, strings.Split(r.URL.Query().Get("ids"), ",")...)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func autosaveWorker(srv *httptest.Server, connRepo *stubConnectionRepo, gates map[string]*model.Gate, subs map[string]*model.Submission) *Autosave {
	gateService := service.NewGateService(&stubGateRepo{gates: gates}, nil)
	submissionService := service.NewSubmissionService(&stubSubmissionRepo{subs: subs}, gateService, nil, nil)

	w := NewAutosave(connRepo, submissionService, gateService, &oauth2.Config{}, time.Hour, 0)
	w.newClient = func(ts oauth2.TokenSource) *spotify.Client {
		return spotify.New(srv.Client()).WithBaseURL(srv.URL)
	}
	return w
}

func strPtr(s string) *string { return &s }

func fanConnection(id, submissionID string) *model.Connection {
	return &model.Connection{
		ID:              id,
		Provider:        model.ProviderSpotify,
		SubmissionID:    strPtr(submissionID),
		ProviderUserID:  "fan-" + id,
		AccessToken:     "tok-" + id,
		AutosaveEnabled: true,
		CreatedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAutosaveSavesNewReleases(t *testing.T) {
	stub := &spotifyStub{
		artistID: "artist-1",
		albums: []spotify.Album{
			{ID: "album-new", Name: "New Drop", ReleaseDate: time.Now().UTC().Format("2006-01-02")},
			{ID: "album-old", Name: "Back Catalog", ReleaseDate: "2019-06-01"},
		},
		albumTracks: map[string][]string{
			"album-new": {"t1", "t2"},
			"album-old": {"t3"},
		},
	}
	srv := stub.server(t)

	connRepo := &stubConnectionRepo{due: []*model.Connection{fanConnection("c1", "sub-1")}}
	gates := map[string]*model.Gate{
		"g1": {ID: "g1", UserID: "u1", SpotifyTrackID: strPtr("sp-track-1")},
	}
	subs := map[string]*model.Submission{
		"sub-1": {ID: "sub-1", GateID: "g1", Email: "fan@example.com"},
	}

	w := autosaveWorker(srv, connRepo, gates, subs)
	w.runOnce(context.Background())

	if got := strings.Join(stub.savedIDs, ","); got != "t1,t2" {
		t.Fatalf("saved track ids = %q, want %q", got, "t1,t2")
	}
	if len(connRepo.touched) != 1 || connRepo.touched[0] != "c1" {
		t.Errorf("touched connections = %v, want [c1]", connRepo.touched)
	}
}

func TestAutosaveSkipsArtistConnections(t *testing.T) {
	stub := &spotifyStub{artistID: "artist-1"}
	srv := stub.server(t)

	conn := fanConnection("c1", "ignored")
	conn.SubmissionID = nil
	userID := "u1"
	conn.UserID = &userID

	connRepo := &stubConnectionRepo{due: []*model.Connection{conn}}
	w := autosaveWorker(srv, connRepo, nil, nil)
	w.runOnce(context.Background())

	if len(stub.savedIDs) != 0 {
		t.Errorf("saved track ids = %v, want none", stub.savedIDs)
	}
	if len(connRepo.touched) != 1 {
		t.Errorf("touched = %v, want the skipped connection timestamped", connRepo.touched)
	}
}

func TestAutosaveCutoffSkipsAlreadySeenReleases(t *testing.T) {
	stub := &spotifyStub{
		artistID: "artist-1",
		albums: []spotify.Album{
			{ID: "album-1", Name: "Seen It", ReleaseDate: "2026-02-01"},
		},
		albumTracks: map[string][]string{"album-1": {"t1"}},
	}
	srv := stub.server(t)

	conn := fanConnection("c1", "sub-1")
	last := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	conn.LastAutosaveAt = &last

	connRepo := &stubConnectionRepo{due: []*model.Connection{conn}}
	gates := map[string]*model.Gate{
		"g1": {ID: "g1", UserID: "u1", SpotifyTrackID: strPtr("sp-track-1")},
	}
	subs := map[string]*model.Submission{
		"sub-1": {ID: "sub-1", GateID: "g1", Email: "fan@example.com"},
	}

	w := autosaveWorker(srv, connRepo, gates, subs)
	w.runOnce(context.Background())

	if len(stub.savedIDs) != 0 {
		t.Errorf("saved track ids = %v, want none before a new release", stub.savedIDs)
	}
	if len(connRepo.touched) != 1 {
		t.Errorf("touched = %v, want the connection timestamped", connRepo.touched)
	}
}

func TestAutosaveSweepContinuesPastFailures(t *testing.T) {
	stub := &spotifyStub{
		artistID: "artist-1",
		albums: []spotify.Album{
			{ID: "album-new", Name: "New Drop", ReleaseDate: time.Now().UTC().Format("2006-01-02")},
		},
		albumTracks: map[string][]string{"album-new": {"t1"}},
	}
	srv := stub.server(t)

	connRepo := &stubConnectionRepo{due: []*model.Connection{
		fanConnection("broken", "missing-submission"),
		fanConnection("ok", "sub-1"),
	}}
	gates := map[string]*model.Gate{
		"g1": {ID: "g1", UserID: "u1", SpotifyTrackID: strPtr("sp-track-1")},
	}
	subs := map[string]*model.Submission{
		"sub-1": {ID: "sub-1", GateID: "g1", Email: "fan@example.com"},
	}

	w := autosaveWorker(srv, connRepo, gates, subs)
	w.runOnce(context.Background())

	if got := strings.Join(stub.savedIDs, ","); got != "t1" {
		t.Fatalf("saved track ids = %q, want %q", got, "t1")
	}
	if len(connRepo.touched) != 2 {
		t.Errorf("touched = %v, want both connections timestamped", connRepo.touched)
	}
}

func TestParseReleaseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2026-08-14", time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC), true},
		{"2026-08", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), true},
		{"2026", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"someday", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := parseReleaseDate(tt.in)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("parseReleaseDate(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
