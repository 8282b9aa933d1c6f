package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/platform/spotify"
	"github.com/thebackstage/backstage/internal/repository"
	"github.com/thebackstage/backstage/internal/service"
	"golang.org/x/oauth2"
)

// Autosave periodically saves an artist's new releases into the libraries of
// fans who opted in when connecting Spotify. One sweep every interval,
// connections processed one at a time, a small delay between API calls so a
// big fanbase never bursts against Spotify's rate limits.
type Autosave struct {
	connectionRepository repository.ConnectionRepository
	submissionService    *service.SubmissionService
	gateService          *service.GateService
	oauthConfig          *oauth2.Config

	interval  time.Duration
	callDelay time.Duration

	// test seam: wraps the authenticated http client in an API client
	newClient func(ts oauth2.TokenSource) *spotify.Client
}

func NewAutosave(
	connectionRepository repository.ConnectionRepository,
	submissionService *service.SubmissionService,
	gateService *service.GateService,
	oauthConfig *oauth2.Config,
	interval time.Duration,
	callDelay time.Duration,
) *Autosave {
	return &Autosave{
		connectionRepository: connectionRepository,
		submissionService:    submissionService,
		gateService:          gateService,
		oauthConfig:          oauthConfig,
		interval:             interval,
		callDelay:            callDelay,
		newClient: func(ts oauth2.TokenSource) *spotify.Client {
			return spotify.New(oauth2.NewClient(context.Background(), ts))
		},
	}
}

// Run blocks until ctx is cancelled.
func (w *Autosave) Run(ctx context.Context) {
	slog.Info("autosave worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("autosave worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Autosave) runOnce(ctx context.Context) {
	since := time.Now().Add(-w.interval)
	conns, err := w.connectionRepository.AutosaveDue(model.ProviderSpotify, since)
	if err != nil {
		slog.Error("autosave sweep failed to list connections", "error", err)
		return
	}

	slog.Info("autosave sweep", "connections", len(conns))

	for _, conn := range conns {
		if ctx.Err() != nil {
			return
		}

		err = w.processConnection(ctx, conn)
		if err != nil {
			slog.Warn("autosave failed for connection", "error", err, "connection_id", conn.ID)
		}

		// Even a failed connection advances, next sweep retries it
		err = w.connectionRepository.TouchAutosave(conn.ID)
		if err != nil {
			slog.Warn("failed to touch autosave timestamp", "error", err, "connection_id", conn.ID)
		}

		w.pace(ctx)
	}
}

func (w *Autosave) processConnection(ctx context.Context, conn *model.Connection) error {
	if conn.SubmissionID == nil {
		return nil
	}

	sub, err := w.submissionService.ByID(*conn.SubmissionID)
	if err != nil {
		return err
	}

	gate, err := w.gateService.ByID(sub.GateID)
	if err != nil {
		return err
	}
	if gate.SpotifyTrackID == nil || *gate.SpotifyTrackID == "" {
		return nil
	}

	ts := w.tokenSource(ctx, conn)
	client := w.newClient(ts)

	track, err := client.Track(ctx, *gate.SpotifyTrackID)
	if err != nil {
		return err
	}
	if len(track.Artists) == 0 {
		return nil
	}
	artistID := track.Artists[0].ID

	w.pace(ctx)

	albums, err := client.ArtistAlbums(ctx, artistID, 5)
	if err != nil {
		return err
	}

	cutoff := conn.CreatedAt
	if conn.LastAutosaveAt != nil {
		cutoff = *conn.LastAutosaveAt
	}

	var trackIDs []string
	for _, album := range albums {
		released, ok := parseReleaseDate(album.ReleaseDate)
		if !ok || released.Before(cutoff) {
			continue
		}

		w.pace(ctx)

		tracks, err := client.AlbumTracks(ctx, album.ID)
		if err != nil {
			slog.Warn("failed to get album tracks", "error", err, "album_id", album.ID)
			continue
		}
		for _, t := range tracks {
			trackIDs = append(trackIDs, t.ID)
		}
	}

	if len(trackIDs) == 0 {
		w.persistTokens(conn, ts)
		return nil
	}

	w.pace(ctx)

	err = client.SaveTracks(ctx, trackIDs)
	if err != nil {
		return err
	}

	w.persistTokens(conn, ts)

	slog.Info("autosaved new releases", "connection_id", conn.ID, "tracks", len(trackIDs))
	return nil
}

// tokenSource wraps the stored credentials; the oauth2 transport refreshes
// them transparently when expired.
func (w *Autosave) tokenSource(ctx context.Context, conn *model.Connection) oauth2.TokenSource {
	token := &oauth2.Token{AccessToken: conn.AccessToken}
	if conn.RefreshToken != nil {
		token.RefreshToken = *conn.RefreshToken
	}
	if conn.TokenExpiresAt != nil {
		token.Expiry = *conn.TokenExpiresAt
	}

	return w.oauthConfig.TokenSource(ctx, token)
}

// persistTokens writes refreshed credentials back so the next sweep doesn't
// redo the refresh round-trip.
func (w *Autosave) persistTokens(conn *model.Connection, ts oauth2.TokenSource) {
	token, err := ts.Token()
	if err != nil || token.AccessToken == conn.AccessToken {
		return
	}

	conn.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		refresh := token.RefreshToken
		conn.RefreshToken = &refresh
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		conn.TokenExpiresAt = &expiry
	}

	err = w.connectionRepository.UpdateTokens(conn)
	if err != nil {
		slog.Warn("failed to persist refreshed tokens", "error", err, "connection_id", conn.ID)
	}
}

func (w *Autosave) pace(ctx context.Context) {
	if w.callDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(w.callDelay):
	}
}

// Spotify release dates come in year, month, or day precision.
func parseReleaseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
