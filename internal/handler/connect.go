package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/thebackstage/backstage/internal/config"
	"github.com/thebackstage/backstage/internal/ctxkeys"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/platform/soundcloud"
	"github.com/thebackstage/backstage/internal/platform/spotify"
	"github.com/thebackstage/backstage/internal/service"
	"golang.org/x/oauth2"
)

// ConnectHandler runs the OAuth round-trips against SoundCloud and Spotify.
// Fan flows hang off a submission and end back on the gate page; artist
// flows hang off the logged-in user and end back on the dashboard.
type ConnectHandler struct {
	cfg                 *config.Config
	gateService         *service.GateService
	submissionService   *service.SubmissionService
	stateService        *service.OAuthStateService
	verificationService *service.VerificationService
}

func NewConnectHandler(
	cfg *config.Config,
	gateService *service.GateService,
	submissionService *service.SubmissionService,
	stateService *service.OAuthStateService,
	verificationService *service.VerificationService,
) *ConnectHandler {
	return &ConnectHandler{
		cfg:                 cfg,
		gateService:         gateService,
		submissionService:   submissionService,
		stateService:        stateService,
		verificationService: verificationService,
	}
}

func (h *ConnectHandler) oauthConfig(provider string) (*oauth2.Config, error) {
	switch provider {
	case model.ProviderSoundcloud:
		if h.cfg.SoundcloudClientID == "" {
			return nil, fmt.Errorf("soundcloud oauth is not configured")
		}
		return &oauth2.Config{
			ClientID:     h.cfg.SoundcloudClientID,
			ClientSecret: h.cfg.SoundcloudClientSecret,
			RedirectURL:  h.cfg.AppURL + "/connect/soundcloud/callback",
			Endpoint:     soundcloud.OAuthEndpoint,
		}, nil
	case model.ProviderSpotify:
		if h.cfg.SpotifyClientID == "" {
			return nil, fmt.Errorf("spotify oauth is not configured")
		}
		return &oauth2.Config{
			ClientID:     h.cfg.SpotifyClientID,
			ClientSecret: h.cfg.SpotifyClientSecret,
			RedirectURL:  h.cfg.AppURL + "/connect/spotify/callback",
			Scopes:       []string{"user-read-email", "user-library-read", "user-library-modify"},
			Endpoint:     spotify.OAuthEndpoint,
		}, nil
	}
	return nil, fmt.Errorf("unknown provider: %s", provider)
}

// Start handles GET /connect/{provider}/start?gate={slug}&submission={id}
// It binds a fresh single-use state to the submission and sends the fan to
// the provider's consent screen. Both providers go through PKCE.
func (h *ConnectHandler) Start(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	oauthCfg, err := h.oauthConfig(provider)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	slug := r.URL.Query().Get("gate")
	submissionID := r.URL.Query().Get("submission")

	gate, err := h.gateService.Resolve(slug)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	sub, err := h.submissionService.ForGate(gate, submissionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	verifier := oauth2.GenerateVerifier()

	state, err := h.stateService.Issue(service.IssueStateInput{
		Provider:     provider,
		SubmissionID: &sub.ID,
		GateID:       &gate.ID,
		CodeVerifier: &verifier,
		Autosave:     r.URL.Query().Get("autosave") == "true",
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	authURL := oauthCfg.AuthCodeURL(state.State, oauth2.S256ChallengeOption(verifier))
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// StartArtist handles GET /api/dashboard/connect/{provider}/start for the
// logged-in artist.
func (h *ConnectHandler) StartArtist(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	user := ctxkeys.User(r.Context())

	oauthCfg, err := h.oauthConfig(provider)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	verifier := oauth2.GenerateVerifier()

	state, err := h.stateService.Issue(service.IssueStateInput{
		Provider:     provider,
		UserID:       &user.ID,
		CodeVerifier: &verifier,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	authURL := oauthCfg.AuthCodeURL(state.State, oauth2.S256ChallengeOption(verifier))
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// Callback handles GET /connect/{provider}/callback for both fan and artist
// flows; the consumed state decides which one this is.
func (h *ConnectHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := r.PathValue("provider")

	oauthCfg, err := h.oauthConfig(provider)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	// The state burns before anything else: a denied consent screen still
	// spends it.
	state, err := h.stateService.Consume(r.URL.Query().Get("state"), provider, true)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		slog.Info("oauth consent denied", "provider", provider, "error", errParam)
		h.redirectAfterCallback(w, r, state, "denied")
		return
	}

	token, err := oauthCfg.Exchange(ctx, r.URL.Query().Get("code"), oauth2.VerifierOption(*state.CodeVerifier))
	if err != nil {
		slog.Warn("oauth token exchange failed", "provider", provider, "error", err)
		h.redirectAfterCallback(w, r, state, "failed")
		return
	}

	httpClient := oauthCfg.Client(ctx, token)

	switch {
	case state.SubmissionID != nil:
		err = h.completeFan(r, state, provider, httpClient, token)
	case state.UserID != nil:
		err = h.completeArtist(r, state, provider, httpClient, token)
	default:
		err = service.ErrStateNotForSubmission
	}
	if err != nil {
		slog.Warn("oauth connection failed", "provider", provider, "error", err)
		h.redirectAfterCallback(w, r, state, "failed")
		return
	}

	h.redirectAfterCallback(w, r, state, "connected")
}

func (h *ConnectHandler) completeFan(r *http.Request, state *model.OAuthState, provider string, httpClient *http.Client, token *oauth2.Token) error {
	ctx := r.Context()

	switch provider {
	case model.ProviderSoundcloud:
		_, err := h.verificationService.CompleteSoundcloud(ctx, state, soundcloud.New(httpClient), token)
		return err
	case model.ProviderSpotify:
		_, err := h.verificationService.CompleteSpotify(ctx, state, spotify.New(httpClient), token, state.Autosave)
		return err
	}
	return fmt.Errorf("unknown provider: %s", provider)
}

func (h *ConnectHandler) completeArtist(r *http.Request, state *model.OAuthState, provider string, httpClient *http.Client, token *oauth2.Token) error {
	ctx := r.Context()

	switch provider {
	case model.ProviderSoundcloud:
		return h.verificationService.ConnectArtistSoundcloud(ctx, state, soundcloud.New(httpClient), token)
	case model.ProviderSpotify:
		return h.verificationService.ConnectArtistSpotify(ctx, state, spotify.New(httpClient), token)
	}
	return fmt.Errorf("unknown provider: %s", provider)
}

// redirectAfterCallback sends the browser back to where the flow started:
// the public gate page for fans, the dashboard for artists.
func (h *ConnectHandler) redirectAfterCallback(w http.ResponseWriter, r *http.Request, state *model.OAuthState, status string) {
	target := h.cfg.AppURL + "/dashboard/connections?status=" + url.QueryEscape(status)

	if state.GateID != nil {
		gate, err := h.gateService.ByID(*state.GateID)
		if err == nil {
			target = fmt.Sprintf("%s/gate/%s?connect=%s", h.cfg.AppURL, gate.Slug, url.QueryEscape(status))
			if state.SubmissionID != nil {
				target += "&submission=" + url.QueryEscape(*state.SubmissionID)
			}
		}
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}
