package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/platform/soundcloud"
	"github.com/thebackstage/backstage/internal/platform/spotify"
	"github.com/thebackstage/backstage/internal/repository"
	"golang.org/x/oauth2"
)

var (
	ErrStateNotForSubmission = errors.New("oauth state is not bound to a submission")
	ErrStateNotForUser       = errors.New("oauth state is not bound to a user")
)

// SoundcloudAPI is the slice of the SoundCloud client the checkers use.
type SoundcloudAPI interface {
	Me(ctx context.Context) (*soundcloud.Profile, error)
	Repost(ctx context.Context, trackID string) error
	Follow(ctx context.Context, userID string) error
	IsFollowing(ctx context.Context, userID string) (bool, error)
}

// SpotifyAPI is the slice of the Spotify client the checkers use.
type SpotifyAPI interface {
	Me(ctx context.Context) (*spotify.Profile, error)
	SaveTracks(ctx context.Context, ids []string) error
}

// VerificationResult reports which checks stuck. A false flag means "not
// verified yet, fan can retry", never a failed callback.
type VerificationResult struct {
	RepostVerified bool
	FollowVerified bool
	Connected      bool
}

// VerificationService runs the platform side effects after a successful
// OAuth exchange. The connection itself is the primary contract; the
// repost/follow checks are a best-effort channel that prioritizes funnel
// completion over strict enforcement.
type VerificationService struct {
	submissionRepository repository.SubmissionRepository
	connectionRepository repository.ConnectionRepository
	gateService          *GateService
}

func NewVerificationService(
	submissionRepository repository.SubmissionRepository,
	connectionRepository repository.ConnectionRepository,
	gateService *GateService,
) *VerificationService {
	return &VerificationService{
		submissionRepository: submissionRepository,
		connectionRepository: connectionRepository,
		gateService:          gateService,
	}
}

// CompleteSoundcloud persists the fan's SoundCloud connection and then
// attempts the gate's repost/follow requirements. Check failures are logged
// and reported as unverified; they never fail the connection.
func (s *VerificationService) CompleteSoundcloud(ctx context.Context, state *model.OAuthState, api SoundcloudAPI, token *oauth2.Token) (*VerificationResult, error) {
	if state.SubmissionID == nil || state.GateID == nil {
		return nil, ErrStateNotForSubmission
	}

	gate, err := s.gateService.ByID(*state.GateID)
	if err != nil {
		return nil, err
	}

	sub, err := s.submissionRepository.ByID(*state.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	profile, err := api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get soundcloud profile: %w", err)
	}

	err = s.saveConnection(model.ProviderSoundcloud, sub.ID, fmt.Sprintf("%d", profile.ID), profile.Username, token, false)
	if err != nil {
		return nil, err
	}

	result := &VerificationResult{Connected: true}

	if gate.RequireSoundcloudRepost {
		result.RepostVerified = s.verifyRepost(ctx, gate, sub, api)
	}
	if gate.RequireSoundcloudFollow {
		result.FollowVerified = s.verifyFollow(ctx, gate, sub, api)
	}

	return result, nil
}

// CompleteSpotify persists the fan's Spotify connection and marks the
// submission connected. Saving the gated track to the fan's library is
// best-effort.
func (s *VerificationService) CompleteSpotify(ctx context.Context, state *model.OAuthState, api SpotifyAPI, token *oauth2.Token, autosave bool) (*VerificationResult, error) {
	if state.SubmissionID == nil || state.GateID == nil {
		return nil, ErrStateNotForSubmission
	}

	gate, err := s.gateService.ByID(*state.GateID)
	if err != nil {
		return nil, err
	}

	sub, err := s.submissionRepository.ByID(*state.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	profile, err := api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get spotify profile: %w", err)
	}

	err = s.saveConnection(model.ProviderSpotify, sub.ID, profile.ID, profile.DisplayName, token, autosave)
	if err != nil {
		return nil, err
	}

	err = s.submissionRepository.MarkSpotifyConnected(sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark spotify connected: %w", err)
	}

	result := &VerificationResult{Connected: true}

	if gate.SpotifyTrackID != nil && *gate.SpotifyTrackID != "" {
		err = api.SaveTracks(ctx, []string{*gate.SpotifyTrackID})
		if err != nil {
			slog.Warn("failed to save gated track", "error", err, "gate_id", gate.ID, "submission_id", sub.ID)
		}
	}

	return result, nil
}

// ArtistConnections returns the artist's linked platform accounts, access
// tokens stripped.
func (s *VerificationService) ArtistConnections(userID string) ([]*model.Connection, error) {
	var conns []*model.Connection
	for _, provider := range []string{model.ProviderSoundcloud, model.ProviderSpotify} {
		conn, err := s.connectionRepository.ByUserAndProvider(userID, provider)
		if err != nil {
			if errors.Is(err, repository.ErrConnectionNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get %s connection: %w", provider, err)
		}
		conn.AccessToken = ""
		conn.RefreshToken = nil
		conns = append(conns, conn)
	}
	return conns, nil
}

// ConnectArtistSoundcloud links a SoundCloud account to an artist user so
// gates can default to the artist's track and profile IDs.
func (s *VerificationService) ConnectArtistSoundcloud(ctx context.Context, state *model.OAuthState, api SoundcloudAPI, token *oauth2.Token) error {
	if state.UserID == nil {
		return ErrStateNotForUser
	}

	profile, err := api.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to get soundcloud profile: %w", err)
	}

	return s.saveArtistConnection(model.ProviderSoundcloud, *state.UserID, fmt.Sprintf("%d", profile.ID), profile.Username, token)
}

// ConnectArtistSpotify links a Spotify account to an artist user. The
// autosave worker uses this connection to find the artist's new releases.
func (s *VerificationService) ConnectArtistSpotify(ctx context.Context, state *model.OAuthState, api SpotifyAPI, token *oauth2.Token) error {
	if state.UserID == nil {
		return ErrStateNotForUser
	}

	profile, err := api.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spotify profile: %w", err)
	}

	return s.saveArtistConnection(model.ProviderSpotify, *state.UserID, profile.ID, profile.DisplayName, token)
}

func (s *VerificationService) verifyRepost(ctx context.Context, gate *model.Gate, sub *model.Submission, api SoundcloudAPI) bool {
	if sub.SoundcloudRepostVerified {
		return true
	}
	if gate.SoundcloudTrackID == nil || *gate.SoundcloudTrackID == "" {
		slog.Warn("gate requires repost but has no track id", "gate_id", gate.ID)
		return false
	}

	err := api.Repost(ctx, *gate.SoundcloudTrackID)
	if err != nil {
		slog.Warn("repost check failed", "error", err, "gate_id", gate.ID, "submission_id", sub.ID)
		return false
	}

	err = s.submissionRepository.MarkRepostVerified(sub.ID)
	if err != nil {
		slog.Warn("failed to mark repost verified", "error", err, "submission_id", sub.ID)
		return false
	}

	return true
}

func (s *VerificationService) verifyFollow(ctx context.Context, gate *model.Gate, sub *model.Submission, api SoundcloudAPI) bool {
	if sub.SoundcloudFollowVerified {
		return true
	}
	if gate.SoundcloudUserID == nil || *gate.SoundcloudUserID == "" {
		slog.Warn("gate requires follow but has no artist user id", "gate_id", gate.ID)
		return false
	}

	following, err := api.IsFollowing(ctx, *gate.SoundcloudUserID)
	if err != nil {
		slog.Warn("follow check failed", "error", err, "gate_id", gate.ID, "submission_id", sub.ID)
		return false
	}
	if !following {
		err = api.Follow(ctx, *gate.SoundcloudUserID)
		if err != nil {
			slog.Warn("follow action failed", "error", err, "gate_id", gate.ID, "submission_id", sub.ID)
			return false
		}
	}

	err = s.submissionRepository.MarkFollowVerified(sub.ID)
	if err != nil {
		slog.Warn("failed to mark follow verified", "error", err, "submission_id", sub.ID)
		return false
	}

	return true
}

func (s *VerificationService) saveConnection(provider, submissionID, providerUserID, username string, token *oauth2.Token, autosave bool) error {
	conn := newConnection(provider, providerUserID, username, token)
	conn.SubmissionID = &submissionID
	conn.AutosaveEnabled = autosave

	err := s.connectionRepository.Upsert(conn)
	if err != nil {
		return fmt.Errorf("failed to save %s connection: %w", provider, err)
	}

	return nil
}

func (s *VerificationService) saveArtistConnection(provider, userID, providerUserID, username string, token *oauth2.Token) error {
	conn := newConnection(provider, providerUserID, username, token)
	conn.UserID = &userID

	err := s.connectionRepository.Upsert(conn)
	if err != nil {
		return fmt.Errorf("failed to save %s connection: %w", provider, err)
	}

	return nil
}

func newConnection(provider, providerUserID, username string, token *oauth2.Token) *model.Connection {
	now := time.Now()
	conn := &model.Connection{
		ID:             uuid.New().String(),
		Provider:       provider,
		ProviderUserID: providerUserID,
		AccessToken:    token.AccessToken,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if username != "" {
		conn.ProviderUsername = &username
	}
	if token.RefreshToken != "" {
		refresh := token.RefreshToken
		conn.RefreshToken = &refresh
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		conn.TokenExpiresAt = &expiry
	}
	return conn
}
