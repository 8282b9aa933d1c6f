package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/platform/soundcloud"
	"github.com/thebackstage/backstage/internal/platform/spotify"
	"golang.org/x/oauth2"
)

func testVerificationService(gates ...*model.Gate) (*VerificationService, *fakeSubmissionRepo, *fakeConnectionRepo) {
	gateSvc, _ := testGateService(gates...)
	subRepo := newFakeSubmissionRepo()
	connRepo := &fakeConnectionRepo{}
	return NewVerificationService(subRepo, connRepo, gateSvc), subRepo, connRepo
}

func fanState(provider, submissionID, gateID string) *model.OAuthState {
	return &model.OAuthState{
		ID:           "st1",
		Provider:     provider,
		SubmissionID: &submissionID,
		GateID:       &gateID,
	}
}

func testToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}
}

func TestCompleteSoundcloud(t *testing.T) {
	gate := &model.Gate{
		ID: "g1", Slug: "summer-drop", Active: true,
		RequireSoundcloudRepost: true,
		RequireSoundcloudFollow: true,
		SoundcloudTrackID:       strPtr("track-9"),
		SoundcloudUserID:        strPtr("artist-9"),
	}
	svc, subRepo, connRepo := testVerificationService(gate)
	subRepo.subs["s1"] = &model.Submission{ID: "s1", GateID: "g1"}

	api := &fakeSoundcloud{profile: soundcloud.Profile{ID: 42, Username: "fan42"}}

	result, err := svc.CompleteSoundcloud(context.Background(), fanState(model.ProviderSoundcloud, "s1", "g1"), api, testToken())
	if err != nil {
		t.Fatalf("CompleteSoundcloud = %v", err)
	}
	if !result.Connected || !result.RepostVerified || !result.FollowVerified {
		t.Errorf("result = %+v, want all true", result)
	}

	sub := subRepo.subs["s1"]
	if !sub.SoundcloudRepostVerified || !sub.SoundcloudFollowVerified {
		t.Error("verification flags not persisted on the submission")
	}

	conn, err := connRepo.BySubmissionAndProvider("s1", model.ProviderSoundcloud)
	if err != nil {
		t.Fatal("connection was not saved")
	}
	if conn.ProviderUserID != "42" {
		t.Errorf("provider user id = %q, want 42", conn.ProviderUserID)
	}
	if len(api.reposted) != 1 || api.reposted[0] != "track-9" {
		t.Errorf("reposted = %v, want [track-9]", api.reposted)
	}
}

func TestCompleteSoundcloudRepostFailureIsNotFatal(t *testing.T) {
	gate := &model.Gate{
		ID: "g1", Slug: "summer-drop", Active: true,
		RequireSoundcloudRepost: true,
		SoundcloudTrackID:       strPtr("track-9"),
	}
	svc, subRepo, connRepo := testVerificationService(gate)
	subRepo.subs["s1"] = &model.Submission{ID: "s1", GateID: "g1"}

	api := &fakeSoundcloud{
		profile:   soundcloud.Profile{ID: 42, Username: "fan42"},
		repostErr: errors.New("api rate limited"),
	}

	result, err := svc.CompleteSoundcloud(context.Background(), fanState(model.ProviderSoundcloud, "s1", "g1"), api, testToken())
	if err != nil {
		t.Fatalf("CompleteSoundcloud = %v, want nil (connection is the contract)", err)
	}
	if !result.Connected {
		t.Error("connection should survive a failed repost")
	}
	if result.RepostVerified {
		t.Error("failed repost must report unverified")
	}

	_, err = connRepo.BySubmissionAndProvider("s1", model.ProviderSoundcloud)
	if err != nil {
		t.Error("connection was not saved despite the failed check")
	}
}

func TestCompleteSoundcloudFollowSkipsWhenAlreadyFollowing(t *testing.T) {
	gate := &model.Gate{
		ID: "g1", Slug: "summer-drop", Active: true,
		RequireSoundcloudFollow: true,
		SoundcloudUserID:        strPtr("artist-9"),
	}
	svc, subRepo, _ := testVerificationService(gate)
	subRepo.subs["s1"] = &model.Submission{ID: "s1", GateID: "g1"}

	api := &fakeSoundcloud{
		profile:   soundcloud.Profile{ID: 42},
		following: true,
	}

	result, err := svc.CompleteSoundcloud(context.Background(), fanState(model.ProviderSoundcloud, "s1", "g1"), api, testToken())
	if err != nil {
		t.Fatalf("CompleteSoundcloud = %v", err)
	}
	if !result.FollowVerified {
		t.Error("existing follow should verify")
	}
	if len(api.followed) != 0 {
		t.Error("no follow call expected when already following")
	}
}

func TestCompleteSpotify(t *testing.T) {
	gate := &model.Gate{
		ID: "g1", Slug: "summer-drop", Active: true,
		RequireSpotifyConnect: true,
		SpotifyTrackID:        strPtr("sp-track-1"),
	}
	svc, subRepo, connRepo := testVerificationService(gate)
	subRepo.subs["s1"] = &model.Submission{ID: "s1", GateID: "g1"}

	api := &fakeSpotify{profile: spotify.Profile{ID: "sp-fan", DisplayName: "Fan"}}

	result, err := svc.CompleteSpotify(context.Background(), fanState(model.ProviderSpotify, "s1", "g1"), api, testToken(), true)
	if err != nil {
		t.Fatalf("CompleteSpotify = %v", err)
	}
	if !result.Connected {
		t.Error("result should report connected")
	}
	if !subRepo.subs["s1"].SpotifyConnected {
		t.Error("spotify_connected flag not persisted")
	}
	if len(api.saved) != 1 || api.saved[0] != "sp-track-1" {
		t.Errorf("saved tracks = %v, want [sp-track-1]", api.saved)
	}

	conn, err := connRepo.BySubmissionAndProvider("s1", model.ProviderSpotify)
	if err != nil {
		t.Fatal("connection was not saved")
	}
	if !conn.AutosaveEnabled {
		t.Error("autosave opt-in was dropped")
	}
}

func TestCompleteSpotifySaveTrackFailureIsNotFatal(t *testing.T) {
	gate := &model.Gate{
		ID: "g1", Slug: "summer-drop", Active: true,
		RequireSpotifyConnect: true,
		SpotifyTrackID:        strPtr("sp-track-1"),
	}
	svc, subRepo, _ := testVerificationService(gate)
	subRepo.subs["s1"] = &model.Submission{ID: "s1", GateID: "g1"}

	api := &fakeSpotify{
		profile: spotify.Profile{ID: "sp-fan"},
		saveErr: errors.New("insufficient scope"),
	}

	result, err := svc.CompleteSpotify(context.Background(), fanState(model.ProviderSpotify, "s1", "g1"), api, testToken(), false)
	if err != nil {
		t.Fatalf("CompleteSpotify = %v, want nil", err)
	}
	if !result.Connected || !subRepo.subs["s1"].SpotifyConnected {
		t.Error("connection must survive a failed library save")
	}
}

func TestCompleteRequiresSubmissionState(t *testing.T) {
	svc, _, _ := testVerificationService()

	userID := "u1"
	artistState := &model.OAuthState{ID: "st1", Provider: model.ProviderSpotify, UserID: &userID}

	_, err := svc.CompleteSpotify(context.Background(), artistState, &fakeSpotify{}, testToken(), false)
	if !errors.Is(err, ErrStateNotForSubmission) {
		t.Errorf("CompleteSpotify(artist state) = %v, want ErrStateNotForSubmission", err)
	}
}

func TestConnectArtist(t *testing.T) {
	svc, _, connRepo := testVerificationService()

	userID := "u1"
	state := &model.OAuthState{ID: "st1", Provider: model.ProviderSpotify, UserID: &userID}

	err := svc.ConnectArtistSpotify(context.Background(), state, &fakeSpotify{profile: spotify.Profile{ID: "sp-artist"}}, testToken())
	if err != nil {
		t.Fatalf("ConnectArtistSpotify = %v", err)
	}

	conn, err := connRepo.ByUserAndProvider("u1", model.ProviderSpotify)
	if err != nil {
		t.Fatal("artist connection was not saved")
	}
	if conn.SubmissionID != nil {
		t.Error("artist connection must not bind a submission")
	}

	fanOnly := fanState(model.ProviderSpotify, "s1", "g1")
	err = svc.ConnectArtistSpotify(context.Background(), fanOnly, &fakeSpotify{}, testToken())
	if !errors.Is(err, ErrStateNotForUser) {
		t.Errorf("ConnectArtistSpotify(fan state) = %v, want ErrStateNotForUser", err)
	}
}

func TestArtistConnectionsStripsTokens(t *testing.T) {
	svc, _, connRepo := testVerificationService()

	userID := "u1"
	refresh := "refresh"
	connRepo.conns = append(connRepo.conns, &model.Connection{
		ID: "c1", Provider: model.ProviderSpotify, UserID: &userID,
		AccessToken: "secret", RefreshToken: &refresh,
	})

	conns, err := svc.ArtistConnections("u1")
	if err != nil {
		t.Fatalf("ArtistConnections = %v", err)
	}
	if len(conns) != 1 {
		t.Fatalf("connections = %d, want 1", len(conns))
	}
	if conns[0].AccessToken != "" || conns[0].RefreshToken != nil {
		t.Error("credentials leaked out of ArtistConnections")
	}
}
