package service

import (
	"errors"
	"testing"
	"time"

	"github.com/thebackstage/backstage/internal/model"
)

func TestOAuthStateRoundTrip(t *testing.T) {
	svc := NewOAuthStateService(newFakeStateRepo(), 15*time.Minute)

	verifier := "pkce-verifier"
	submissionID := "s1"
	gateID := "g1"
	issued, err := svc.Issue(IssueStateInput{
		Provider:     model.ProviderSpotify,
		SubmissionID: &submissionID,
		GateID:       &gateID,
		CodeVerifier: &verifier,
		Autosave:     true,
	})
	if err != nil {
		t.Fatalf("Issue = %v", err)
	}
	if issued.State == "" {
		t.Fatal("issued state has no token")
	}

	state, err := svc.Consume(issued.State, model.ProviderSpotify, true)
	if err != nil {
		t.Fatalf("Consume = %v", err)
	}
	if state.SubmissionID == nil || *state.SubmissionID != "s1" {
		t.Error("state lost its submission binding")
	}
	if !state.Autosave {
		t.Error("state lost the autosave opt-in")
	}
}

func TestOAuthStateSingleUse(t *testing.T) {
	svc := NewOAuthStateService(newFakeStateRepo(), 15*time.Minute)

	issued, _ := svc.Issue(IssueStateInput{Provider: model.ProviderSoundcloud})

	_, err := svc.Consume(issued.State, model.ProviderSoundcloud, false)
	if err != nil {
		t.Fatalf("first Consume = %v", err)
	}

	_, err = svc.Consume(issued.State, model.ProviderSoundcloud, false)
	if !errors.Is(err, ErrStateUsed) {
		t.Errorf("second Consume = %v, want ErrStateUsed", err)
	}
}

func TestOAuthStateExpiredStillBurns(t *testing.T) {
	repo := newFakeStateRepo()
	svc := NewOAuthStateService(repo, -time.Minute) // issue already-expired states

	issued, _ := svc.Issue(IssueStateInput{Provider: model.ProviderSoundcloud})

	_, err := svc.Consume(issued.State, model.ProviderSoundcloud, false)
	if !errors.Is(err, ErrStateExpired) {
		t.Fatalf("Consume = %v, want ErrStateExpired", err)
	}

	// The expired attempt spent the token: a replay must see used, not
	// expired, proving the burn happened.
	_, err = svc.Consume(issued.State, model.ProviderSoundcloud, false)
	if !errors.Is(err, ErrStateUsed) {
		t.Errorf("replay Consume = %v, want ErrStateUsed", err)
	}
}

func TestOAuthStateProviderMismatch(t *testing.T) {
	svc := NewOAuthStateService(newFakeStateRepo(), 15*time.Minute)

	issued, _ := svc.Issue(IssueStateInput{Provider: model.ProviderSpotify})

	_, err := svc.Consume(issued.State, model.ProviderSoundcloud, false)
	if !errors.Is(err, ErrStateProviderMismatch) {
		t.Errorf("Consume = %v, want ErrStateProviderMismatch", err)
	}
}

func TestOAuthStateMissingVerifier(t *testing.T) {
	svc := NewOAuthStateService(newFakeStateRepo(), 15*time.Minute)

	issued, _ := svc.Issue(IssueStateInput{Provider: model.ProviderSpotify})

	_, err := svc.Consume(issued.State, model.ProviderSpotify, true)
	if !errors.Is(err, ErrStateVerifierMissing) {
		t.Errorf("Consume = %v, want ErrStateVerifierMissing", err)
	}
}

func TestOAuthStateUnknownToken(t *testing.T) {
	svc := NewOAuthStateService(newFakeStateRepo(), 15*time.Minute)

	_, err := svc.Consume("never-issued", model.ProviderSpotify, false)
	if !errors.Is(err, ErrStateInvalid) {
		t.Errorf("Consume = %v, want ErrStateInvalid", err)
	}
}
