package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/thebackstage/backstage/internal/model"
)

func testDownloadTokenService(gates ...*model.Gate) (*DownloadTokenService, *fakeSubmissionRepo) {
	gateSvc, _ := testGateService(gates...)
	subRepo := newFakeSubmissionRepo()
	return NewDownloadTokenService(
		newFakeDownloadTokenRepo(),
		subRepo,
		gateSvc,
		NewAnalyticsService(newFakeEventRepo()),
		newFakeStorage(),
		24*time.Hour,
	), subRepo
}

func TestDownloadTokenIssue(t *testing.T) {
	gate := &model.Gate{
		ID: "g1", Slug: "summer-drop", Active: true,
		RequireSpotifyConnect: true,
		FileKey:               strPtr("gates/u1/track.mp3"),
	}
	svc, subRepo := testDownloadTokenService(gate)

	sub := &model.Submission{ID: "s1", GateID: "g1"}
	subRepo.subs["s1"] = sub

	_, err := svc.Issue(gate, sub)
	if !errors.Is(err, ErrRequirementsNotMet) {
		t.Fatalf("unverified Issue = %v, want ErrRequirementsNotMet", err)
	}

	sub.SpotifyConnected = true
	token, err := svc.Issue(gate, sub)
	if err != nil {
		t.Fatalf("verified Issue = %v", err)
	}
	if token.Token == "" || token.GateID != "g1" || token.SubmissionID != "s1" {
		t.Errorf("bad token: %+v", token)
	}
}

func TestDownloadTokenIssueGateMismatch(t *testing.T) {
	gate := &model.Gate{ID: "g1", Slug: "summer-drop", Active: true, FileKey: strPtr("k")}
	svc, _ := testDownloadTokenService(gate)

	_, err := svc.Issue(gate, &model.Submission{ID: "s1", GateID: "other-gate"})
	if !errors.Is(err, ErrSubmissionGateMismatch) {
		t.Errorf("Issue = %v, want ErrSubmissionGateMismatch", err)
	}
}

func TestDownloadTokenRedeemSingleUse(t *testing.T) {
	gate := &model.Gate{ID: "g1", Slug: "summer-drop", Active: true, FileKey: strPtr("gates/u1/track.mp3")}
	svc, subRepo := testDownloadTokenService(gate)

	sub := &model.Submission{ID: "s1", GateID: "g1"}
	subRepo.subs["s1"] = sub

	token, err := svc.Issue(gate, sub)
	if err != nil {
		t.Fatalf("Issue = %v", err)
	}

	url, err := svc.Redeem(token.Token)
	if err != nil {
		t.Fatalf("Redeem = %v", err)
	}
	if !strings.Contains(url, "gates/u1/track.mp3") {
		t.Errorf("url = %q, want presigned URL for the gate file", url)
	}
	if !sub.DownloadCompleted() {
		t.Error("download completion not recorded")
	}

	_, err = svc.Redeem(token.Token)
	if !errors.Is(err, ErrTokenUsed) {
		t.Errorf("second Redeem = %v, want ErrTokenUsed", err)
	}
}

func TestDownloadTokenRedeemExternalURL(t *testing.T) {
	gate := &model.Gate{ID: "g1", Slug: "summer-drop", Active: true, FileURL: strPtr("https://cdn.example.com/pack.zip")}
	svc, subRepo := testDownloadTokenService(gate)

	sub := &model.Submission{ID: "s1", GateID: "g1"}
	subRepo.subs["s1"] = sub

	token, _ := svc.Issue(gate, sub)
	url, err := svc.Redeem(token.Token)
	if err != nil {
		t.Fatalf("Redeem = %v", err)
	}
	if url != "https://cdn.example.com/pack.zip" {
		t.Errorf("url = %q, want the external file URL", url)
	}
}

func TestDownloadTokenRedeemUnknown(t *testing.T) {
	svc, _ := testDownloadTokenService()

	_, err := svc.Redeem("never-issued")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Redeem = %v, want ErrTokenInvalid", err)
	}
}
