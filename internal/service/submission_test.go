package service

import (
	"errors"
	"testing"

	"github.com/thebackstage/backstage/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func testSubmissionService(gates ...*model.Gate) (*SubmissionService, *fakeSubmissionRepo, *fakeContactRepo, *fakeEventRepo) {
	gateSvc, _ := testGateService(gates...)
	subRepo := newFakeSubmissionRepo()
	contactRepo := newFakeContactRepo()
	eventRepo := newFakeEventRepo()
	contactSvc := NewContactService(contactRepo, devEmailService())
	analyticsSvc := NewAnalyticsService(eventRepo)
	return NewSubmissionService(subRepo, gateSvc, contactSvc, analyticsSvc), subRepo, contactRepo, eventRepo
}

func TestSubmit(t *testing.T) {
	svc, subRepo, contactRepo, eventRepo := testSubmissionService(
		&model.Gate{ID: "g1", UserID: "artist-1", Slug: "summer-drop", Active: true},
	)

	sub, gate, err := svc.Submit("summer-drop", SubmitInput{
		Email:            "Fan@Example.COM ",
		FirstName:        "Ada",
		ConsentMarketing: boolPtr(true),
		IP:               "203.0.113.9",
		UserAgent:        "test-agent",
	})
	if err != nil {
		t.Fatalf("Submit = %v, want nil", err)
	}
	if gate.ID != "g1" {
		t.Errorf("gate = %s, want g1", gate.ID)
	}
	if sub.Email != "fan@example.com" {
		t.Errorf("email = %q, want normalized fan@example.com", sub.Email)
	}
	if sub.ConsentAt == nil || sub.ConsentIP == nil {
		t.Error("consent audit trail not recorded")
	}
	if _, ok := subRepo.subs[sub.ID]; !ok {
		t.Error("submission was not persisted")
	}
	if len(contactRepo.contacts) != 1 {
		t.Errorf("contacts = %d, want 1", len(contactRepo.contacts))
	}
	if eventRepo.counts["g1/submit"] != 1 {
		t.Errorf("submit events = %d, want 1", eventRepo.counts["g1/submit"])
	}
}

func TestSubmitIdempotentResume(t *testing.T) {
	svc, _, _, eventRepo := testSubmissionService(
		&model.Gate{ID: "g1", Slug: "summer-drop", Active: true},
	)

	first, _, err := svc.Submit("summer-drop", SubmitInput{Email: "fan@example.com", ConsentMarketing: boolPtr(false)})
	if err != nil {
		t.Fatalf("first Submit = %v", err)
	}

	second, _, err := svc.Submit("summer-drop", SubmitInput{Email: "fan@example.com", ConsentMarketing: boolPtr(false)})
	if err != nil {
		t.Fatalf("second Submit = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("repeat submit created a new submission %s, want %s", second.ID, first.ID)
	}
	if eventRepo.counts["g1/submit"] != 1 {
		t.Errorf("submit events = %d, want 1 (resume must not double count)", eventRepo.counts["g1/submit"])
	}
}

func TestSubmitRejectDuplicates(t *testing.T) {
	svc, _, _, _ := testSubmissionService(
		&model.Gate{ID: "g1", Slug: "strict", Active: true, RejectDuplicates: true},
	)

	_, _, err := svc.Submit("strict", SubmitInput{Email: "fan@example.com", ConsentMarketing: boolPtr(true)})
	if err != nil {
		t.Fatalf("first Submit = %v", err)
	}

	_, _, err = svc.Submit("strict", SubmitInput{Email: "fan@example.com", ConsentMarketing: boolPtr(true)})
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Errorf("repeat submit = %v, want ErrDuplicateSubmission", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _, _ := testSubmissionService(
		&model.Gate{ID: "g1", Slug: "summer-drop", Active: true},
	)

	_, _, err := svc.Submit("summer-drop", SubmitInput{Email: "not-an-email", ConsentMarketing: boolPtr(true)})
	if !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("bad email: err = %v, want ErrInvalidEmail", err)
	}

	_, _, err = svc.Submit("summer-drop", SubmitInput{Email: "fan@example.com"})
	if !errors.Is(err, ErrConsentRequired) {
		t.Errorf("missing consent: err = %v, want ErrConsentRequired", err)
	}
}

func TestSubmitInactiveGateCreatesNothing(t *testing.T) {
	svc, subRepo, _, _ := testSubmissionService(
		&model.Gate{ID: "g1", Slug: "paused", Active: false},
	)

	_, _, err := svc.Submit("paused", SubmitInput{Email: "fan@example.com", ConsentMarketing: boolPtr(true)})
	if !errors.Is(err, ErrGateInactive) {
		t.Errorf("err = %v, want ErrGateInactive", err)
	}
	if len(subRepo.subs) != 0 {
		t.Error("inactive gate must not create submissions")
	}
}

func TestForGate(t *testing.T) {
	gate := &model.Gate{ID: "g1", Slug: "summer-drop", Active: true}
	other := &model.Gate{ID: "g2", Slug: "other", Active: true}
	svc, subRepo, _, _ := testSubmissionService(gate, other)

	subRepo.subs["s1"] = &model.Submission{ID: "s1", GateID: "g1"}

	sub, err := svc.ForGate(gate, "s1")
	if err != nil || sub.ID != "s1" {
		t.Fatalf("ForGate = %v, %v", sub, err)
	}

	_, err = svc.ForGate(other, "s1")
	if !errors.Is(err, ErrSubmissionGateMismatch) {
		t.Errorf("cross-gate lookup = %v, want ErrSubmissionGateMismatch", err)
	}

	_, err = svc.ForGate(gate, "missing")
	if !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("missing submission = %v, want ErrSubmissionNotFound", err)
	}
}
