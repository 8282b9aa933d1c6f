package service

import (
	"errors"
	"testing"
	"time"
)

func testAuthService() (*AuthService, *fakeUserRepo, *fakeTokenRepo) {
	userRepo := newFakeUserRepo()
	tokenRepo := newFakeTokenRepo()
	subscriptionSvc := NewSubscriptionService(newFakeSubscriptionRepo())
	svc := NewAuthService(
		userRepo,
		tokenRepo,
		subscriptionSvc,
		devEmailService(),
		"test-secret",
		false,
		168*time.Hour,
		10*time.Minute,
	)
	return svc, userRepo, tokenRepo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := testAuthService()

	user, err := svc.Register("Artist@Example.com", "correct horse battery", "DJ Test")
	if err != nil {
		t.Fatalf("Register = %v", err)
	}
	if user.Email != "artist@example.com" {
		t.Errorf("email = %q, want normalized artist@example.com", user.Email)
	}
	if !user.HasPassword() {
		t.Error("registered user should have a password hash")
	}

	logged, err := svc.Login("artist@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login = %v", err)
	}
	if logged.ID != user.ID {
		t.Errorf("Login returned user %s, want %s", logged.ID, user.ID)
	}

	_, err = svc.Login("artist@example.com", "wrong password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}

	_, err = svc.Login("nobody@example.com", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := testAuthService()

	_, err := svc.Register("bad-email", "orange velvet stairs", "DJ Test")
	if !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("bad email: err = %v, want ErrInvalidEmail", err)
	}

	_, err = svc.Register("artist@example.com", "orange velvet stairs", "  ")
	if !errors.Is(err, ErrArtistNameRequired) {
		t.Errorf("blank name: err = %v, want ErrArtistNameRequired", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := testAuthService()

	_, err := svc.Register("artist@example.com", "orange velvet stairs", "DJ Test")
	if err != nil {
		t.Fatalf("first Register = %v", err)
	}

	_, err = svc.Register("artist@example.com", "silver kettle drum 9", "Other DJ")
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("err = %v, want ErrEmailAlreadyExists", err)
	}
}

func TestMagicLinkFlow(t *testing.T) {
	svc, userRepo, tokenRepo := testAuthService()

	// Unknown email gets a passwordless account
	err := svc.SendMagicLink("new@example.com")
	if err != nil {
		t.Fatalf("SendMagicLink = %v", err)
	}

	created, err := userRepo.ByEmail("new@example.com")
	if err != nil {
		t.Fatal("passwordless account was not created")
	}
	if created.HasPassword() {
		t.Error("magic link signup must not set a password")
	}

	var magicToken string
	for tok := range tokenRepo.tokens {
		magicToken = tok
	}
	if magicToken == "" {
		t.Fatal("no magic link token issued")
	}

	user, err := svc.VerifyMagicLink(magicToken)
	if err != nil {
		t.Fatalf("VerifyMagicLink = %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("verified user %s, want %s", user.ID, created.ID)
	}
	if user.EmailVerifiedAt == nil {
		t.Error("magic link login should verify the email")
	}

	// Single use
	_, err = svc.VerifyMagicLink(magicToken)
	if !errors.Is(err, ErrInvalidMagicLink) {
		t.Errorf("replayed link = %v, want ErrInvalidMagicLink", err)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	svc, _, _ := testAuthService()

	user, err := svc.Register("artist@example.com", "orange velvet stairs", "DJ Test")
	if err != nil {
		t.Fatalf("Register = %v", err)
	}

	token, err := svc.GenerateJWT(user)
	if err != nil {
		t.Fatalf("GenerateJWT = %v", err)
	}

	claims, err := svc.VerifyJWT(token)
	if err != nil {
		t.Fatalf("VerifyJWT = %v", err)
	}
	if claims["user_id"] != user.ID {
		t.Errorf("user_id claim = %v, want %s", claims["user_id"], user.ID)
	}

	_, err = svc.VerifyJWT(token + "tampered")
	if err == nil {
		t.Error("tampered token verified")
	}
}
