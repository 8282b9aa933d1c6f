package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/repository"
)

var (
	ErrStateInvalid          = errors.New("oauth state is invalid")
	ErrStateUsed             = errors.New("oauth state has already been used")
	ErrStateExpired          = errors.New("oauth state has expired")
	ErrStateProviderMismatch = errors.New("oauth state was issued for a different provider")
	ErrStateVerifierMissing  = errors.New("oauth state is missing its PKCE verifier")
)

type OAuthStateService struct {
	stateRepository repository.OAuthStateRepository
	expiry          time.Duration
}

func NewOAuthStateService(stateRepository repository.OAuthStateRepository, expiry time.Duration) *OAuthStateService {
	return &OAuthStateService{
		stateRepository: stateRepository,
		expiry:          expiry,
	}
}

type IssueStateInput struct {
	Provider     string
	SubmissionID *string
	GateID       *string
	UserID       *string
	CodeVerifier *string
	Autosave     bool
}

// Issue creates a short-lived single-use state record binding the OAuth
// redirect round-trip to its originating submission or user.
func (s *OAuthStateService) Issue(in IssueStateInput) (*model.OAuthState, error) {
	state := &model.OAuthState{
		ID:           uuid.New().String(),
		State:        generateStateToken(),
		Provider:     in.Provider,
		SubmissionID: in.SubmissionID,
		GateID:       in.GateID,
		UserID:       in.UserID,
		CodeVerifier: in.CodeVerifier,
		Autosave:     in.Autosave,
		ExpiresAt:    time.Now().Add(s.expiry),
		CreatedAt:    time.Now(),
	}

	err := s.stateRepository.Create(state)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth state: %w", err)
	}

	return state, nil
}

// Consume burns the state token and validates it for the expected provider.
// The token is spent no matter what happens downstream: a failed token
// exchange cannot be retried with the same state.
func (s *OAuthStateService) Consume(stateToken, provider string, requireVerifier bool) (*model.OAuthState, error) {
	state, err := s.stateRepository.Consume(stateToken)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStateNotFound):
			return nil, ErrStateInvalid
		case errors.Is(err, repository.ErrStateUsed):
			return nil, ErrStateUsed
		case errors.Is(err, repository.ErrStateExpired):
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("failed to consume oauth state: %w", err)
	}

	if state.Provider != provider {
		return nil, ErrStateProviderMismatch
	}

	if requireVerifier && (state.CodeVerifier == nil || *state.CodeVerifier == "") {
		return nil, ErrStateVerifierMissing
	}

	return state, nil
}

// generateStateToken creates a cryptographically secure random state token
// for OAuth CSRF protection.
func generateStateToken() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
