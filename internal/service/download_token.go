package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/repository"
	"github.com/thebackstage/backstage/internal/storage"
)

var (
	ErrTokenInvalid        = errors.New("download token is invalid")
	ErrTokenUsed           = errors.New("download token has already been used")
	ErrTokenExpired        = errors.New("download token has expired")
	ErrRequirementsNotMet  = errors.New("gate requirements are not yet satisfied")
	ErrGateFileUnavailable = errors.New("gate has no downloadable file")
)

type DownloadTokenService struct {
	tokenRepository      repository.DownloadTokenRepository
	submissionRepository repository.SubmissionRepository
	gateService          *GateService
	analyticsService     *AnalyticsService
	fileStorage          storage.Storage
	expiry               time.Duration
}

func NewDownloadTokenService(
	tokenRepository repository.DownloadTokenRepository,
	submissionRepository repository.SubmissionRepository,
	gateService *GateService,
	analyticsService *AnalyticsService,
	fileStorage storage.Storage,
	expiry time.Duration,
) *DownloadTokenService {
	return &DownloadTokenService{
		tokenRepository:      tokenRepository,
		submissionRepository: submissionRepository,
		gateService:          gateService,
		analyticsService:     analyticsService,
		fileStorage:          fileStorage,
		expiry:               expiry,
	}
}

// Issue mints a download token once every gate-mandated verification flag is
// true on the submission.
func (s *DownloadTokenService) Issue(gate *model.Gate, sub *model.Submission) (*model.DownloadToken, error) {
	if sub.GateID != gate.ID {
		return nil, ErrSubmissionGateMismatch
	}

	if !gate.RequirementsMet(sub) {
		return nil, ErrRequirementsNotMet
	}

	token := &model.DownloadToken{
		ID:           uuid.New().String(),
		Token:        generateDownloadToken(),
		SubmissionID: sub.ID,
		GateID:       gate.ID,
		ExpiresAt:    time.Now().Add(s.expiry),
		CreatedAt:    time.Now(),
	}

	err := s.tokenRepository.Create(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create download token: %w", err)
	}

	slog.Info("download token issued", "gate_id", gate.ID, "submission_id", sub.ID)
	return token, nil
}

// Redeem burns the token and returns the URL to redirect the fan to.
// Single-success: the first call wins, every later call gets ErrTokenUsed.
func (s *DownloadTokenService) Redeem(tokenString string) (string, error) {
	token, err := s.tokenRepository.Consume(tokenString)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDownloadTokenNotFound):
			return "", ErrTokenInvalid
		case errors.Is(err, repository.ErrDownloadTokenUsed):
			return "", ErrTokenUsed
		case errors.Is(err, repository.ErrDownloadTokenExpired):
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("failed to consume download token: %w", err)
	}

	gate, err := s.gateService.ByID(token.GateID)
	if err != nil {
		return "", err
	}

	fileURL, err := s.fileURL(gate)
	if err != nil {
		return "", err
	}

	// Best-effort bookkeeping: the fan gets their file either way
	err = s.submissionRepository.MarkDownloadCompleted(token.SubmissionID)
	if err != nil {
		slog.Warn("failed to mark download completed", "error", err, "submission_id", token.SubmissionID)
	}
	s.analyticsService.Track(token.GateID, model.EventTypeDownload)

	slog.Info("download token redeemed", "gate_id", token.GateID, "submission_id", token.SubmissionID)
	return fileURL, nil
}

// fileURL resolves the gate's file: a presigned GET for files in our bucket,
// the raw URL for externally hosted files.
func (s *DownloadTokenService) fileURL(gate *model.Gate) (string, error) {
	if gate.FileKey != nil && *gate.FileKey != "" {
		url, err := s.fileStorage.PresignedURL(*gate.FileKey, s.expiry)
		if err != nil {
			return "", fmt.Errorf("failed to presign file URL: %w", err)
		}
		return url, nil
	}

	if gate.FileURL != nil && *gate.FileURL != "" {
		return *gate.FileURL, nil
	}

	return "", ErrGateFileUnavailable
}

// generateDownloadToken returns 32 random bytes, hex-encoded.
func generateDownloadToken() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate download token: " + err.Error())
	}
	return hex.EncodeToString(bytes)
}
