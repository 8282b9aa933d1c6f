package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/repository"
	"github.com/thebackstage/backstage/internal/validation"
)

var (
	ErrGateNotFound  = errors.New("gate not found")
	ErrGateInactive  = errors.New("gate is not active")
	ErrGateExpired   = errors.New("gate has expired")
	ErrGateLimit     = errors.New("active gate limit reached for plan")
	ErrTitleRequired = errors.New("title is required")
	ErrFileRequired  = errors.New("gate needs a file key or file URL")
)

type GateService struct {
	gateRepository      repository.GateRepository
	subscriptionService *SubscriptionService
}

func NewGateService(gateRepository repository.GateRepository, subscriptionService *SubscriptionService) *GateService {
	return &GateService{
		gateRepository:      gateRepository,
		subscriptionService: subscriptionService,
	}
}

// Resolve looks up a gate by its public slug and checks it is live.
// No side effects; view tracking is the analytics recorder's job.
func (s *GateService) Resolve(slug string) (*model.Gate, error) {
	gate, err := s.gateRepository.BySlug(slug)
	if err != nil {
		if errors.Is(err, repository.ErrGateNotFound) {
			return nil, ErrGateNotFound
		}
		return nil, fmt.Errorf("failed to get gate: %w", err)
	}

	if !gate.Active {
		return nil, ErrGateInactive
	}

	if gate.IsExpired() {
		return nil, ErrGateExpired
	}

	return gate, nil
}

type CreateGateInput struct {
	Title                   string
	Slug                    string
	RequireSoundcloudRepost bool
	RequireSoundcloudFollow bool
	RequireSpotifyConnect   bool
	SoundcloudTrackID       *string
	SoundcloudUserID        *string
	SpotifyTrackID          *string
	FileKey                 *string
	FileURL                 *string
	PixelID                 *string
	RejectDuplicates        bool
	ExpiresAt               *time.Time
}

func (s *GateService) Create(userID string, in CreateGateInput) (*model.Gate, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if in.FileKey == nil && in.FileURL == nil {
		return nil, ErrFileRequired
	}

	slug := in.Slug
	if slug == "" {
		slug = title
	}
	slug = validation.Slugify(slug)
	if slug == "" {
		return nil, ErrTitleRequired
	}

	count, err := s.gateRepository.CountActiveByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count gates: %w", err)
	}

	limit := s.subscriptionService.GateLimit(userID)
	if limit >= 0 && count >= limit {
		return nil, ErrGateLimit
	}

	now := time.Now()
	gate := &model.Gate{
		ID:                      uuid.New().String(),
		UserID:                  userID,
		Slug:                    slug,
		Title:                   title,
		Active:                  true,
		RequireSoundcloudRepost: in.RequireSoundcloudRepost,
		RequireSoundcloudFollow: in.RequireSoundcloudFollow,
		RequireSpotifyConnect:   in.RequireSpotifyConnect,
		SoundcloudTrackID:       in.SoundcloudTrackID,
		SoundcloudUserID:        in.SoundcloudUserID,
		SpotifyTrackID:          in.SpotifyTrackID,
		FileKey:                 in.FileKey,
		FileURL:                 in.FileURL,
		PixelID:                 in.PixelID,
		RejectDuplicates:        in.RejectDuplicates,
		ExpiresAt:               in.ExpiresAt,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	err = s.gateRepository.Create(gate)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create gate: %w", err)
	}

	return gate, nil
}

func (s *GateService) ByUser(userID string) ([]*model.Gate, error) {
	gates, err := s.gateRepository.ByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list gates: %w", err)
	}
	return gates, nil
}

func (s *GateService) ByID(id string) (*model.Gate, error) {
	gate, err := s.gateRepository.ByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrGateNotFound) {
			return nil, ErrGateNotFound
		}
		return nil, fmt.Errorf("failed to get gate: %w", err)
	}
	return gate, nil
}

func (s *GateService) Update(gate *model.Gate) error {
	gate.UpdatedAt = time.Now()

	err := s.gateRepository.Update(gate)
	if err != nil {
		if errors.Is(err, repository.ErrGateNotFound) {
			return ErrGateNotFound
		}
		return fmt.Errorf("failed to update gate: %w", err)
	}

	return nil
}

// SetActive flips the gate on or off. Gates are never physically deleted
// while submissions reference them.
func (s *GateService) SetActive(userID, gateID string, active bool) error {
	gate, err := s.gateRepository.ByID(gateID)
	if err != nil {
		if errors.Is(err, repository.ErrGateNotFound) {
			return ErrGateNotFound
		}
		return fmt.Errorf("failed to get gate: %w", err)
	}
	if gate.UserID != userID {
		return ErrGateNotFound
	}

	gate.Active = active
	return s.Update(gate)
}
