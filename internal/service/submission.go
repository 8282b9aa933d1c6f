package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/repository"
	"github.com/thebackstage/backstage/internal/validation"
)

var (
	ErrInvalidEmail           = errors.New("invalid email address")
	ErrConsentRequired        = errors.New("a marketing consent decision is required")
	ErrDuplicateSubmission    = errors.New("email has already been submitted for this gate")
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrSubmissionGateMismatch = errors.New("submission does not belong to this gate")
)

type SubmissionService struct {
	submissionRepository repository.SubmissionRepository
	gateService          *GateService
	contactService       *ContactService
	analyticsService     *AnalyticsService
}

func NewSubmissionService(
	submissionRepository repository.SubmissionRepository,
	gateService *GateService,
	contactService *ContactService,
	analyticsService *AnalyticsService,
) *SubmissionService {
	return &SubmissionService{
		submissionRepository: submissionRepository,
		gateService:          gateService,
		contactService:       contactService,
		analyticsService:     analyticsService,
	}
}

type SubmitInput struct {
	Email            string
	FirstName        string
	ConsentMarketing *bool
	IP               string
	UserAgent        string
}

// Submit records a fan's email for a gate. Repeat submits for the same
// (gate, email) return the existing submission unless the gate owner has
// enabled reject_duplicates, in which case they get ErrDuplicateSubmission.
// Inactive or expired gates never create a row.
func (s *SubmissionService) Submit(slug string, in SubmitInput) (*model.Submission, *model.Gate, error) {
	gate, err := s.gateService.Resolve(slug)
	if err != nil {
		return nil, nil, err
	}

	email := strings.TrimSpace(strings.ToLower(in.Email))
	err = validation.ValidateEmail(email)
	if err != nil {
		return nil, nil, ErrInvalidEmail
	}

	// Consent must be an explicit decision, not an omitted field
	if in.ConsentMarketing == nil {
		return nil, nil, ErrConsentRequired
	}

	existing, err := s.submissionRepository.ByGateAndEmail(gate.ID, email)
	if err != nil && !errors.Is(err, repository.ErrSubmissionNotFound) {
		return nil, nil, fmt.Errorf("failed to check existing submission: %w", err)
	}
	if existing != nil {
		if gate.RejectDuplicates {
			return nil, nil, ErrDuplicateSubmission
		}
		// Idempotent resume: the fan picks up where they left off
		return existing, gate, nil
	}

	now := time.Now()
	sub := &model.Submission{
		ID:               uuid.New().String(),
		GateID:           gate.ID,
		Email:            email,
		ConsentMarketing: *in.ConsentMarketing,
		ConsentAt:        &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.FirstName != "" {
		firstName := strings.TrimSpace(in.FirstName)
		sub.FirstName = &firstName
	}
	if in.IP != "" {
		ip := in.IP
		sub.ConsentIP = &ip
	}
	if in.UserAgent != "" {
		ua := in.UserAgent
		sub.ConsentUserAgent = &ua
	}

	err = s.submissionRepository.Create(sub)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create submission: %w", err)
	}

	// Best-effort side effects: neither contacts nor analytics may block
	// the fan journey.
	s.contactService.AddFromSubmission(gate, sub)
	s.analyticsService.Track(gate.ID, model.EventTypeSubmit)

	slog.Info("gate submission created", "gate_id", gate.ID, "submission_id", sub.ID)
	return sub, gate, nil
}

// ForGate loads a submission and checks it belongs to the given gate.
func (s *SubmissionService) ForGate(gate *model.Gate, submissionID string) (*model.Submission, error) {
	sub, err := s.ByID(submissionID)
	if err != nil {
		return nil, err
	}
	if sub.GateID != gate.ID {
		return nil, ErrSubmissionGateMismatch
	}
	return sub, nil
}

// ListForGate returns a gate's submissions, newest first.
func (s *SubmissionService) ListForGate(gateID string) ([]*model.Submission, error) {
	subs, err := s.submissionRepository.ListByGate(gateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

func (s *SubmissionService) ByID(id string) (*model.Submission, error) {
	sub, err := s.submissionRepository.ByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}
