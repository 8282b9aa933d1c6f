package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/repository"
	"github.com/thebackstage/backstage/internal/validation"
)

var (
	ErrNoEmailColumn = errors.New("could not find an email column in the CSV header")
	ErrEmptyImport   = errors.New("CSV contains no data rows")
)

type ContactService struct {
	contactRepository repository.ContactRepository
	emailService      *EmailService
}

func NewContactService(contactRepository repository.ContactRepository, emailService *EmailService) *ContactService {
	return &ContactService{
		contactRepository: contactRepository,
		emailService:      emailService,
	}
}

// AddFromSubmission folds a gate submission into the gate owner's contact
// list. Best-effort: a contact write must never fail the fan's submit.
func (s *ContactService) AddFromSubmission(gate *model.Gate, sub *model.Submission) {
	now := time.Now()
	contact := &model.Contact{
		ID:               uuid.New().String(),
		UserID:           gate.UserID,
		Email:            sub.Email,
		FirstName:        sub.FirstName,
		ConsentMarketing: sub.ConsentMarketing,
		Source:           model.ContactSourceGate,
		GateID:           &gate.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err := s.contactRepository.Upsert(contact)
	if err != nil {
		slog.Warn("failed to add contact from submission", "error", err, "gate_id", gate.ID)
		return
	}

	if contact.ConsentMarketing {
		s.emailService.SyncContact(contact.Email, firstNameOrEmpty(contact.FirstName))
	}
}

type ImportResult struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// columnMapping holds the detected CSV column indexes, -1 when absent.
type columnMapping struct {
	email     int
	firstName int
	consent   int
}

// ImportCSV reads a contact CSV, detects the email / first-name / consent
// columns from the header, and upserts each row. Rows with unparseable
// emails are skipped, not fatal.
func (s *ContactService) ImportCSV(userID string, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	mapping := mapColumns(header)
	if mapping.email < 0 {
		return nil, ErrNoEmailColumn
	}

	result := &ImportResult{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed row; skip and keep going
			result.Skipped++
			continue
		}

		if mapping.email >= len(record) {
			result.Skipped++
			continue
		}

		email := strings.TrimSpace(strings.ToLower(record[mapping.email]))
		if validation.ValidateEmail(email) != nil {
			result.Skipped++
			continue
		}

		now := time.Now()
		contact := &model.Contact{
			ID:               uuid.New().String(),
			UserID:           userID,
			Email:            email,
			ConsentMarketing: parseConsent(record, mapping.consent),
			Source:           model.ContactSourceImport,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if mapping.firstName >= 0 && mapping.firstName < len(record) {
			name := strings.TrimSpace(record[mapping.firstName])
			if name != "" {
				contact.FirstName = &name
			}
		}

		created, err := s.contactRepository.Upsert(contact)
		if err != nil {
			slog.Warn("contact import row failed", "error", err, "email", email)
			result.Skipped++
			continue
		}

		if created {
			result.Imported++
		} else {
			result.Updated++
		}

		if contact.ConsentMarketing {
			s.emailService.SyncContact(contact.Email, firstNameOrEmpty(contact.FirstName))
		}
	}

	if result.Imported == 0 && result.Updated == 0 && result.Skipped == 0 {
		return nil, ErrEmptyImport
	}

	slog.Info("contact import finished", "user_id", userID,
		"imported", result.Imported, "updated", result.Updated, "skipped", result.Skipped)
	return result, nil
}

func (s *ContactService) ByUser(userID string) ([]*model.Contact, error) {
	contacts, err := s.contactRepository.ByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

// mapColumns finds the relevant columns by loose header matching, so exports
// from Brevo, Mailchimp and spreadsheets all import without configuration.
func mapColumns(header []string) columnMapping {
	mapping := columnMapping{email: -1, firstName: -1, consent: -1}

	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		name = strings.NewReplacer("_", "", "-", "", " ", "").Replace(name)

		switch {
		case mapping.email < 0 && (name == "email" || name == "emailaddress" || name == "mail" || strings.Contains(name, "email")):
			mapping.email = i
		case mapping.firstName < 0 && (name == "firstname" || name == "first" || name == "name" || name == "prenom" || name == "vorname"):
			mapping.firstName = i
		case mapping.consent < 0 && (strings.Contains(name, "consent") || strings.Contains(name, "optin") || strings.Contains(name, "subscribed") || strings.Contains(name, "marketing")):
			mapping.consent = i
		}
	}

	return mapping
}

func parseConsent(record []string, idx int) bool {
	if idx < 0 || idx >= len(record) {
		// Imported lists carry no consent evidence by default
		return false
	}

	value := strings.ToLower(strings.TrimSpace(record[idx]))
	switch value {
	case "yes", "y", "subscribed", "opted_in", "opted in":
		return true
	}

	b, err := strconv.ParseBool(value)
	return err == nil && b
}

func firstNameOrEmpty(name *string) string {
	if name == nil {
		return ""
	}
	return *name
}
