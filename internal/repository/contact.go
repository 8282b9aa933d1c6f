package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/thebackstage/backstage/internal/model"
)

var (
	ErrContactNotFound = errors.New("contact not found")
)

type ContactRepository interface {
	Upsert(contact *model.Contact) (created bool, err error)
	ByUser(userID string) ([]*model.Contact, error)
	CountByUser(userID string) (int, error)
}

type contactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) ContactRepository {
	return &contactRepository{db: db}
}

// Upsert inserts the contact or refreshes name/consent on the existing row
// for the same (user, email). Consent is only ever widened here; an import
// row without consent never revokes consent a fan gave at a gate.
func (r *contactRepository) Upsert(contact *model.Contact) (bool, error) {
	existing := &model.Contact{}
	query := `SELECT * FROM contacts WHERE user_id = $1 AND email = $2`

	err := r.db.Get(existing, query, contact.UserID, contact.Email)
	if err == sql.ErrNoRows {
		insert := `
			INSERT INTO contacts (id, user_id, email, first_name, consent_marketing, source, gate_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err = r.db.Exec(insert,
			contact.ID,
			contact.UserID,
			contact.Email,
			contact.FirstName,
			contact.ConsentMarketing,
			contact.Source,
			contact.GateID,
			contact.CreatedAt,
			contact.UpdatedAt,
		)
		return true, err
	}
	if err != nil {
		return false, err
	}

	firstName := existing.FirstName
	if contact.FirstName != nil && *contact.FirstName != "" {
		firstName = contact.FirstName
	}

	update := `
		UPDATE contacts
		SET first_name = $1,
		    consent_marketing = consent_marketing OR $2,
		    updated_at = $3
		WHERE id = $4
	`
	_, err = r.db.Exec(update, firstName, contact.ConsentMarketing, time.Now(), existing.ID)
	return false, err
}

func (r *contactRepository) ByUser(userID string) ([]*model.Contact, error) {
	var contacts []*model.Contact
	query := `SELECT * FROM contacts WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&contacts, query, userID)
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

func (r *contactRepository) CountByUser(userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM contacts WHERE user_id = $1`
	err := r.db.QueryRow(query, userID).Scan(&count)
	return count, err
}
