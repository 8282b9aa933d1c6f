package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/thebackstage/backstage/internal/model"
)

var (
	ErrDownloadTokenNotFound = errors.New("download token not found")
	ErrDownloadTokenUsed     = errors.New("download token has already been used")
	ErrDownloadTokenExpired  = errors.New("download token has expired")
)

type DownloadTokenRepository interface {
	Create(token *model.DownloadToken) error
	Consume(token string) (*model.DownloadToken, error)
}

type downloadTokenRepository struct {
	db *sqlx.DB
}

func NewDownloadTokenRepository(db *sqlx.DB) DownloadTokenRepository {
	return &downloadTokenRepository{db: db}
}

func (r *downloadTokenRepository) Create(token *model.DownloadToken) error {
	query := `
		INSERT INTO download_tokens (id, token, submission_id, gate_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(query,
		token.ID,
		token.Token,
		token.SubmissionID,
		token.GateID,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return err
}

// Consume atomically marks the token used and returns it. Redemption is
// single-success: the first caller gets the row, every later caller gets
// ErrDownloadTokenUsed. Expiry is enforced in the same statement so an
// expired token is never burned by mistake and stays distinguishable (410).
func (r *downloadTokenRepository) Consume(token string) (*model.DownloadToken, error) {
	var t model.DownloadToken
	now := time.Now()

	query := `
		UPDATE download_tokens
		SET used_at = $1
		WHERE token = $2
		AND used_at IS NULL
		AND expires_at > $3
		RETURNING *
	`

	err := r.db.Get(&t, query, now, token, now)
	if err == sql.ErrNoRows {
		// Lost the conditional update; look the row up to say why.
		var prior model.DownloadToken
		err = r.db.Get(&prior, `SELECT * FROM download_tokens WHERE token = $1`, token)
		if err == sql.ErrNoRows {
			return nil, ErrDownloadTokenNotFound
		}
		if err != nil {
			return nil, err
		}
		if prior.IsUsed() {
			return nil, ErrDownloadTokenUsed
		}
		return nil, ErrDownloadTokenExpired
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}
