package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/thebackstage/backstage/internal/model"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
)

type ConnectionRepository interface {
	Upsert(conn *model.Connection) error
	BySubmissionAndProvider(submissionID, provider string) (*model.Connection, error)
	ByUserAndProvider(userID, provider string) (*model.Connection, error)
	AutosaveDue(provider string, since time.Time) ([]*model.Connection, error)
	UpdateTokens(conn *model.Connection) error
	TouchAutosave(id string) error
}

type connectionRepository struct {
	db *sqlx.DB
}

func NewConnectionRepository(db *sqlx.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) Upsert(conn *model.Connection) error {
	// A fan re-connecting the same provider replaces the stored credentials.
	existing, err := r.lookup(conn)
	if err != nil && !errors.Is(err, ErrConnectionNotFound) {
		return err
	}
	if existing != nil {
		conn.ID = existing.ID
		conn.CreatedAt = existing.CreatedAt
		return r.update(conn)
	}

	query := `
		INSERT INTO connections (
			id, provider, user_id, submission_id,
			provider_user_id, provider_username,
			access_token, refresh_token, token_expires_at,
			autosave_enabled, last_autosave_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.db.Exec(query,
		conn.ID,
		conn.Provider,
		conn.UserID,
		conn.SubmissionID,
		conn.ProviderUserID,
		conn.ProviderUsername,
		conn.AccessToken,
		conn.RefreshToken,
		conn.TokenExpiresAt,
		conn.AutosaveEnabled,
		conn.LastAutosaveAt,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	return err
}

func (r *connectionRepository) lookup(conn *model.Connection) (*model.Connection, error) {
	if conn.SubmissionID != nil {
		return r.BySubmissionAndProvider(*conn.SubmissionID, conn.Provider)
	}
	if conn.UserID != nil {
		return r.ByUserAndProvider(*conn.UserID, conn.Provider)
	}
	return nil, ErrConnectionNotFound
}

func (r *connectionRepository) update(conn *model.Connection) error {
	query := `
		UPDATE connections
		SET provider_user_id = $1,
		    provider_username = $2,
		    access_token = $3,
		    refresh_token = $4,
		    token_expires_at = $5,
		    autosave_enabled = $6,
		    updated_at = $7
		WHERE id = $8
	`

	_, err := r.db.Exec(query,
		conn.ProviderUserID,
		conn.ProviderUsername,
		conn.AccessToken,
		conn.RefreshToken,
		conn.TokenExpiresAt,
		conn.AutosaveEnabled,
		time.Now(),
		conn.ID,
	)
	return err
}

func (r *connectionRepository) BySubmissionAndProvider(submissionID, provider string) (*model.Connection, error) {
	conn := &model.Connection{}
	query := `SELECT * FROM connections WHERE submission_id = $1 AND provider = $2`

	err := r.db.Get(conn, query, submissionID, provider)
	if err == sql.ErrNoRows {
		return nil, ErrConnectionNotFound
	}

	return conn, err
}

func (r *connectionRepository) ByUserAndProvider(userID, provider string) (*model.Connection, error) {
	conn := &model.Connection{}
	query := `SELECT * FROM connections WHERE user_id = $1 AND provider = $2`

	err := r.db.Get(conn, query, userID, provider)
	if err == sql.ErrNoRows {
		return nil, ErrConnectionNotFound
	}

	return conn, err
}

// AutosaveDue lists connections with auto-save enabled that have not run
// since the given cutoff, oldest first.
func (r *connectionRepository) AutosaveDue(provider string, since time.Time) ([]*model.Connection, error) {
	var conns []*model.Connection
	query := `
		SELECT * FROM connections
		WHERE provider = $1
		AND autosave_enabled = TRUE
		AND (last_autosave_at IS NULL OR last_autosave_at < $2)
		ORDER BY last_autosave_at ASC NULLS FIRST
	`

	err := r.db.Select(&conns, query, provider, since)
	if err != nil {
		return nil, err
	}

	return conns, nil
}

func (r *connectionRepository) UpdateTokens(conn *model.Connection) error {
	query := `
		UPDATE connections
		SET access_token = $1, refresh_token = $2, token_expires_at = $3, updated_at = $4
		WHERE id = $5
	`

	_, err := r.db.Exec(query,
		conn.AccessToken,
		conn.RefreshToken,
		conn.TokenExpiresAt,
		time.Now(),
		conn.ID,
	)
	return err
}

func (r *connectionRepository) TouchAutosave(id string) error {
	now := time.Now()
	query := `UPDATE connections SET last_autosave_at = $1, updated_at = $1 WHERE id = $2`

	_, err := r.db.Exec(query, now, id)
	return err
}
