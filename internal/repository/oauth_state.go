package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/thebackstage/backstage/internal/model"
)

var (
	ErrStateNotFound = errors.New("oauth state not found")
	ErrStateUsed     = errors.New("oauth state has already been used")
	ErrStateExpired  = errors.New("oauth state has expired")
)

type OAuthStateRepository interface {
	Create(state *model.OAuthState) error
	Consume(state string) (*model.OAuthState, error)
}

type oauthStateRepository struct {
	db *sqlx.DB
}

func NewOAuthStateRepository(db *sqlx.DB) OAuthStateRepository {
	return &oauthStateRepository{db: db}
}

func (r *oauthStateRepository) Create(state *model.OAuthState) error {
	query := `
		INSERT INTO oauth_states (
			id, state, provider, submission_id, gate_id, user_id,
			code_verifier, autosave, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(query,
		state.ID,
		state.State,
		state.Provider,
		state.SubmissionID,
		state.GateID,
		state.UserID,
		state.CodeVerifier,
		state.Autosave,
		state.ExpiresAt,
		state.CreatedAt,
	)
	return err
}

// Consume atomically burns the state token and returns it. A single
// conditional UPDATE means only one callback can ever win, even under
// concurrent replays. Expired states are still burned: the caller checks
// IsExpired on the returned row, and a burned-but-expired state can never be
// retried either.
func (r *oauthStateRepository) Consume(state string) (*model.OAuthState, error) {
	var s model.OAuthState
	now := time.Now()

	query := `
		UPDATE oauth_states
		SET used_at = $1
		WHERE state = $2
		AND used_at IS NULL
		RETURNING *
	`

	err := r.db.Get(&s, query, now, state)
	if err == sql.ErrNoRows {
		// Classify for status mapping only; the state change already lost.
		var prior model.OAuthState
		err = r.db.Get(&prior, `SELECT * FROM oauth_states WHERE state = $1`, state)
		if err == sql.ErrNoRows {
			return nil, ErrStateNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrStateUsed
	}
	if err != nil {
		return nil, err
	}

	if s.IsExpired() {
		return nil, ErrStateExpired
	}

	return &s, nil
}
