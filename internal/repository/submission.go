package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/thebackstage/backstage/internal/model"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
)

type SubmissionRepository interface {
	Create(sub *model.Submission) error
	ByID(id string) (*model.Submission, error)
	ByGateAndEmail(gateID, email string) (*model.Submission, error)
	ListByGate(gateID string) ([]*model.Submission, error)
	CountByGate(gateID string) (int, error)
	MarkRepostVerified(id string) error
	MarkFollowVerified(id string) error
	MarkSpotifyConnected(id string) error
	MarkDownloadCompleted(id string) error
}

type submissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(sub *model.Submission) error {
	query := `
		INSERT INTO submissions (
			id, gate_id, email, first_name, consent_marketing,
			consent_ip, consent_user_agent, consent_at,
			soundcloud_repost_verified, soundcloud_follow_verified, spotify_connected,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(query,
		sub.ID,
		sub.GateID,
		sub.Email,
		sub.FirstName,
		sub.ConsentMarketing,
		sub.ConsentIP,
		sub.ConsentUserAgent,
		sub.ConsentAt,
		sub.SoundcloudRepostVerified,
		sub.SoundcloudFollowVerified,
		sub.SpotifyConnected,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	return err
}

func (r *submissionRepository) ByID(id string) (*model.Submission, error) {
	sub := &model.Submission{}
	query := `SELECT * FROM submissions WHERE id = $1`

	err := r.db.Get(sub, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrSubmissionNotFound
	}

	return sub, err
}

func (r *submissionRepository) ByGateAndEmail(gateID, email string) (*model.Submission, error) {
	sub := &model.Submission{}
	query := `SELECT * FROM submissions WHERE gate_id = $1 AND email = $2`

	err := r.db.Get(sub, query, gateID, email)
	if err == sql.ErrNoRows {
		return nil, ErrSubmissionNotFound
	}

	return sub, err
}

func (r *submissionRepository) ListByGate(gateID string) ([]*model.Submission, error) {
	subs := []*model.Submission{}
	query := `SELECT * FROM submissions WHERE gate_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&subs, query, gateID)
	return subs, err
}

func (r *submissionRepository) CountByGate(gateID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM submissions WHERE gate_id = $1`
	err := r.db.QueryRow(query, gateID).Scan(&count)
	return count, err
}

// Verification flags are monotonic: set once, never reset by this flow.
// The WHERE guard keeps the original verification timestamp on repeat calls.

func (r *submissionRepository) MarkRepostVerified(id string) error {
	return r.markFlag(id, "soundcloud_repost_verified", "soundcloud_repost_verified_at")
}

func (r *submissionRepository) MarkFollowVerified(id string) error {
	return r.markFlag(id, "soundcloud_follow_verified", "soundcloud_follow_verified_at")
}

func (r *submissionRepository) MarkSpotifyConnected(id string) error {
	return r.markFlag(id, "spotify_connected", "spotify_connected_at")
}

func (r *submissionRepository) markFlag(id, flagCol, atCol string) error {
	now := time.Now()
	query := `UPDATE submissions SET ` + flagCol + ` = TRUE, ` + atCol + ` = $1, updated_at = $1
	          WHERE id = $2 AND ` + flagCol + ` = FALSE`

	_, err := r.db.Exec(query, now, id)
	return err
}

func (r *submissionRepository) MarkDownloadCompleted(id string) error {
	now := time.Now()
	query := `UPDATE submissions SET download_completed_at = $1, updated_at = $1
	          WHERE id = $2 AND download_completed_at IS NULL`

	_, err := r.db.Exec(query, now, id)
	return err
}
