package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/thebackstage/backstage/internal/model"
)

var (
	ErrGateNotFound  = errors.New("gate not found")
	ErrDuplicateSlug = errors.New("slug already taken")
)

type GateRepository interface {
	Create(gate *model.Gate) error
	ByID(id string) (*model.Gate, error)
	BySlug(slug string) (*model.Gate, error)
	ByUser(userID string) ([]*model.Gate, error)
	CountActiveByUser(userID string) (int, error)
	Update(gate *model.Gate) error
}

type gateRepository struct {
	db *sqlx.DB
}

func NewGateRepository(db *sqlx.DB) GateRepository {
	return &gateRepository{db: db}
}

func (r *gateRepository) Create(gate *model.Gate) error {
	query := `
		INSERT INTO gates (
			id, user_id, slug, title, active,
			require_soundcloud_repost, require_soundcloud_follow, require_spotify_connect,
			soundcloud_track_id, soundcloud_user_id, spotify_track_id,
			file_key, file_url, pixel_id, reject_duplicates,
			expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.db.Exec(query,
		gate.ID,
		gate.UserID,
		gate.Slug,
		gate.Title,
		gate.Active,
		gate.RequireSoundcloudRepost,
		gate.RequireSoundcloudFollow,
		gate.RequireSpotifyConnect,
		gate.SoundcloudTrackID,
		gate.SoundcloudUserID,
		gate.SpotifyTrackID,
		gate.FileKey,
		gate.FileURL,
		gate.PixelID,
		gate.RejectDuplicates,
		gate.ExpiresAt,
		gate.CreatedAt,
		gate.UpdatedAt,
	)
	if err != nil {
		// Unique slug violation (works for both SQLite and PostgreSQL)
		errStr := err.Error()
		if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value") {
			return ErrDuplicateSlug
		}
		return err
	}

	return nil
}

func (r *gateRepository) ByID(id string) (*model.Gate, error) {
	gate := &model.Gate{}
	query := `SELECT * FROM gates WHERE id = $1`

	err := r.db.Get(gate, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrGateNotFound
	}

	return gate, err
}

func (r *gateRepository) BySlug(slug string) (*model.Gate, error) {
	gate := &model.Gate{}
	query := `SELECT * FROM gates WHERE slug = $1`

	err := r.db.Get(gate, query, slug)
	if err == sql.ErrNoRows {
		return nil, ErrGateNotFound
	}

	return gate, err
}

func (r *gateRepository) ByUser(userID string) ([]*model.Gate, error) {
	var gates []*model.Gate
	query := `SELECT * FROM gates WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&gates, query, userID)
	if err != nil {
		return nil, err
	}

	return gates, nil
}

func (r *gateRepository) CountActiveByUser(userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM gates WHERE user_id = $1 AND active = TRUE`
	err := r.db.QueryRow(query, userID).Scan(&count)
	return count, err
}

func (r *gateRepository) Update(gate *model.Gate) error {
	query := `
		UPDATE gates
		SET title = $1,
		    active = $2,
		    require_soundcloud_repost = $3,
		    require_soundcloud_follow = $4,
		    require_spotify_connect = $5,
		    soundcloud_track_id = $6,
		    soundcloud_user_id = $7,
		    spotify_track_id = $8,
		    file_key = $9,
		    file_url = $10,
		    pixel_id = $11,
		    reject_duplicates = $12,
		    expires_at = $13,
		    updated_at = $14
		WHERE id = $15 AND user_id = $16
	`

	result, err := r.db.Exec(query,
		gate.Title,
		gate.Active,
		gate.RequireSoundcloudRepost,
		gate.RequireSoundcloudFollow,
		gate.RequireSpotifyConnect,
		gate.SoundcloudTrackID,
		gate.SoundcloudUserID,
		gate.SpotifyTrackID,
		gate.FileKey,
		gate.FileURL,
		gate.PixelID,
		gate.RejectDuplicates,
		gate.ExpiresAt,
		time.Now(),
		gate.ID,
		gate.UserID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGateNotFound
	}

	return nil
}
