package model

import (
	"time"
)

// Connection stores OAuth credentials for a linked SoundCloud or Spotify
// account. Artist connections hang off a user, fan connections off a
// submission; exactly one of the two is set.
type Connection struct {
	ID           string  `db:"id"`
	Provider     string  `db:"provider"`
	UserID       *string `db:"user_id"`
	SubmissionID *string `db:"submission_id"`

	ProviderUserID   string  `db:"provider_user_id"`
	ProviderUsername *string `db:"provider_username"`

	AccessToken    string     `db:"access_token"`
	RefreshToken   *string    `db:"refresh_token"`
	TokenExpiresAt *time.Time `db:"token_expires_at"`

	// Fan opt-in: periodically save the artist's new releases to their
	// Spotify library
	AutosaveEnabled bool       `db:"autosave_enabled"`
	LastAutosaveAt  *time.Time `db:"last_autosave_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (c *Connection) TokenExpired() bool {
	return c.TokenExpiresAt != nil && time.Now().After(*c.TokenExpiresAt)
}
