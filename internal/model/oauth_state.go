package model

import (
	"time"
)

const (
	ProviderSoundcloud = "soundcloud"
	ProviderSpotify    = "spotify"
)

// OAuthState is a single-use CSRF token binding an OAuth redirect round-trip
// to the submission (fan flow) or user (artist flow) that started it.
type OAuthState struct {
	ID           string  `db:"id"`
	State        string  `db:"state"`
	Provider     string  `db:"provider"`
	SubmissionID *string `db:"submission_id"`
	GateID       *string `db:"gate_id"`
	UserID       *string `db:"user_id"`

	// PKCE verifier, present for providers that require S256 (Spotify)
	CodeVerifier *string `db:"code_verifier"`

	// Fan's Spotify autosave opt-in, chosen before the redirect and applied
	// when the connection lands
	Autosave bool `db:"autosave"`

	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

func (s *OAuthState) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (s *OAuthState) IsUsed() bool {
	return s.UsedAt != nil
}
