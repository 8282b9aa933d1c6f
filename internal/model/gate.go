package model

import (
	"time"
)

type Gate struct {
	ID     string `db:"id"`
	UserID string `db:"user_id"`
	Slug   string `db:"slug"`
	Title  string `db:"title"`
	Active bool   `db:"active"`

	// Requirements a fan must complete before a download token is issued
	RequireSoundcloudRepost bool `db:"require_soundcloud_repost"`
	RequireSoundcloudFollow bool `db:"require_soundcloud_follow"`
	RequireSpotifyConnect   bool `db:"require_spotify_connect"`

	// Platform identifiers the verification checkers act on
	SoundcloudTrackID *string `db:"soundcloud_track_id"`
	SoundcloudUserID  *string `db:"soundcloud_user_id"`
	SpotifyTrackID    *string `db:"spotify_track_id"`

	// Either an object key in our bucket or an external URL
	FileKey *string `db:"file_key"`
	FileURL *string `db:"file_url"`

	// Optional tracking pixel injected on the public gate page
	PixelID *string `db:"pixel_id"`

	// When true a repeat submit for the same email returns 409 instead of
	// the existing submission
	RejectDuplicates bool `db:"reject_duplicates"`

	ExpiresAt *time.Time `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (g *Gate) IsExpired() bool {
	return g.ExpiresAt != nil && time.Now().After(*g.ExpiresAt)
}

// RequiresVerification reports whether the gate demands any social action
// beyond the email submit.
func (g *Gate) RequiresVerification() bool {
	return g.RequireSoundcloudRepost || g.RequireSoundcloudFollow || g.RequireSpotifyConnect
}

// RequirementsMet checks the submission's monotonic verification flags
// against this gate's requirements.
func (g *Gate) RequirementsMet(sub *Submission) bool {
	if g.RequireSoundcloudRepost && !sub.SoundcloudRepostVerified {
		return false
	}
	if g.RequireSoundcloudFollow && !sub.SoundcloudFollowVerified {
		return false
	}
	if g.RequireSpotifyConnect && !sub.SpotifyConnected {
		return false
	}
	return true
}
