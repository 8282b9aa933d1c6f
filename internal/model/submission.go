package model

import (
	"time"
)

type Submission struct {
	ID               string  `db:"id"`
	GateID           string  `db:"gate_id"`
	Email            string  `db:"email"`
	FirstName        *string `db:"first_name"`
	ConsentMarketing bool    `db:"consent_marketing"`

	// Consent audit trail, recorded on every submit
	ConsentIP        *string    `db:"consent_ip"`
	ConsentUserAgent *string    `db:"consent_user_agent"`
	ConsentAt        *time.Time `db:"consent_at"`

	SoundcloudRepostVerified   bool       `db:"soundcloud_repost_verified"`
	SoundcloudRepostVerifiedAt *time.Time `db:"soundcloud_repost_verified_at"`
	SoundcloudFollowVerified   bool       `db:"soundcloud_follow_verified"`
	SoundcloudFollowVerifiedAt *time.Time `db:"soundcloud_follow_verified_at"`
	SpotifyConnected           bool       `db:"spotify_connected"`
	SpotifyConnectedAt         *time.Time `db:"spotify_connected_at"`

	DownloadCompletedAt *time.Time `db:"download_completed_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *Submission) DownloadCompleted() bool {
	return s.DownloadCompletedAt != nil
}
