package model

import (
	"time"
)

// DownloadToken is redeemable exactly once for the gated file's URL.
type DownloadToken struct {
	ID           string     `db:"id"`
	Token        string     `db:"token"`
	SubmissionID string     `db:"submission_id"`
	GateID       string     `db:"gate_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	UsedAt       *time.Time `db:"used_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

func (t *DownloadToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *DownloadToken) IsUsed() bool {
	return t.UsedAt != nil
}
