package model

import (
	"time"
)

// User is an artist account (the gate owners, not the fans).
type User struct {
	ID              string     `db:"id"`
	Email           string     `db:"email"`
	ArtistName      string     `db:"artist_name"`
	PasswordHash    *string    `db:"password_hash"` // Nullable for passwordless users
	EmailVerifiedAt *time.Time `db:"email_verified_at"`
	CreatedAt       time.Time  `db:"created_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
