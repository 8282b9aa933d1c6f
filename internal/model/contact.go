package model

import (
	"time"
)

const (
	ContactSourceGate   = "gate"
	ContactSourceImport = "import"
)

// Contact is one entry in an artist's mailing list. Gate submissions with
// marketing consent flow in automatically; the rest arrive via CSV import.
type Contact struct {
	ID               string    `db:"id"`
	UserID           string    `db:"user_id"`
	Email            string    `db:"email"`
	FirstName        *string   `db:"first_name"`
	ConsentMarketing bool      `db:"consent_marketing"`
	Source           string    `db:"source"`
	GateID           *string   `db:"gate_id"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}
