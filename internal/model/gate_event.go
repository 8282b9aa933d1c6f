package model

import (
	"time"
)

const (
	EventTypeView     = "view"
	EventTypeSubmit   = "submit"
	EventTypeDownload = "download"
)

// GateEvent is a per-gate, per-day counter. Writes are best-effort and never
// block the fan journey.
type GateEvent struct {
	GateID    string    `db:"gate_id"`
	EventType string    `db:"event_type"`
	Day       time.Time `db:"day"`
	Count     int64     `db:"count"`
}

// ValidEventType reports whether t is one of the tracked event types.
func ValidEventType(t string) bool {
	switch t {
	case EventTypeView, EventTypeSubmit, EventTypeDownload:
		return true
	}
	return false
}
