package repository

import (
	"time"

	"github.com/jmoiron/sqlx"
)

type GateEventRepository interface {
	Increment(gateID, eventType string) error
	Totals(gateID string) (map[string]int64, error)
}

type gateEventRepository struct {
	db *sqlx.DB
}

func NewGateEventRepository(db *sqlx.DB) GateEventRepository {
	return &gateEventRepository{db: db}
}

// Increment bumps the per-day counter; the upsert keeps it a single
// statement so concurrent events never lose counts.
func (r *gateEventRepository) Increment(gateID, eventType string) error {
	day := time.Now().UTC().Truncate(24 * time.Hour)

	query := `
		INSERT INTO gate_events (gate_id, event_type, day, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (gate_id, event_type, day)
		DO UPDATE SET count = gate_events.count + 1
	`

	_, err := r.db.Exec(query, gateID, eventType, day)
	return err
}

func (r *gateEventRepository) Totals(gateID string) (map[string]int64, error) {
	rows := []struct {
		EventType string `db:"event_type"`
		Total     int64  `db:"total"`
	}{}

	query := `SELECT event_type, SUM(count) AS total FROM gate_events WHERE gate_id = $1 GROUP BY event_type`
	err := r.db.Select(&rows, query, gateID)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64, len(rows))
	for _, row := range rows {
		totals[row.EventType] = row.Total
	}

	return totals, nil
}
