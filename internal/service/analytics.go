package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/repository"
)

var (
	ErrGateIDRequired = errors.New("gate id is required")
)

// AnalyticsService is a best-effort side channel. Track never surfaces
// storage failures to callers; instrumentation must not block the fan
// journey.
type AnalyticsService struct {
	eventRepository repository.GateEventRepository
}

func NewAnalyticsService(eventRepository repository.GateEventRepository) *AnalyticsService {
	return &AnalyticsService{eventRepository: eventRepository}
}

// Track increments the per-gate counter for the event type. Failures are
// logged and swallowed.
func (s *AnalyticsService) Track(gateID, eventType string) {
	if gateID == "" || !model.ValidEventType(eventType) {
		slog.Warn("analytics event dropped", "gate_id", gateID, "event_type", eventType)
		return
	}

	err := s.eventRepository.Increment(gateID, eventType)
	if err != nil {
		slog.Warn("analytics write failed", "error", err, "gate_id", gateID, "event_type", eventType)
	}
}

// Record is the public-endpoint variant: it validates input and reports
// whether the write stuck, but the caller still answers 200 either way.
func (s *AnalyticsService) Record(gateID, eventType string) (bool, error) {
	if gateID == "" {
		return false, ErrGateIDRequired
	}
	if !model.ValidEventType(eventType) {
		// Fire-and-forget contract: only a missing gate id is a caller
		// error, everything else degrades to success:false
		slog.Warn("analytics event dropped", "gate_id", gateID, "event_type", eventType)
		return false, nil
	}

	err := s.eventRepository.Increment(gateID, eventType)
	if err != nil {
		slog.Warn("analytics write failed", "error", err, "gate_id", gateID, "event_type", eventType)
		return false, nil
	}

	return true, nil
}

// Totals returns lifetime per-event counts for the dashboard.
func (s *AnalyticsService) Totals(gateID string) (map[string]int64, error) {
	totals, err := s.eventRepository.Totals(gateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get gate totals: %w", err)
	}

	for _, eventType := range []string{model.EventTypeView, model.EventTypeSubmit, model.EventTypeDownload} {
		if _, ok := totals[eventType]; !ok {
			totals[eventType] = 0
		}
	}

	return totals, nil
}
