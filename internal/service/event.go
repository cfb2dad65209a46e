package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/simulator/internal/domain"
)

// recordEvent records an event to the store.
func (s *Service) recordEvent(ctx context.Context, simulationID string, eventType domain.EventType, payload interface{}) (*domain.Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.Event{
		EventID:      "evt_" + uuid.New().String()[:8],
		SimulationID: simulationID,
		Ts:           s.now().UnixMilli(),
		Type:         eventType,
		Payload:      payloadBytes,
	}

	if s.store == nil {
		return event, nil
	}
	return event, s.store.CreateEvent(ctx, event)
}

// emit records an event and pushes it to live subscribers. Failures are
// logged and never fail the calling operation.
func (s *Service) emit(ctx context.Context, simulationID string, eventType domain.EventType, payload interface{}) {
	event, err := s.recordEvent(ctx, simulationID, eventType, payload)
	if err != nil {
		s.logger.Error("failed to record event", "simulation_id", simulationID, "type", eventType, "error", err)
	}
	if event == nil || s.notifier == nil {
		return
	}
	if err := s.notifier.PublishJSON(simulationID, domain.LiveMessage{
		Type:         domain.LiveMessageEvent,
		SimulationID: simulationID,
		Ts:           event.Ts,
		Data:         event,
	}); err != nil {
		s.logger.Warn("failed to publish event", "simulation_id", simulationID, "type", eventType, "error", err)
	}
}

// publishStatus pushes the projected status of sim to live subscribers.
func (s *Service) publishStatus(sim *domain.Simulation) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishJSON(sim.ID, domain.LiveMessage{
		Type:         domain.LiveMessageStatus,
		SimulationID: sim.ID,
		Ts:           s.now().UnixMilli(),
		Data:         ProjectStatus(sim),
	}); err != nil {
		s.logger.Warn("failed to publish status", "simulation_id", sim.ID, "error", err)
	}
}

// ListEvents returns the event trail of a simulation. The trail of a deleted
// simulation stays readable; an id with neither a record nor events is
// reported as domain.ErrNotFound.
func (s *Service) ListEvents(ctx context.Context, simulationID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	var events []domain.Event
	if s.store != nil {
		var err error
		events, err = s.store.GetEvents(ctx, simulationID, afterTs, types, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to get events: %w", err)
		}
	}
	if len(events) == 0 {
		if _, err := s.GetSimulation(ctx, simulationID); err != nil {
			return nil, err
		}
		events = []domain.Event{}
	}
	return events, nil
}
