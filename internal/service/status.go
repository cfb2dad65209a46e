package service

import (
	"context"

	"github.com/xiaot623/gogo/simulator/internal/domain"
)

// ProjectStatus derives the user facing progress view of a simulation.
// PENDING and FAILED carry no percentage, COMPLETED is 100, and RUNNING is
// the last reported step over the configured steps (0 when steps is 0).
func ProjectStatus(sim *domain.Simulation) *domain.SimulationStatusView {
	view := &domain.SimulationStatusView{ID: sim.ID, Status: sim.Status}

	switch sim.Status {
	case domain.SimulationStatusRunning:
		total := sim.Config.Steps
		current := 0
		if sim.Progress != nil {
			current = sim.Progress.CurrentStep
		}
		if current > total {
			current = total
		}
		pct := 0
		if total > 0 {
			pct = current * 100 / total
		}
		view.Progress = intPtr(pct)
		view.CurrentStep = intPtr(current)
		view.TotalSteps = intPtr(total)
	case domain.SimulationStatusCompleted:
		view.Progress = intPtr(100)
		view.CurrentStep = intPtr(sim.Config.Steps)
		view.TotalSteps = intPtr(sim.Config.Steps)
	case domain.SimulationStatusFailed:
		if sim.Progress != nil {
			view.CurrentStep = intPtr(sim.Progress.CurrentStep)
			view.TotalSteps = intPtr(sim.Config.Steps)
		}
		view.Message = sim.Error
	}
	return view
}

func intPtr(v int) *int { return &v }

// GetStatus returns the projected status of a simulation.
func (s *Service) GetStatus(ctx context.Context, id string) (*domain.SimulationStatusView, error) {
	sim, err := s.GetSimulation(ctx, id)
	if err != nil {
		return nil, err
	}
	return ProjectStatus(sim), nil
}
