package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xiaot623/gogo/simulator/internal/domain"
)

// InterruptedByRestart is the error recorded on orphaned simulations.
const InterruptedByRestart = "interrupted by restart"

// ReconcileOrphans marks every RUNNING simulation without an in-flight
// execution as FAILED. It returns the number of simulations reconciled.
func (s *Service) ReconcileOrphans(ctx context.Context) (int, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	sims, err := s.simulations.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list simulations: %w", err)
	}

	reconciled := 0
	for _, sim := range sims {
		if sim.Status != domain.SimulationStatusRunning || s.registry.Contains(sim.ID) {
			continue
		}
		if err := sim.MarkFailed(s.now(), InterruptedByRestart); err != nil {
			return reconciled, err
		}
		if err := s.simulations.Replace(ctx, sim); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return reconciled, fmt.Errorf("failed to reconcile simulation %s: %w", sim.ID, err)
		}
		reconciled++
		s.logger.Warn("reconciled orphaned simulation", "simulation_id", sim.ID)
		s.emit(ctx, sim.ID, domain.EventTypeSimulationReconciled, domain.StatusChangedPayload{Status: sim.Status, Error: sim.Error})
	}
	return reconciled, nil
}
