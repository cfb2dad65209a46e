package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/simulator/internal/domain"
	"github.com/xiaot623/gogo/simulator/policy"
)

// CreateSimulation validates the request and stores a new PENDING simulation.
func (s *Service) CreateSimulation(ctx context.Context, req domain.CreateSimulationRequest) (*domain.Simulation, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Config.EnvironmentType == "" {
		req.Config.EnvironmentType = domain.EnvironmentChatRoom
	}
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	if s.policyEngine != nil {
		decision, reason, err := s.policyEngine.EvaluateSimulation(ctx, policy.SimulationInput{
			Name:            req.Name,
			AgentIDs:        req.AgentIDs,
			Steps:           req.Config.Steps,
			InitialPrompt:   req.Config.InitialPrompt,
			EnvironmentType: string(req.Config.EnvironmentType),
			MaxAgents:       s.config.MaxAgentsPerSimulation,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate policy: %w", err)
		}
		if decision == policy.DecisionBlock {
			return nil, fmt.Errorf("%w: %s", domain.ErrPolicyDenied, reason)
		}
	}

	sim := domain.NewSimulation(uuid.New().String(), req.Name, req.AgentIDs, req.Config, s.now())
	if err := s.simulations.Put(ctx, sim); err != nil {
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}
	s.logger.Info("simulation created", "simulation_id", sim.ID, "agents", len(sim.AgentIDs), "steps", sim.Config.Steps)
	s.emit(ctx, sim.ID, domain.EventTypeSimulationCreated, domain.StatusChangedPayload{Status: sim.Status})

	return sim.Clone(), nil
}

func validateCreate(req domain.CreateSimulationRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if len(req.AgentIDs) == 0 {
		return fmt.Errorf("%w: agent_ids must not be empty", domain.ErrInvalidInput)
	}
	for i, id := range req.AgentIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: agent_ids[%d] is empty", domain.ErrInvalidInput, i)
		}
	}
	if req.Config.Steps < domain.MinSteps || req.Config.Steps > domain.MaxSteps {
		return fmt.Errorf("%w: steps must be between %d and %d", domain.ErrInvalidInput, domain.MinSteps, domain.MaxSteps)
	}
	if strings.TrimSpace(req.Config.InitialPrompt) == "" {
		return fmt.Errorf("%w: initial_prompt is required", domain.ErrInvalidInput)
	}
	if !req.Config.EnvironmentType.Valid() {
		return fmt.Errorf("%w: unknown environment_type %q", domain.ErrInvalidInput, req.Config.EnvironmentType)
	}
	return nil
}

// GetSimulation returns a simulation by id.
func (s *Service) GetSimulation(ctx context.Context, id string) (*domain.Simulation, error) {
	sim, err := s.simulations.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get simulation: %w", err)
	}
	if sim == nil {
		return nil, fmt.Errorf("simulation %s: %w", id, domain.ErrNotFound)
	}
	return sim, nil
}

// ListSimulations returns every simulation, newest first.
func (s *Service) ListSimulations(ctx context.Context) ([]*domain.Simulation, error) {
	sims, err := s.simulations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	return sims, nil
}

// DeleteSimulation removes a simulation in any status and reports whether
// it existed. A running execution keeps going but its later writes are dropped.
func (s *Service) DeleteSimulation(ctx context.Context, id string) (bool, error) {
	deleted, err := s.simulations.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete simulation: %w", err)
	}
	if deleted {
		s.logger.Info("simulation deleted", "simulation_id", id, "running", s.registry.Contains(id))
		s.emit(ctx, id, domain.EventTypeSimulationDeleted, struct{}{})
	}
	return deleted, nil
}

// GetResults returns the simulation when it has completed.
func (s *Service) GetResults(ctx context.Context, id string) (*domain.Simulation, error) {
	sim, err := s.GetSimulation(ctx, id)
	if err != nil {
		return nil, err
	}
	if sim.Status != domain.SimulationStatusCompleted {
		return nil, fmt.Errorf("%w (status: %s)", domain.ErrNotCompleted, sim.Status)
	}
	return sim, nil
}
