package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xiaot623/gogo/simulator/internal/adapter/engine"
	"github.com/xiaot623/gogo/simulator/internal/domain"
	"github.com/xiaot623/gogo/simulator/internal/logging"
)

// StartSimulation moves a PENDING simulation to RUNNING and launches its
// execution in the background. It returns the RUNNING snapshot immediately.
func (s *Service) StartSimulation(ctx context.Context, id string) (*domain.Simulation, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	sim, err := s.GetSimulation(ctx, id)
	if err != nil {
		return nil, err
	}
	if sim.Status != domain.SimulationStatusPending {
		return nil, fmt.Errorf("%w: simulation is already %s", domain.ErrConflict, sim.Status)
	}
	if err := sim.MarkRunning(s.now()); err != nil {
		return nil, err
	}
	if _, ok := s.registry.TryRegister(id); !ok {
		return nil, fmt.Errorf("%w: simulation %s is already executing", domain.ErrConflict, id)
	}
	if err := s.simulations.Replace(ctx, sim); err != nil {
		s.registry.Deregister(id)
		return nil, fmt.Errorf("failed to mark simulation running: %w", err)
	}

	s.logger.Info("simulation started", "simulation_id", id, "engine", s.EngineName())
	s.emit(ctx, id, domain.EventTypeSimulationStarted, domain.StatusChangedPayload{Status: sim.Status})
	s.publishStatus(sim)

	// Detach from the request: the execution outlives it.
	go s.execute(context.WithoutCancel(ctx), sim.Clone())

	return sim, nil
}

// execution owns the in-memory snapshot of one running simulation and
// serializes every write the runner makes for it.
type execution struct {
	svc    *Service
	logger *logging.Logger

	mu       sync.Mutex
	sim      *domain.Simulation
	finished bool
	deleted  bool
}

// execute runs the simulation body. The registry entry is always released
// as the final step, after the terminal write.
func (s *Service) execute(ctx context.Context, sim *domain.Simulation) {
	run := &execution{svc: s, sim: sim, logger: s.logger.With("simulation_id", sim.ID)}
	defer func() {
		if r := recover(); r != nil {
			run.logger.Error("panic while finalizing simulation", "panic", r)
		}
		s.registry.Deregister(sim.ID)
	}()

	result, err := s.runSafely(ctx, run)
	run.finish(ctx, result, err)
}

// runSafely resolves agents and invokes the engine, converting panics into errors.
func (s *Service) runSafely(ctx context.Context, run *execution) (result *domain.SimulationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("failed to execute simulation: panic: %v", r)
		}
	}()

	sim := run.snapshot()
	agents, err := s.resolveAgents(ctx, sim.AgentIDs)
	if err != nil {
		return nil, err
	}
	if s.engine == nil {
		return nil, fmt.Errorf("failed to execute simulation: no engine configured")
	}

	result, err = s.engine.Execute(ctx, engine.Request{
		SimulationID: sim.ID,
		Name:         sim.Name,
		Agents:       agents,
		Config:       sim.Config,
	}, func(step, total int) {
		run.progress(ctx, step, total)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute simulation: %w", err)
	}
	return result, nil
}

func (s *Service) resolveAgents(ctx context.Context, ids []string) ([]domain.Agent, error) {
	agents := make([]domain.Agent, 0, len(ids))
	for _, id := range ids {
		agent, err := s.ResolveAgent(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("agent %s not found", id)
			}
			return nil, fmt.Errorf("failed to resolve agent %s: %w", id, err)
		}
		agents = append(agents, *agent)
	}
	return agents, nil
}

func (x *execution) snapshot() *domain.Simulation {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.sim.Clone()
}

// progress persists a RUNNING snapshot with the reported step. Reports that
// arrive after the terminal write, or that do not advance, are dropped.
func (x *execution) progress(ctx context.Context, step, total int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.finished || x.deleted {
		return
	}
	if x.sim.Progress != nil && step <= x.sim.Progress.CurrentStep {
		return
	}
	x.sim.Progress = &domain.Progress{CurrentStep: step, TotalSteps: total}
	if err := x.persist(ctx); err != nil {
		return
	}
	x.svc.emit(ctx, x.sim.ID, domain.EventTypeSimulationProgress, domain.ProgressPayload{CurrentStep: step, TotalSteps: total})
	x.svc.publishStatus(x.sim)
}

// finish writes the terminal state. A COMPLETED snapshot that cannot be
// persisted is replaced by a FAILED one so the record never stays RUNNING.
func (x *execution) finish(ctx context.Context, result *domain.SimulationResult, runErr error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.finished = true
	if x.deleted {
		x.logger.Warn("simulation deleted while running, dropping result")
		return
	}

	if runErr == nil {
		running := x.sim.Clone()
		if err := x.sim.MarkCompleted(x.svc.now(), result); err != nil {
			x.logger.Error("invalid terminal transition", "error", err)
			return
		}
		if err := x.persist(ctx); err != nil {
			if x.deleted {
				return
			}
			x.sim = running
			runErr = fmt.Errorf("failed to persist result: %w", err)
		} else {
			x.logger.Info("simulation completed", "interactions", len(x.sim.Result.Interactions))
			x.svc.emit(ctx, x.sim.ID, domain.EventTypeSimulationCompleted, domain.StatusChangedPayload{Status: x.sim.Status})
			x.svc.publishStatus(x.sim)
			return
		}
	}

	if err := x.sim.MarkFailed(x.svc.now(), runErr.Error()); err != nil {
		x.logger.Error("invalid terminal transition", "error", err)
		return
	}
	if err := x.persist(ctx); err != nil {
		return
	}
	x.logger.Warn("simulation failed", "error", runErr)
	x.svc.emit(ctx, x.sim.ID, domain.EventTypeSimulationFailed, domain.StatusChangedPayload{Status: x.sim.Status, Error: x.sim.Error})
	x.svc.publishStatus(x.sim)
}

// persist replaces the stored record with the current snapshot. It must be
// called with x.mu held. A missing record means the simulation was deleted.
func (x *execution) persist(ctx context.Context) error {
	err := x.svc.simulations.Replace(ctx, x.sim.Clone())
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		x.deleted = true
		x.logger.Warn("simulation deleted while running, dropping write", "status", x.sim.Status)
		return err
	}
	x.logger.Error("failed to persist simulation", "status", x.sim.Status, "error", err)
	return err
}
