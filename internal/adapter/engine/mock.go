package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/xiaot623/gogo/simulator/internal/domain"
)

// MockEngine is a deterministic engine for local development and tests.
// Every step each agent produces one TALK interaction.
type MockEngine struct {
	// StepDelay is slept between steps. Zero means no delay.
	StepDelay time.Duration
	Now       func() time.Time
}

// NewMockEngine creates a new mock engine.
func NewMockEngine() *MockEngine {
	return &MockEngine{Now: time.Now}
}

// Name returns the engine name.
func (e *MockEngine) Name() string { return "mock" }

// Execute runs the simulation.
func (e *MockEngine) Execute(ctx context.Context, req Request, progress ProgressFunc) (*domain.SimulationResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	now := e.Now
	if now == nil {
		now = time.Now
	}

	steps := req.Config.Steps
	interactions := make([]domain.InteractionMessage, 0, steps*len(req.Agents))
	for step := 1; step <= steps; step++ {
		if e.StepDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.StepDelay):
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i, agent := range req.Agents {
			content := fmt.Sprintf("[step %d] %s shares a thought on the topic.", step, agent.Persona.Name)
			if step == 1 && i == 0 {
				content = fmt.Sprintf("[step %d] %s responds to: %s", step, agent.Persona.Name, req.Config.InitialPrompt)
			}
			interactions = append(interactions, domain.InteractionMessage{
				Timestamp:   now().UTC(),
				AgentID:     agent.ID,
				AgentName:   agent.Persona.Name,
				MessageType: domain.MessageTypeTalk,
				Content:     content,
			})
		}
		reportProgress(progress, step, steps)
	}

	return &domain.SimulationResult{
		Interactions: interactions,
		Summary:      fmt.Sprintf("Simulation completed with %d steps", steps),
		ExtractedData: map[string]any{
			"steps":       steps,
			"agents":      len(req.Agents),
			"environment": string(req.Config.EnvironmentType),
		},
	}, nil
}
