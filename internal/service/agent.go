package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/simulator/internal/domain"
)

func (s *Service) CreateAgent(ctx context.Context, req domain.CreateAgentRequest) (*domain.Agent, error) {
	req.Persona.Name = strings.TrimSpace(req.Persona.Name)
	if req.Persona.Name == "" {
		return nil, fmt.Errorf("%w: persona.name is required", domain.ErrInvalidInput)
	}
	if req.Type == "" {
		req.Type = domain.DefaultAgentType
	}

	now := s.now().UTC()
	agent := &domain.Agent{
		ID:        uuid.New().String(),
		Type:      req.Type,
		Persona:   req.Persona,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return agent, nil
}

func (s *Service) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	if agents == nil {
		agents = []domain.Agent{}
	}
	return agents, nil
}

// GetAgent returns nil, nil when the agent does not exist.
func (s *Service) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	agent, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return agent, nil
}

// ResolveAgent looks an agent up for execution. It fails with
// domain.ErrNotFound when the agent does not exist.
func (s *Service) ResolveAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	agent, err := s.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, fmt.Errorf("agent %s: %w", agentID, domain.ErrNotFound)
	}
	return agent, nil
}

func (s *Service) UpdateAgent(ctx context.Context, agentID string, req domain.UpdateAgentRequest) (*domain.Agent, error) {
	if req.Persona == nil {
		return s.ResolveAgent(ctx, agentID)
	}
	persona := *req.Persona
	persona.Name = strings.TrimSpace(persona.Name)
	if persona.Name == "" {
		return nil, fmt.Errorf("%w: persona.name is required", domain.ErrInvalidInput)
	}

	updated, err := s.store.UpdateAgentPersona(ctx, agentID, persona, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}
	if !updated {
		return nil, fmt.Errorf("agent %s: %w", agentID, domain.ErrNotFound)
	}
	return s.ResolveAgent(ctx, agentID)
}

func (s *Service) DeleteAgent(ctx context.Context, agentID string) (bool, error) {
	deleted, err := s.store.DeleteAgent(ctx, agentID)
	if err != nil {
		return false, fmt.Errorf("failed to delete agent: %w", err)
	}
	return deleted, nil
}
