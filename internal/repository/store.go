// Package store provides persistence for simulations, agents and lifecycle events.
package store

import (
	"context"
	"time"

	"github.com/xiaot623/gogo/simulator/internal/domain"
)

// SimulationStore persists full simulation snapshots keyed by id.
// Writes replace the whole record; Get returns nil, nil when absent.
type SimulationStore interface {
	Put(ctx context.Context, sim *domain.Simulation) error
	// Replace overwrites an existing record and fails with domain.ErrNotFound
	// when the record has been deleted.
	Replace(ctx context.Context, sim *domain.Simulation) error
	Get(ctx context.Context, id string) (*domain.Simulation, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*domain.Simulation, error)
}

// AgentStore persists agent personas.
type AgentStore interface {
	CreateAgent(ctx context.Context, agent *domain.Agent) error
	GetAgent(ctx context.Context, agentID string) (*domain.Agent, error)
	ListAgents(ctx context.Context) ([]domain.Agent, error)
	UpdateAgentPersona(ctx context.Context, agentID string, persona domain.Persona, updatedAt time.Time) (bool, error)
	DeleteAgent(ctx context.Context, agentID string) (bool, error)
}

// EventStore persists the lifecycle event trail.
type EventStore interface {
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, simulationID string, afterTs int64, types []string, limit int) ([]domain.Event, error)
}

// Store is the relational store backing agents and the event trail.
type Store interface {
	AgentStore
	EventStore
}
