package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Step bounds for SimulationConfig.Steps.
const (
	MinSteps     = 1
	MaxSteps     = 50
	DefaultSteps = 5
)

// SimulationConfig is fixed when the simulation is created.
type SimulationConfig struct {
	Steps           int             `json:"steps"`
	InitialPrompt   string          `json:"initial_prompt"`
	EnvironmentType EnvironmentType `json:"environment_type"`
	ParallelActions bool            `json:"parallel_actions"`
	CacheEnabled    bool            `json:"cache_enabled"`
}

// InteractionMessage is a single message produced during a simulation.
type InteractionMessage struct {
	Timestamp   time.Time `json:"timestamp"`
	AgentID     string    `json:"agent_id"`
	AgentName   string    `json:"agent_name"`
	MessageType string    `json:"message_type"` // e.g. TALK, THOUGHT, DONE
	Content     string    `json:"content"`
}

// SimulationResult is the outcome of a completed simulation.
type SimulationResult struct {
	Interactions  []InteractionMessage `json:"interactions"`
	Summary       string               `json:"summary,omitempty"`
	ExtractedData map[string]any       `json:"extracted_data,omitempty"`
}

// Progress is the last step reported by the engine while running.
type Progress struct {
	CurrentStep int `json:"current_step"`
	TotalSteps  int `json:"total_steps"`
}

// Simulation is the persisted record of one multi-agent job.
type Simulation struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	AgentIDs    []string          `json:"agent_ids"`
	Config      SimulationConfig  `json:"config"`
	Status      SimulationStatus  `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Progress    *Progress         `json:"progress,omitempty"`
	Result      *SimulationResult `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// NewSimulation returns a PENDING simulation.
func NewSimulation(id, name string, agentIDs []string, cfg SimulationConfig, now time.Time) *Simulation {
	ids := make([]string, len(agentIDs))
	copy(ids, agentIDs)
	return &Simulation{
		ID:        id,
		Name:      name,
		AgentIDs:  ids,
		Config:    cfg,
		Status:    SimulationStatusPending,
		CreatedAt: now.UTC(),
	}
}

// MarkRunning moves a PENDING simulation to RUNNING.
func (s *Simulation) MarkRunning(now time.Time) error {
	if err := s.transition(SimulationStatusRunning); err != nil {
		return err
	}
	started := now.UTC()
	s.StartedAt = &started
	return nil
}

// MarkCompleted moves a RUNNING simulation to COMPLETED with its result.
func (s *Simulation) MarkCompleted(now time.Time, result *SimulationResult) error {
	if err := s.transition(SimulationStatusCompleted); err != nil {
		return err
	}
	if result == nil {
		result = &SimulationResult{}
	}
	if result.Interactions == nil {
		result.Interactions = []InteractionMessage{}
	}
	completed := now.UTC()
	s.CompletedAt = &completed
	s.Result = result
	s.Error = ""
	return nil
}

// MarkFailed moves a RUNNING simulation to FAILED with a human readable cause.
func (s *Simulation) MarkFailed(now time.Time, cause string) error {
	if err := s.transition(SimulationStatusFailed); err != nil {
		return err
	}
	if cause == "" {
		cause = "simulation failed"
	}
	completed := now.UTC()
	s.CompletedAt = &completed
	s.Result = nil
	s.Error = cause
	return nil
}

func (s *Simulation) transition(next SimulationStatus) error {
	if !s.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: cannot move simulation from %s to %s", ErrConflict, s.Status, next)
	}
	s.Status = next
	return nil
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (s *Simulation) Clone() *Simulation {
	if s == nil {
		return nil
	}
	c := *s
	c.AgentIDs = append([]string(nil), s.AgentIDs...)
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	if s.Progress != nil {
		p := *s.Progress
		c.Progress = &p
	}
	if s.Result != nil {
		c.Result = s.Result.Clone()
	}
	return &c
}

// Clone returns a deep copy of the result. ExtractedData is copied through
// JSON since its shape is defined by the engine.
func (r *SimulationResult) Clone() *SimulationResult {
	if r == nil {
		return nil
	}
	c := &SimulationResult{Summary: r.Summary}
	if r.Interactions != nil {
		c.Interactions = append([]InteractionMessage(nil), r.Interactions...)
	}
	if r.ExtractedData != nil {
		raw, err := json.Marshal(r.ExtractedData)
		if err == nil {
			var data map[string]any
			if json.Unmarshal(raw, &data) == nil {
				c.ExtractedData = data
			}
		}
		if c.ExtractedData == nil {
			c.ExtractedData = make(map[string]any, len(r.ExtractedData))
			for k, v := range r.ExtractedData {
				c.ExtractedData[k] = v
			}
		}
	}
	return c
}

// SimulationStatusView is the user facing progress projection of a simulation.
type SimulationStatusView struct {
	ID          string           `json:"id"`
	Status      SimulationStatus `json:"status"`
	Progress    *int             `json:"progress,omitempty"`
	CurrentStep *int             `json:"current_step,omitempty"`
	TotalSteps  *int             `json:"total_steps,omitempty"`
	Message     string           `json:"message,omitempty"`
}

// CreateSimulationRequest carries the caller supplied fields of a new simulation.
type CreateSimulationRequest struct {
	Name     string           `json:"name"`
	AgentIDs []string         `json:"agent_ids"`
	Config   SimulationConfig `json:"config"`
}
