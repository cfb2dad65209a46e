// Package domain defines the core domain models for the simulator.
package domain

// SimulationStatus represents the lifecycle status of a simulation.
type SimulationStatus string

const (
	SimulationStatusPending   SimulationStatus = "pending"
	SimulationStatusRunning   SimulationStatus = "running"
	SimulationStatusCompleted SimulationStatus = "completed"
	SimulationStatusFailed    SimulationStatus = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s SimulationStatus) IsTerminal() bool {
	return s == SimulationStatusCompleted || s == SimulationStatusFailed
}

// CanTransitionTo reports whether next is a legal successor of s.
// PENDING -> RUNNING -> {COMPLETED, FAILED}; terminal states have no successors.
func (s SimulationStatus) CanTransitionTo(next SimulationStatus) bool {
	switch s {
	case SimulationStatusPending:
		return next == SimulationStatusRunning
	case SimulationStatusRunning:
		return next == SimulationStatusCompleted || next == SimulationStatusFailed
	}
	return false
}

// Valid reports whether s is a known status.
func (s SimulationStatus) Valid() bool {
	switch s {
	case SimulationStatusPending, SimulationStatusRunning, SimulationStatusCompleted, SimulationStatusFailed:
		return true
	}
	return false
}

// EnvironmentType is the kind of world a simulation runs in.
type EnvironmentType string

const (
	EnvironmentChatRoom   EnvironmentType = "chat_room"
	EnvironmentFocusGroup EnvironmentType = "focus_group"
	EnvironmentInterview  EnvironmentType = "interview"
	EnvironmentCustom     EnvironmentType = "custom"
)

// Valid reports whether e is a known environment type.
func (e EnvironmentType) Valid() bool {
	switch e {
	case EnvironmentChatRoom, EnvironmentFocusGroup, EnvironmentInterview, EnvironmentCustom:
		return true
	}
	return false
}

// Message types produced by simulation engines.
const (
	MessageTypeTalk    = "TALK"
	MessageTypeThought = "THOUGHT"
	MessageTypeDone    = "DONE"
)

// EventType represents the type of a lifecycle event.
type EventType string

const (
	EventTypeSimulationCreated    EventType = "simulation_created"
	EventTypeSimulationStarted    EventType = "simulation_started"
	EventTypeSimulationProgress   EventType = "simulation_progress"
	EventTypeSimulationCompleted  EventType = "simulation_completed"
	EventTypeSimulationFailed     EventType = "simulation_failed"
	EventTypeSimulationDeleted    EventType = "simulation_deleted"
	EventTypeSimulationReconciled EventType = "simulation_reconciled"
)
