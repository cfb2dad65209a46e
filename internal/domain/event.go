package domain

import "encoding/json"

// Event is one entry of a simulation's lifecycle trail.
type Event struct {
	EventID      string          `json:"event_id"`
	SimulationID string          `json:"simulation_id"`
	Ts           int64           `json:"ts"` // Unix milliseconds
	Type         EventType       `json:"type"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// StatusChangedPayload is attached to lifecycle transition events.
type StatusChangedPayload struct {
	Status SimulationStatus `json:"status"`
	Error  string           `json:"error,omitempty"`
}

// ProgressPayload is attached to simulation_progress events.
type ProgressPayload struct {
	CurrentStep int `json:"current_step"`
	TotalSteps  int `json:"total_steps"`
}

// Live message types pushed to subscribers of a simulation.
const (
	LiveMessageStatus = "status"
	LiveMessageEvent  = "event"
)

// LiveMessage is the envelope of every frame pushed to a subscriber.
type LiveMessage struct {
	Type         string      `json:"type"`
	SimulationID string      `json:"simulation_id"`
	Ts           int64       `json:"ts"`
	Data         interface{} `json:"data"`
}
