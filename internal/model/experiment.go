package model

import "time"

// SimulationState is the lifecycle state reported by the execution service.
type SimulationState string

const (
	StateCreated      SimulationState = "Created"
	StateCommissioned SimulationState = "Commissioned"
	StateRunning      SimulationState = "Running"
	StateSucceeded    SimulationState = "Succeeded"
	StateFailed       SimulationState = "Failed"
	StateCanceled     SimulationState = "Canceled"
)

// IsTerminal reports whether the state can no longer change.
func (s SimulationState) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCanceled:
		return true
	}
	return false
}

// String returns the state name
func (s SimulationState) String() string {
	return string(s)
}

// Experiment groups the simulations of one sweep.
type Experiment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Simulation is one run of the engine with its sweep tags.
type Simulation struct {
	ID           string          `json:"id"`
	ExperimentID string          `json:"experiment_id"`
	Tags         map[string]any  `json:"tags"`
	State        SimulationState `json:"state"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Tag returns a tag value and whether it was set.
func (s Simulation) Tag(key string) (any, bool) {
	v, ok := s.Tags[key]
	return v, ok
}
