// Package state defines the four-level entity model shared by every
// subsystem of Allen: Task, Stage, Step, and AgentState, plus the
// message types that flow between agents and the task's shared log.
package state

import "github.com/google/uuid"

// NewID returns a fresh random entity identifier.
// Centralized so every entity kind (task, stage, step, agent) uses the
// same id format.
func NewID() string {
	return uuid.NewString()
}
