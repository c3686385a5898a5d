package state

import "sync"

// AgentStep is the per-agent step container: a FIFO queue of step ids
// awaiting execution plus the full step list, addressable by id,
// stage, or task.
//
// Modeled on tool.Registry's locking convention
// (internal/tool/registry.go): a single sync.RWMutex guarding a map,
// reads taken under RLock, mutating operations under Lock.
type AgentStep struct {
	AgentID string

	mu    sync.RWMutex
	steps map[string]*Step // step id -> step
	Todo  *StepQueue
}

// NewAgentStep creates an empty container for the given agent.
func NewAgentStep(agentID string) *AgentStep {
	return &AgentStep{
		AgentID: agentID,
		steps:   make(map[string]*Step),
		Todo:    NewStepQueue(),
	}
}

// AddStep appends step to the full list and, unless it is already past
// StepInit (e.g. a tool step parked at StepPending awaiting instruction
// fill), enqueues it to Todo.
func (a *AgentStep) AddStep(step *Step) {
	a.mu.Lock()
	a.steps[step.ID] = step
	past := step.ExecutionState != StepInit
	a.mu.Unlock()

	if !past {
		a.Todo.Push(step.ID)
	}
}

// Enqueue pushes an id onto Todo, whatever its state, without
// registering a step; ShutdownSentinel is pushed this way. The
// dispatcher and synchronizer add steps through AddStep.
func (a *AgentStep) Enqueue(stepID string) {
	a.Todo.Push(stepID)
}

// StepFilter selects which of {StepID, StageID, TaskID} to match; zero
// values are wildcards.
type StepFilter struct {
	StepID  string
	StageID string
	TaskID  string
}

// GetStep returns every step matching the given filter.
func (a *AgentStep) GetStep(f StepFilter) []*Step {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if f.StepID != "" {
		if s, ok := a.steps[f.StepID]; ok {
			return []*Step{s}
		}
		return nil
	}

	var out []*Step
	for _, s := range a.steps {
		if f.StageID != "" && s.StageID != f.StageID {
			continue
		}
		if f.TaskID != "" && s.TaskID != f.TaskID {
			continue
		}
		out = append(out, s)
	}
	return out
}

// UpdateStepStatus mutates a single step's execution state in place.
func (a *AgentStep) UpdateStepStatus(stepID string, state StepState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.steps[stepID]; ok {
		s.ExecutionState = state
	}
}

// Historical returns every step that has reached a terminal state,
// for display/audit purposes.
func (a *AgentStep) Historical() []*Step {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Step, 0, len(a.steps))
	for _, s := range a.steps {
		if s.ExecutionState == StepFinished || s.ExecutionState == StepFailed {
			out = append(out, s)
		}
	}
	return out
}

// QueueSize renders the Todo queue's current length, used where the
// queue itself is not directly serializable.
func (a *AgentStep) QueueSize() int {
	return a.Todo.Len()
}
