package mas

import (
	"context"

	"github.com/motern88/allen/internal/state"
)

// HumanAgent implements state.Agent for an operator-bound participant.
// Unlike agentloop.Loop it runs no action-loop goroutine: a human never
// auto-executes a step, so EnqueueStep only makes a step visible to the
// accessor surface (internal/api) for the operator to act on, and
// ReceiveMessage only records the message for display. Replies travel
// back out through the system's dispatcher, driven by an API call
// rather than a popped queue entry.
type HumanAgent struct {
	agentState *state.AgentState
}

// NewHumanAgent wraps an already-constructed human AgentState.
func NewHumanAgent(agentState *state.AgentState) *HumanAgent {
	return &HumanAgent{agentState: agentState}
}

// ID implements state.Agent.
func (h *HumanAgent) ID() string { return h.agentState.ID }

// State implements state.Agent.
func (h *HumanAgent) State() *state.AgentState { return h.agentState }

// EnqueueStep implements state.Agent: parks the step for the operator;
// nothing pops it automatically.
func (h *HumanAgent) EnqueueStep(step *state.Step) {
	h.agentState.Steps.AddStep(step)
}

// ReceiveMessage implements state.Agent: records the message in the
// sender's private conversation for the operator to read and reply to
// through the accessor surface.
func (h *HumanAgent) ReceiveMessage(ctx context.Context, msg state.Message) {
	h.agentState.AppendPrivateMessage(msg.SenderID, msg)
}

var _ state.Agent = (*HumanAgent)(nil)
