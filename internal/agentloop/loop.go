// Package agentloop implements the per-agent action loop: one goroutine
// per agent, consuming its own todo queue, resolving an executor
// through the router, and handing the result to the synchronizer —
// plus the parallel message-receipt path invoked by the dispatcher.
//
// Modeled on the tool.Registry-consumer goroutine convention
// (internal/mcp/manager.go's one-worker-per-resource pattern),
// generalized to one worker per agent over a blocking step queue.
package agentloop

import (
	"context"
	"encoding/json"
	"log"

	"github.com/motern88/allen/internal/executor"
	"github.com/motern88/allen/internal/router"
	"github.com/motern88/allen/internal/state"
)

// Synchronizer is the capability the loop needs from
// internal/syncstate.Synchronizer, declared here as a one-method
// interface; this package does not import internal/syncstate.
type Synchronizer interface {
	Sync(output executor.Output) error
}

// Loop runs one agent's action loop on its own goroutine.
// It implements state.Agent so the dispatcher and synchronizer can refer
// to it without importing agentloop.
type Loop struct {
	AgentState *state.AgentState

	router *router.Router
	sync   Synchronizer
}

// New constructs a Loop for agentState. Call Run to start its goroutine.
func New(agentState *state.AgentState, r *router.Router, sync Synchronizer) *Loop {
	return &Loop{AgentState: agentState, router: r, sync: sync}
}

// ID implements state.Agent.
func (l *Loop) ID() string { return l.AgentState.ID }

// State implements state.Agent.
func (l *Loop) State() *state.AgentState { return l.AgentState }

// EnqueueStep implements state.Agent: registers step in this agent's
// AgentStep through AddStep, which also queues it when it is still at
// StepInit.
func (l *Loop) EnqueueStep(step *state.Step) {
	l.AgentState.Steps.AddStep(step)
}

// ReceiveMessage implements state.Agent's message-delivery path. For an
// LLM agent this enqueues a reply_message step with the message
// embedded as its goal; for a human agent it is recorded in
// conversation_privates and surfaced to the UI with no step created.
func (l *Loop) ReceiveMessage(ctx context.Context, msg state.Message) {
	if l.AgentState.IsHuman() {
		l.AgentState.AppendPrivateMessage(msg.SenderID, msg)
		return
	}

	stageID := msg.StageRelative
	if stageID == state.NoRelative {
		stageID = ""
	}

	step := state.NewStep(msg.TaskID, stageID, l.AgentState.ID, "reply to message from "+msg.SenderID, state.StepTypeSkill, "reply_message")
	step.TextContent = msg.Content
	if msg.NeedReply || msg.Waiting {
		step.ReplyToAgentID = msg.SenderID
		step.ReplyWaitingID = msg.WaitingID
	}
	l.EnqueueStep(step)
	l.AgentState.RecordWorkingMemory(msg.TaskID, stageID, step.ID)
}

// Run blocks, consuming steps from the agent's todo queue until ctx is
// cancelled or a shutdown sentinel step id is popped. Intended to run on
// its own goroutine.
func (l *Loop) Run(ctx context.Context) {
	for {
		stepID, ok := l.AgentState.Steps.Todo.Pop(ctx)
		if !ok {
			return
		}
		if stepID == ShutdownSentinel {
			return
		}
		l.runStep(ctx, stepID)
	}
}

// ShutdownSentinel is the step id that terminates a Loop's Run when
// enqueued in place of a real step.
const ShutdownSentinel = "__shutdown__"

func (l *Loop) runStep(ctx context.Context, stepID string) {
	steps := l.AgentState.Steps.GetStep(state.StepFilter{StepID: stepID})
	if len(steps) == 0 {
		log.Printf("[agentloop] agent %s: unknown step id %s", l.AgentState.ID, stepID)
		return
	}
	step := steps[0]

	exec, err := l.router.Resolve(string(step.Type), step.ExecutorName)
	if err != nil {
		log.Printf("[agentloop] agent %s: %v", l.AgentState.ID, err)
		l.AgentState.Steps.UpdateStepStatus(step.ID, state.StepFailed)
		return
	}

	l.AgentState.SetWorkingState(state.WorkingWorking)
	raw, err := exec.Execute(ctx, step.ID, l.AgentState)
	l.AgentState.SetWorkingState(state.WorkingIdle)
	if err != nil {
		log.Printf("[agentloop] agent %s: step %s failed: %v", l.AgentState.ID, step.ID, err)
	}

	output, ok := raw.(executor.Output)
	if !ok {
		return
	}
	if err := l.sync.Sync(output); err != nil {
		data, _ := json.Marshal(output)
		log.Printf("[agentloop] agent %s: sync failed for step %s: %v; execute_output: %s", l.AgentState.ID, step.ID, err, data)
	}
}

var _ state.Agent = (*Loop)(nil)
