// Package skill implements the concrete LLM-driven executors:
// stage_planning, planning, instruction_generation, quick_think, and
// reply_message. Each follows the executor.Phase Prep/Exec/Post
// contract and the fixed prompt-assembly convention in
// executor.Assemble.
//
// Modeled on the internal/agent decide/think/answer node trio
// (core.BaseNode[State,PrepResult,ExecResults] implementations): same
// call-the-model-then-parse-a-delimited-block shape, generalized to
// this runtime's step/agent_state vocabulary.
package skill

import (
	"context"
	"errors"
	"fmt"

	"github.com/motern88/allen/internal/executor"
	"github.com/motern88/allen/internal/state"
)

// callLLM appends prompt as a user turn to the agent's rolling dialogue
// context, invokes its model client, and appends the reply in turn —
// the retained turns are re-sent on every call; the DialogueContext's
// capacity bounds them, evicting the oldest.
func callLLM(ctx context.Context, agentState *state.AgentState, prompt string) (string, error) {
	if agentState.LLM == nil {
		return "", executor.NewError(executor.ErrKindLLMTransport, fmt.Sprintf("agent %s has no LLM client", agentState.ID), nil)
	}
	agentState.Dialogue.Append(state.DialogueTurn{Role: "user", Content: prompt})
	reply, err := agentState.LLM.CallLLM(ctx, agentState.Dialogue.Turns())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", executor.NewError(executor.ErrKindLLMTimeout, "LLM call timed out", err)
		}
		return "", executor.NewError(executor.ErrKindLLMTransport, "LLM call failed", err)
	}
	agentState.Dialogue.Append(reply)
	return reply.Content, nil
}

// PlanAction is the action field a planning-style return_format carries,
// naming whether the agent has more work queued for itself.
//
// Named after the core.Action convention (internal/core/types.go)
// rather than a bare bool, since a third "done-with-error" outcome may be
// added without reshaping every skill's return format.
type PlanAction string

const (
	ActionContinue PlanAction = "continue"
	ActionDone     PlanAction = "done"
)

// continuationOutput builds the execute_output for a step that queues
// more work for its own agent rather than finishing its stage
// responsibility, overriding the Run default of "finished" with
// "working" so the stage stays open until a later step reports done.
func continuationOutput(step *state.Step, agentState *state.AgentState, summary string) executor.Output {
	var out executor.Output
	if step.StageID != "" {
		out.UpdateStageAgentState = &executor.StageAgentStateUpdate{
			TaskID:  step.TaskID,
			StageID: step.StageID,
			AgentID: step.AgentID,
			State:   state.ParticipationWorking,
		}
	}
	out.SendSharedMessage = &executor.SharedMessageUpdate{
		TaskID:  step.TaskID,
		AgentID: step.AgentID,
		Role:    agentState.Role,
		StageID: step.StageID,
		Content: summary,
	}
	return out
}
