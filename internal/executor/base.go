// Package executor implements the shared prompt-assembly and
// result-emission contract every skill/tool executor follows.
//
// Modeled on the core.BaseNode Prep/Exec/Post workflow convention
// (internal/core/interfaces.go), generalized from a typed
// State/PrepResult/ExecResults workflow node to the fixed
// step_id/agent_state contract of a single executor invocation.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/motern88/allen/internal/state"
)

// Phase is the three-step contract every concrete executor supplies.
// PrepResult carries whatever the Exec/Post stages need between them
// (assembled prompt text, tool arguments, ...).
type Phase[PrepResult any] interface {
	// Prep reads the step and agent state and produces the work item
	// for Exec. Returning an error here fails the step without ever
	// invoking Exec (e.g. a tool step whose instruction names a server
	// the agent may not use).
	Prep(step *state.Step, agentState *state.AgentState) (PrepResult, error)

	// Exec performs the executor's actual work (an LLM call, a tool
	// invocation, or static logic) and returns the raw upstream
	// response text.
	Exec(ctx context.Context, prep PrepResult) (raw string, err error)

	// Post interprets the raw response and produces the executor's
	// execute_output. Any self-authored persistent-memory fragment has
	// already been extracted and appended by Run before Post is called;
	// Post only needs to supply the executor-specific Output fields.
	Post(agentState *state.AgentState, step *state.Step, prep PrepResult, raw string) (Output, error)
}

// Run wraps an arbitrary Phase with the execution bookkeeping every
// executor needs: transition the step to running at entry, extract and
// append any persistent-memory fragment, and leave the step finished or
// failed with execute_result populated. It also fills in the two
// mandatory Output fields (update_stage_agent_state and
// send_shared_message) from the step/agent context so individual
// phases don't have to repeat that boilerplate, unless the phase's
// Post already set them.
func Run[PrepResult any](ctx context.Context, step *state.Step, agentState *state.AgentState, phase Phase[PrepResult]) (Output, error) {
	if !step.ReadyToRun() {
		err := NewError(ErrKindNotReady, fmt.Sprintf("step %s has no instruction content", step.ID), nil)
		step.ExecutionState = state.StepFailed
		step.ExecuteResult = state.ExecuteResult{Error: err.Error(), ErrorKind: string(ErrKindNotReady)}
		return failureOutput(step, agentState, err), err
	}

	step.ExecutionState = state.StepRunning

	prep, err := phase.Prep(step, agentState)
	if err != nil {
		return fail(step, agentState, asExecutorError(err, "prep failed"))
	}

	raw, err := phase.Exec(ctx, prep)
	if err != nil {
		return fail(step, agentState, asExecutorError(err, "exec failed"))
	}

	if fragment, ok := ExtractDelimited(raw, "<persistent_memory>", "</persistent_memory>"); ok {
		agentState.Persistent.Append(fragment)
	}

	output, err := phase.Post(agentState, step, prep, raw)
	if err != nil {
		classified := asExecutorError(err, "post failed")
		if classified.Kind == ErrKindLLMTransport {
			// Post failures are parse/validation failures by default,
			// unlike Prep/Exec where an LLM transport failure is the
			// common case — only promote an already-typed error through.
			classified = NewError(ErrKindParse, "post failed", err)
		}
		out, ferr := fail(step, agentState, classified)
		step.ExecuteResult.Text = raw
		return out, ferr
	}

	step.ExecutionState = state.StepFinished
	if step.ExecuteResult.IsEmpty() {
		step.ExecuteResult = state.ExecuteResult{Text: raw}
	}

	fillDefaults(&output, step, agentState, state.ParticipationFinished, raw)
	return output, nil
}

// asExecutorError preserves a *Error already classified by the phase
// (e.g. toolexec's session-open/invoke/timeout distinction) rather than
// collapsing every Prep/Exec failure into one generic kind. Untyped
// errors default to ErrKindLLMTransport, since Exec is an LLM call for
// every skill executor except the tool executor, which always returns a
// typed error itself.
func asExecutorError(err error, message string) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return NewError(ErrKindLLMTransport, message, err)
}

func fail(step *state.Step, agentState *state.AgentState, err *Error) (Output, error) {
	step.ExecutionState = state.StepFailed
	step.ExecuteResult = state.ExecuteResult{Error: err.Error(), ErrorKind: string(err.Kind)}
	return failureOutput(step, agentState, err), err
}

func failureOutput(step *state.Step, agentState *state.AgentState, err *Error) Output {
	var out Output
	fillDefaults(&out, step, agentState, state.ParticipationFailed, err.Error())
	return out
}

// fillDefaults populates update_stage_agent_state and
// send_shared_message when the phase's Post left them unset, so every
// step reports its participation state and a shared-log entry even
// when the phase itself has nothing more specific to say.
func fillDefaults(out *Output, step *state.Step, agentState *state.AgentState, participation state.AgentParticipation, summary string) {
	if out.UpdateStageAgentState == nil && step.StageID != "" {
		out.UpdateStageAgentState = &StageAgentStateUpdate{
			TaskID:  step.TaskID,
			StageID: step.StageID,
			AgentID: step.AgentID,
			State:   participation,
		}
	}
	if out.SendSharedMessage == nil {
		out.SendSharedMessage = &SharedMessageUpdate{
			TaskID:  step.TaskID,
			AgentID: step.AgentID,
			Role:    agentState.Role,
			StageID: step.StageID,
			Content: summary,
		}
	}
}
