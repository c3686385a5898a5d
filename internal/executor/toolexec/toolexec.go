// Package toolexec implements the tool-step executor: the only
// executor whose Exec phase calls out to the Tool Client Multiplexer
// (internal/toolclient) instead of an LLM.
//
// Uses the same core.BaseNode-style Prep/Exec/Post shape as
// internal/executor/skill, but Exec here performs a tool invocation
// rather than a model call.
package toolexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/motern88/allen/internal/executor"
	"github.com/motern88/allen/internal/executor/skill"
	"github.com/motern88/allen/internal/router"
	"github.com/motern88/allen/internal/state"
	"github.com/motern88/allen/internal/toolclient"
)

type toolExecPrep struct {
	Instruction skill.ToolInstruction
}

// ToolExecutor implements the tool step type. A single instance is
// shared process-wide, backed by the single Multiplexer.
type ToolExecutor struct {
	Client *toolclient.Multiplexer
}

func (e ToolExecutor) Prep(step *state.Step, agentState *state.AgentState) (toolExecPrep, error) {
	if len(step.InstructionContent) == 0 {
		return toolExecPrep{}, executor.NewError(executor.ErrKindNotReady, "tool step has no instruction content", nil)
	}
	var instr skill.ToolInstruction
	if err := json.Unmarshal(step.InstructionContent, &instr); err != nil {
		return toolExecPrep{}, executor.NewError(executor.ErrKindParse, "malformed instruction_content", err)
	}
	if !agentState.HasToolPermission(instr.Server) {
		return toolExecPrep{}, executor.NewError(executor.ErrKindPermission, fmt.Sprintf("agent has no permission for tool server %q", instr.Server), nil)
	}
	return toolExecPrep{Instruction: instr}, nil
}

func (e ToolExecutor) Exec(ctx context.Context, prep toolExecPrep) (string, error) {
	future := e.Client.Invoke(ctx, prep.Instruction.Server, prep.Instruction.Capability, prep.Instruction.Arguments)
	result := future.Wait(ctx)
	if result.Err != nil {
		return "", classifyToolError(result.Err)
	}
	return result.Text, nil
}

// classifyToolError maps a toolclient failure onto the tool error
// kinds, so a session-open failure and a per-call failure surface
// distinctly in step.execute_result.error_kind.
func classifyToolError(err error) *executor.Error {
	switch {
	case errors.Is(err, toolclient.ErrUnavailable):
		return executor.NewError(executor.ErrKindToolSessionOpen, "tool server unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		return executor.NewError(executor.ErrKindToolTimeout, "tool invocation timed out", err)
	default:
		return executor.NewError(executor.ErrKindToolInvoke, "tool invocation failed", err)
	}
}

func (e ToolExecutor) Post(agentState *state.AgentState, step *state.Step, prep toolExecPrep, raw string) (executor.Output, error) {
	return executor.Output{}, nil
}

type adapter struct {
	phase executor.Phase[toolExecPrep]
}

func (a adapter) Execute(ctx context.Context, stepID string, agentState *state.AgentState) (any, error) {
	steps := agentState.Steps.GetStep(state.StepFilter{StepID: stepID})
	if len(steps) == 0 {
		return nil, executor.NewError(executor.ErrKindNotReady, "unknown step id "+stepID, nil)
	}
	return executor.Run(ctx, steps[0], agentState, a.phase)
}

// Register installs the tool executor factory into r.
// Every tool step shares the single registered executor name
// (skill.ToolExecutorName); the target server/capability travels in the
// step's instruction_content instead of the router key.
func Register(r *router.Router, client *toolclient.Multiplexer) {
	r.Register(string(state.StepTypeTool), skill.ToolExecutorName, func() router.Executor {
		return adapter{phase: ToolExecutor{Client: client}}
	})
}
