package skill

import (
	"context"

	"github.com/motern88/allen/internal/executor"
	"github.com/motern88/allen/internal/state"
)

const quickThinkRules = `Respond directly and concisely. No special formatting is required; your
reply text is recorded as this step's result as-is.

If you have a fact worth remembering beyond this step, include it in a
<persistent_memory>...</persistent_memory> block using only heading depth
3 or deeper.`

type quickThinkPrep struct {
	Prompt string
	Agent  *state.AgentState
}

// QuickThinkExecutor implements the quick_think skill: a single LLM call
// whose raw reply is the step's result, with no further structured
// parsing. The lightest-weight skill executor, used for steps that need
// a direct answer rather than a follow-up action or a tool call.
type QuickThinkExecutor struct{}

func (QuickThinkExecutor) Prep(step *state.Step, agentState *state.AgentState) (quickThinkPrep, error) {
	goal := step.TextContent
	if goal == "" {
		goal = step.Intention
	}
	return quickThinkPrep{
		Prompt: executor.Assemble(agentState, goal, quickThinkRules),
		Agent:  agentState,
	}, nil
}

func (QuickThinkExecutor) Exec(ctx context.Context, prep quickThinkPrep) (string, error) {
	return callLLM(ctx, prep.Agent, prep.Prompt)
}

func (QuickThinkExecutor) Post(agentState *state.AgentState, step *state.Step, prep quickThinkPrep, raw string) (executor.Output, error) {
	return executor.Output{}, nil
}
