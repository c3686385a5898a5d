package skill

import (
	"context"

	"github.com/motern88/allen/internal/executor"
	"github.com/motern88/allen/internal/state"
)

const replyMessageRules = `Another agent has sent you the message embedded above as your goal.
Respond to it directly; your reply text is sent back to them as-is.`

type replyMessagePrep struct {
	Prompt string
	Agent  *state.AgentState
}

// ReplyMessageExecutor implements the reply_message skill
// task-receipt path: enqueued by the dispatcher when an LLM agent
// receives a Message, with the message content embedded as the step's
// text_content. Unlike planning/quick_think, a reply_message step never
// closes out a stage responsibility on its own — the agent was already
// mid-stage when the message interrupted it — so it always reports
// "working" rather than letting Run default to "finished".
type ReplyMessageExecutor struct{}

func (ReplyMessageExecutor) Prep(step *state.Step, agentState *state.AgentState) (replyMessagePrep, error) {
	return replyMessagePrep{
		Prompt: executor.Assemble(agentState, step.TextContent, replyMessageRules),
		Agent:  agentState,
	}, nil
}

func (ReplyMessageExecutor) Exec(ctx context.Context, prep replyMessagePrep) (string, error) {
	return callLLM(ctx, prep.Agent, prep.Prompt)
}

func (ReplyMessageExecutor) Post(agentState *state.AgentState, step *state.Step, prep replyMessagePrep, raw string) (executor.Output, error) {
	out := continuationOutput(step, agentState, raw)

	if step.ReplyToAgentID != "" {
		stageRelative := step.StageID
		if stageRelative == "" {
			stageRelative = state.NoRelative
		}
		out.SendMessage = &state.Message{
			SenderID:        step.AgentID,
			Receivers:       []string{step.ReplyToAgentID},
			TaskID:          step.TaskID,
			StageRelative:   stageRelative,
			Content:         raw,
			ReturnWaitingID: step.ReplyWaitingID,
		}
	}
	return out, nil
}
