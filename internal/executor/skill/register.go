package skill

import (
	"context"

	"github.com/motern88/allen/internal/executor"
	"github.com/motern88/allen/internal/router"
	"github.com/motern88/allen/internal/state"
)

// adapter turns an executor.Phase into a router.Executor, closing over
// executor.Run so the router never needs to know about the Prep/Exec/Post
// generic machinery.
type adapter[P any] struct {
	phase executor.Phase[P]
}

func (a adapter[P]) Execute(ctx context.Context, stepID string, agentState *state.AgentState) (any, error) {
	steps := agentState.Steps.GetStep(state.StepFilter{StepID: stepID})
	if len(steps) == 0 {
		return nil, executor.NewError(executor.ErrKindNotReady, "unknown step id "+stepID, nil)
	}
	return executor.Run(ctx, steps[0], agentState, a.phase)
}

// Register installs every skill executor factory into r.
func Register(r *router.Router) {
	r.Register(string(state.StepTypeSkill), NameStagePlanning, func() router.Executor {
		return adapter[stagePlanPrep]{phase: StagePlanningExecutor{}}
	})
	r.Register(string(state.StepTypeSkill), NamePlanning, func() router.Executor {
		return adapter[planningPrep]{phase: PlanningExecutor{}}
	})
	r.Register(string(state.StepTypeSkill), NameInstructionGeneration, func() router.Executor {
		return adapter[instructionGenPrep]{phase: InstructionGenerationExecutor{}}
	})
	r.Register(string(state.StepTypeSkill), NameQuickThink, func() router.Executor {
		return adapter[quickThinkPrep]{phase: QuickThinkExecutor{}}
	})
	r.Register(string(state.StepTypeSkill), NameReplyMessage, func() router.Executor {
		return adapter[replyMessagePrep]{phase: ReplyMessageExecutor{}}
	})
}
