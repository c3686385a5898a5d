package skill

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/motern88/allen/internal/executor"
	"github.com/motern88/allen/internal/state"
)

// Name is the executor name this package registers under for
// executor_type=skill.
const (
	NameStagePlanning        = "stage_planning"
	NamePlanning             = "planning"
	NameInstructionGeneration = "instruction_generation"
	NameQuickThink           = "quick_think"
	NameReplyMessage         = "reply_message"
)

const stagePlanningRules = `Decide the next stage of this task, or declare the task complete.

Reply with a single fenced block:
<stage_plan>
stages:
  - intention: "short description of this stage's goal"
    allocation:
      <agent_id>: "that agent's responsibility in this stage"
</stage_plan>

If the task is already fully accomplished, reply with an empty stages list:
<stage_plan>
stages: []
</stage_plan>

Only one stage entry is consumed per call; list at most one.`

type stagePlanPrep struct {
	Prompt string
	Agent  *state.AgentState
}

type stagePlanDoc struct {
	Stages []stagePlanItem `yaml:"stages"`
}

type stagePlanItem struct {
	Intention  string            `yaml:"intention"`
	Allocation map[string]string `yaml:"allocation"`
}

// StagePlanningExecutor implements the stage_planning skill: a manager
// agent's repeatedly-invoked, one-stage-at-a-time planning step.
type StagePlanningExecutor struct{}

func (StagePlanningExecutor) Prep(step *state.Step, agentState *state.AgentState) (stagePlanPrep, error) {
	goal := step.TextContent
	if goal == "" {
		goal = step.Intention
	}
	return stagePlanPrep{
		Prompt: executor.Assemble(agentState, goal, stagePlanningRules),
		Agent:  agentState,
	}, nil
}

func (StagePlanningExecutor) Exec(ctx context.Context, prep stagePlanPrep) (string, error) {
	return callLLM(ctx, prep.Agent, prep.Prompt)
}

func (StagePlanningExecutor) Post(agentState *state.AgentState, step *state.Step, prep stagePlanPrep, raw string) (executor.Output, error) {
	doc, err := parseStagePlan(raw)
	if err != nil {
		return executor.Output{}, err
	}

	if len(doc.Stages) == 0 {
		return executor.Output{
			UpdateTaskState: &executor.TaskStateUpdate{TaskID: step.TaskID, State: state.TaskFinished},
		}, nil
	}

	first := doc.Stages[0]
	return executor.Output{
		AddStage: &executor.AddStageUpdate{
			TaskID:     step.TaskID,
			Intention:  first.Intention,
			Allocation: first.Allocation,
		},
	}, nil
}

func parseStagePlan(raw string) (stagePlanDoc, error) {
	block, ok := executor.ExtractDelimited(raw, "<stage_plan>", "</stage_plan>")
	if !ok {
		return stagePlanDoc{}, fmt.Errorf("stage_planning: no <stage_plan> block in response")
	}

	yamlStr, err := executor.ExtractYAML(block)
	if err != nil {
		yamlStr = block
	}

	var doc stagePlanDoc
	if err := yaml.Unmarshal([]byte(yamlStr), &doc); err != nil {
		fixed := executor.FixBackslashes(yamlStr)
		if err2 := yaml.Unmarshal([]byte(fixed), &doc); err2 != nil {
			return stagePlanDoc{}, fmt.Errorf("stage_planning: yaml parse error: %w", err)
		}
	}
	return doc, nil
}
