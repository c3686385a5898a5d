package skill

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/motern88/allen/internal/executor"
	"github.com/motern88/allen/internal/state"
)

const planningRules = `Decide the single next step you will take toward your current responsibility,
or declare that responsibility complete.

Reply with a single fenced block:
<planned_step>
action: continue   # or "done" if your responsibility in this stage is complete
type: skill         # "skill" or "tool" — only present when action is continue
executor_name: quick_think
intention: "short description of what this step accomplishes"
text_content: "the request to hand to that executor"
</planned_step>

When type is "tool", text_content should describe which tool server and
capability you intend to invoke and with what arguments in plain language;
a later step turns this into the structured call.`

type planningPrep struct {
	Prompt string
	Agent  *state.AgentState
}

type plannedStepDoc struct {
	Action       PlanAction `yaml:"action"`
	Type         string     `yaml:"type"`
	ExecutorName string     `yaml:"executor_name"`
	Intention    string     `yaml:"intention"`
	TextContent  string     `yaml:"text_content"`
}

// PlanningExecutor implements the planning skill: decide the single
// next step toward the agent's current stage responsibility, or declare
// that responsibility complete.
type PlanningExecutor struct{}

func (PlanningExecutor) Prep(step *state.Step, agentState *state.AgentState) (planningPrep, error) {
	goal := step.TextContent
	if goal == "" {
		goal = step.Intention
	}
	return planningPrep{
		Prompt: executor.Assemble(agentState, goal, planningRules),
		Agent:  agentState,
	}, nil
}

func (PlanningExecutor) Exec(ctx context.Context, prep planningPrep) (string, error) {
	return callLLM(ctx, prep.Agent, prep.Prompt)
}

func (PlanningExecutor) Post(agentState *state.AgentState, step *state.Step, prep planningPrep, raw string) (executor.Output, error) {
	doc, err := parsePlannedStep(raw)
	if err != nil {
		return executor.Output{}, err
	}

	if doc.Action == ActionDone {
		return executor.Output{}, nil
	}

	var next *state.Step
	switch doc.Type {
	case "tool":
		// A tool step may not run until instruction_generation fills its
		// instruction_content, so planning hands off to that skill rather
		// than creating the tool step directly.
		next = state.NewStep(step.TaskID, step.StageID, step.AgentID, doc.Intention, state.StepTypeSkill, NameInstructionGeneration)
		next.TextContent = doc.TextContent
	case "skill":
		next = state.NewStep(step.TaskID, step.StageID, step.AgentID, doc.Intention, state.StepTypeSkill, doc.ExecutorName)
		next.TextContent = doc.TextContent
	default:
		return executor.Output{}, fmt.Errorf("planning: unknown step type %q", doc.Type)
	}

	agentState.Steps.AddStep(next)
	agentState.RecordWorkingMemory(step.TaskID, step.StageID, next.ID)

	return continuationOutput(step, agentState, doc.Intention), nil
}

func parsePlannedStep(raw string) (plannedStepDoc, error) {
	block, ok := executor.ExtractDelimited(raw, "<planned_step>", "</planned_step>")
	if !ok {
		return plannedStepDoc{}, fmt.Errorf("planning: no <planned_step> block in response")
	}

	yamlStr, err := executor.ExtractYAML(block)
	if err != nil {
		yamlStr = block
	}

	var doc plannedStepDoc
	if err := yaml.Unmarshal([]byte(yamlStr), &doc); err != nil {
		fixed := executor.FixBackslashes(yamlStr)
		if err2 := yaml.Unmarshal([]byte(fixed), &doc); err2 != nil {
			return plannedStepDoc{}, fmt.Errorf("planning: yaml parse error: %w", err)
		}
	}
	if doc.Action == "" {
		doc.Action = ActionContinue
	}
	return doc, nil
}
