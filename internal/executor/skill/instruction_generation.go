package skill

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/motern88/allen/internal/executor"
	"github.com/motern88/allen/internal/state"
)

// ToolExecutorName is the fixed executor_name every tool step carries;
// the actual server/capability is carried in the step's
// instruction_content instead of in the router key, so the router only
// needs one (tool, <name>) factory registration regardless of how many
// tool servers are configured.
const ToolExecutorName = "toolclient"

const instructionGenerationRules = `Turn the preceding request into a single structured tool invocation.

Reply with a single fenced block:
<tool_call>
server: <tool server name, must be one of your permitted tool servers>
capability: <capability/tool name exposed by that server>
arguments:
  <key>: <value>
</tool_call>`

type instructionGenPrep struct {
	Prompt string
	Agent  *state.AgentState
}

type toolCallDoc struct {
	Server     string         `yaml:"server"`
	Capability string         `yaml:"capability"`
	Arguments  map[string]any `yaml:"arguments"`
}

// ToolInstruction is the JSON shape stored in a tool step's
// instruction_content.
type ToolInstruction struct {
	Server     string         `json:"server"`
	Capability string         `json:"capability"`
	Arguments  map[string]any `json:"arguments"`
}

// InstructionGenerationExecutor implements the instruction_generation
// skill: it turns a planning step's freeform tool-intent text into a
// concrete tool step with instruction_content already populated.
type InstructionGenerationExecutor struct{}

func (InstructionGenerationExecutor) Prep(step *state.Step, agentState *state.AgentState) (instructionGenPrep, error) {
	return instructionGenPrep{
		Prompt: executor.Assemble(agentState, step.TextContent, instructionGenerationRules),
		Agent:  agentState,
	}, nil
}

func (InstructionGenerationExecutor) Exec(ctx context.Context, prep instructionGenPrep) (string, error) {
	return callLLM(ctx, prep.Agent, prep.Prompt)
}

func (InstructionGenerationExecutor) Post(agentState *state.AgentState, step *state.Step, prep instructionGenPrep, raw string) (executor.Output, error) {
	doc, err := parseToolCall(raw)
	if err != nil {
		return executor.Output{}, err
	}
	if !agentState.HasToolPermission(doc.Server) {
		return executor.Output{}, executor.NewError(executor.ErrKindPermission, fmt.Sprintf("agent %s has no permission for tool server %q", agentState.ID, doc.Server), nil)
	}

	instruction, err := json.Marshal(ToolInstruction{Server: doc.Server, Capability: doc.Capability, Arguments: doc.Arguments})
	if err != nil {
		return executor.Output{}, fmt.Errorf("instruction_generation: marshal instruction: %w", err)
	}

	toolStep := state.NewStep(step.TaskID, step.StageID, step.AgentID, step.Intention, state.StepTypeTool, ToolExecutorName)
	toolStep.InstructionContent = instruction
	agentState.Steps.AddStep(toolStep)
	agentState.RecordWorkingMemory(step.TaskID, step.StageID, toolStep.ID)

	return continuationOutput(step, agentState, fmt.Sprintf("queued tool call %s/%s", doc.Server, doc.Capability)), nil
}

func parseToolCall(raw string) (toolCallDoc, error) {
	block, ok := executor.ExtractDelimited(raw, "<tool_call>", "</tool_call>")
	if !ok {
		return toolCallDoc{}, fmt.Errorf("instruction_generation: no <tool_call> block in response")
	}

	yamlStr, err := executor.ExtractYAML(block)
	if err != nil {
		yamlStr = block
	}

	var doc toolCallDoc
	if err := yaml.Unmarshal([]byte(yamlStr), &doc); err != nil {
		fixed := executor.FixBackslashes(yamlStr)
		if err2 := yaml.Unmarshal([]byte(fixed), &doc); err2 != nil {
			return toolCallDoc{}, fmt.Errorf("instruction_generation: yaml parse error: %w", err)
		}
	}
	if doc.Server == "" || doc.Capability == "" {
		return toolCallDoc{}, fmt.Errorf("instruction_generation: tool_call missing server or capability")
	}
	return doc, nil
}
