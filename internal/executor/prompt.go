package executor

import (
	"fmt"
	"strings"

	"github.com/motern88/allen/internal/state"
)

// SystemPrompt is the global prompt shared by every agent, the first
// section of every assembled prompt.
const SystemPrompt = `You are an agent inside a multi-agent task execution system.
You collaborate with other agents and, when assigned, human operators to
complete tasks broken into stages and steps. Follow the instructions for
your current step precisely and return output in the requested format.`

// RoleSection renders an agent's background plus its skill/tool
// permission summary.
func RoleSection(agentState *state.AgentState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Role\nName: %s\nRole: %s\n", agentState.Name, agentState.Role)
	if agentState.Profile != "" {
		fmt.Fprintf(&sb, "Profile: %s\n", agentState.Profile)
	}
	if skills := agentState.SkillPermissions(); len(skills) > 0 {
		fmt.Fprintf(&sb, "Permitted skills: %s\n", strings.Join(skills, ", "))
	}
	if tools := agentState.ToolPermissions(); len(tools) > 0 {
		fmt.Fprintf(&sb, "Permitted tool servers: %s\n", strings.Join(tools, ", "))
	}
	return sb.String()
}

// MemorySection renders an agent's persistent-memory scratchpad as the
// prompt's memory section.
func MemorySection(agentState *state.AgentState) string {
	body := agentState.Persistent.String()
	if body == "" {
		return ""
	}
	return "## Memory\n" + body
}

// Assemble builds a prompt following a fixed section ordering: system
// -> role -> (goal -> rules) -> memory. goal is the step's
// text_content; rules is the skill-specific instruction block
// (including any expected return-format schema). This ordering is a
// contract: skill authors should only ever need to override rules,
// never the section order itself.
func Assemble(agentState *state.AgentState, goal, rules string) string {
	sections := []string{SystemPrompt, RoleSection(agentState)}
	if goal != "" {
		sections = append(sections, "## Goal\n"+goal)
	}
	if rules != "" {
		sections = append(sections, "## Rules\n"+rules)
	}
	if mem := MemorySection(agentState); mem != "" {
		sections = append(sections, mem)
	}
	return strings.Join(sections, "\n\n")
}
