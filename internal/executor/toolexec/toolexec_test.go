package toolexec

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/motern88/allen/internal/executor"
	"github.com/motern88/allen/internal/executor/skill"
	"github.com/motern88/allen/internal/state"
	"github.com/motern88/allen/internal/toolclient"
)

func newAgentWithPermission(servers ...string) *state.AgentState {
	a := state.NewHumanAgentState("alice", "operator", "")
	a.SetToolPermissions(servers)
	return a
}

func TestToolExecutor_Prep_MissingInstructionContent(t *testing.T) {
	step := state.NewStep("task-1", "stage-1", "agent-1", "call a tool", state.StepTypeTool, skill.ToolExecutorName)
	_, err := ToolExecutor{}.Prep(step, newAgentWithPermission())
	var classified *executor.Error
	if !errors.As(err, &classified) || classified.Kind != executor.ErrKindNotReady {
		t.Fatalf("expected ErrKindNotReady, got %v", err)
	}
}

func TestToolExecutor_Prep_MalformedInstructionContent(t *testing.T) {
	step := state.NewStep("task-1", "stage-1", "agent-1", "call a tool", state.StepTypeTool, skill.ToolExecutorName)
	step.InstructionContent = json.RawMessage(`not json`)
	_, err := ToolExecutor{}.Prep(step, newAgentWithPermission())
	var classified *executor.Error
	if !errors.As(err, &classified) || classified.Kind != executor.ErrKindParse {
		t.Fatalf("expected ErrKindParse, got %v", err)
	}
}

func TestToolExecutor_Prep_NoPermissionFails(t *testing.T) {
	instr, _ := json.Marshal(skill.ToolInstruction{Server: "search", Capability: "web_search"})
	step := state.NewStep("task-1", "stage-1", "agent-1", "call a tool", state.StepTypeTool, skill.ToolExecutorName)
	step.InstructionContent = instr

	_, err := ToolExecutor{}.Prep(step, newAgentWithPermission())
	var classified *executor.Error
	if !errors.As(err, &classified) || classified.Kind != executor.ErrKindPermission {
		t.Fatalf("expected ErrKindPermission, got %v", err)
	}
}

func TestToolExecutor_Prep_PermittedServerSucceeds(t *testing.T) {
	instr, _ := json.Marshal(skill.ToolInstruction{Server: "search", Capability: "web_search", Arguments: map[string]any{"query": "weather"}})
	step := state.NewStep("task-1", "stage-1", "agent-1", "call a tool", state.StepTypeTool, skill.ToolExecutorName)
	step.InstructionContent = instr

	prep, err := ToolExecutor{}.Prep(step, newAgentWithPermission("search"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prep.Instruction.Server != "search" || prep.Instruction.Capability != "web_search" {
		t.Fatalf("unexpected parsed instruction: %+v", prep.Instruction)
	}
}

func TestClassifyToolError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want executor.ErrorKind
	}{
		{"unavailable", toolclient.ErrUnavailable, executor.ErrKindToolSessionOpen},
		{"timeout", context.DeadlineExceeded, executor.ErrKindToolTimeout},
		{"other", errors.New("boom"), executor.ErrKindToolInvoke},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := classifyToolError(c.err)
			if got.Kind != c.want {
				t.Fatalf("expected kind %q, got %q", c.want, got.Kind)
			}
		})
	}
}

func TestToolExecutor_Exec_UnknownServerSurfacesSessionOpenError(t *testing.T) {
	mux := toolclient.New(nil)
	defer mux.Close()

	e := ToolExecutor{Client: mux}
	_, err := e.Exec(context.Background(), toolExecPrep{Instruction: skill.ToolInstruction{Server: "unknown", Capability: "noop"}})
	var classified *executor.Error
	if !errors.As(err, &classified) || classified.Kind != executor.ErrKindToolSessionOpen {
		t.Fatalf("expected ErrKindToolSessionOpen for an unregistered server, got %v", err)
	}
}

func TestRegister_RoutesToolStepsThroughTheSharedExecutor(t *testing.T) {
	mux := toolclient.New(nil)
	defer mux.Close()

	instr, _ := json.Marshal(skill.ToolInstruction{Server: "unknown", Capability: "noop"})
	step := state.NewStep("task-1", "stage-1", "agent-1", "call a tool", state.StepTypeTool, skill.ToolExecutorName)
	step.InstructionContent = instr

	agentState := newAgentWithPermission("unknown")
	agentState.Steps.AddStep(step)

	a := adapter{phase: ToolExecutor{Client: mux}}
	_, err := a.Execute(context.Background(), step.ID, agentState)
	if err == nil {
		t.Fatal("expected an error routing through an unavailable server")
	}
	if step.ExecutionState != state.StepFailed {
		t.Fatalf("expected the step marked failed, got %q", step.ExecutionState)
	}
}
