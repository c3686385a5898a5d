package state_test

import (
	"testing"

	"github.com/motern88/allen/internal/state"
)

func TestAgentStep_AddStepEnqueuesInitStep(t *testing.T) {
	as := state.NewAgentStep("agent-1")
	step := state.NewStep("task-1", "", "agent-1", "do work", state.StepTypeSkill, "planning")
	as.AddStep(step)

	if as.QueueSize() != 1 {
		t.Fatalf("expected queue size 1, got %d", as.QueueSize())
	}
	got := as.GetStep(state.StepFilter{StepID: step.ID})
	if len(got) != 1 || got[0].ID != step.ID {
		t.Fatalf("GetStep did not return the added step")
	}
}

func TestAgentStep_AddStepPastInitSkipsQueue(t *testing.T) {
	as := state.NewAgentStep("agent-1")
	step := state.NewStep("task-1", "stage-1", "agent-1", "tool call", state.StepTypeTool, "toolclient")
	step.ExecutionState = state.StepPending
	as.AddStep(step)

	if as.QueueSize() != 0 {
		t.Fatalf("expected a pending step to skip the queue, got size %d", as.QueueSize())
	}
}

func TestAgentStep_GetStepFilters(t *testing.T) {
	as := state.NewAgentStep("agent-1")
	s1 := state.NewStep("task-1", "stage-1", "agent-1", "a", state.StepTypeSkill, "planning")
	s2 := state.NewStep("task-1", "stage-2", "agent-1", "b", state.StepTypeSkill, "planning")
	s3 := state.NewStep("task-2", "stage-3", "agent-1", "c", state.StepTypeSkill, "planning")
	as.AddStep(s1)
	as.AddStep(s2)
	as.AddStep(s3)

	byTask := as.GetStep(state.StepFilter{TaskID: "task-1"})
	if len(byTask) != 2 {
		t.Fatalf("expected 2 steps for task-1, got %d", len(byTask))
	}
	byStage := as.GetStep(state.StepFilter{StageID: "stage-3"})
	if len(byStage) != 1 || byStage[0].ID != s3.ID {
		t.Fatalf("expected exactly s3 for stage-3 filter")
	}
}

func TestAgentStep_UpdateStepStatusAndHistorical(t *testing.T) {
	as := state.NewAgentStep("agent-1")
	step := state.NewStep("task-1", "", "agent-1", "a", state.StepTypeSkill, "planning")
	as.AddStep(step)

	if len(as.Historical()) != 0 {
		t.Fatalf("expected no historical steps before completion")
	}
	as.UpdateStepStatus(step.ID, state.StepFinished)
	hist := as.Historical()
	if len(hist) != 1 || hist[0].ExecutionState != state.StepFinished {
		t.Fatalf("expected the finished step in Historical, got %+v", hist)
	}
}

func TestAgentStep_Enqueue(t *testing.T) {
	as := state.NewAgentStep("agent-1")
	step := state.NewStep("task-1", "", "agent-1", "a", state.StepTypeSkill, "planning")
	step.ExecutionState = state.StepFinished
	as.AddStep(step) // past init, not queued

	if as.QueueSize() != 0 {
		t.Fatalf("expected finished step to not be queued")
	}
	as.Enqueue(step.ID)
	if as.QueueSize() != 1 {
		t.Fatalf("expected Enqueue to push onto Todo regardless of state")
	}
}
