package state_test

import (
	"testing"

	"github.com/motern88/allen/internal/state"
)

func TestTask_SnapshotRoundTripsStagesAndMessages(t *testing.T) {
	task := state.NewTask("ship it", "manager")
	task.AddToGroup("analyst")
	stage := state.NewStage(task.ID, "draft", map[string]string{"analyst": "writes the draft"})
	task.AppendStage(stage)
	task.AppendMessage(state.SharedMessage{AgentID: "analyst", Content: "starting"})

	snap := task.Snapshot()
	if snap.ID != task.ID || len(snap.Stages) != 1 || len(snap.Messages) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	restored := state.RestoreTask(snap)
	if restored.ID != task.ID || !restored.InGroup("analyst") {
		t.Fatalf("expected group membership to survive restore")
	}
	if len(restored.Stages()) != 1 || restored.Stages()[0].ID != stage.ID {
		t.Fatalf("expected stages to survive restore, got %+v", restored.Stages())
	}
	if len(restored.Messages()) != 1 {
		t.Fatalf("expected messages to survive restore, got %+v", restored.Messages())
	}
}

func TestAgentState_SnapshotCapturesIdentityAndDialogue(t *testing.T) {
	as := state.NewLLMAgentState("analyst", "analyst", "researches things", state.LLMConfig{}, nil, 4)
	as.Dialogue.Append(state.DialogueTurn{Role: "user", Content: "hello"})

	snap := as.Snapshot()
	if snap.ID != as.ID || snap.Name != "analyst" || len(snap.DialogueTurns) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
