package mas_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/motern88/allen/internal/mas"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %q: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %q/%q: %v", dir, name, err)
	}
}

func newTestSystem(t *testing.T) (*mas.System, string) {
	t.Helper()
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "agents"), "manager.yaml",
		"name: manager\nrole: manager\nprofile: coordinates the team\nllm_config:\n  api_type: ollama\n  model: llama3\n")
	writeFile(t, filepath.Join(base, "agents"), "analyst.yaml",
		"name: analyst\nrole: analyst\nprofile: researches things\ntools:\n  - search\nllm_config:\n  api_type: ollama\n  model: llama3\n")
	writeFile(t, filepath.Join(base, "humans"), "alice.yaml",
		"name: alice\nrole: operator\nhuman_config:\n  password: hunter2\n  level: admin\n")
	writeFile(t, base, "default_llm.yaml", "llm_config:\n  api_type: ollama\n  model: llama3\n")

	sys, err := mas.New(context.Background(), mas.Config{
		RolesDir:       base,
		DefaultLLMPath: filepath.Join(base, "default_llm.yaml"),
	})
	if err != nil {
		t.Fatalf("unexpected error constructing the system: %v", err)
	}
	t.Cleanup(sys.Shutdown)
	return sys, base
}

func TestNew_SpawnsManagerEagerly(t *testing.T) {
	sys, _ := newTestSystem(t)
	if sys.ManagerID() != "manager" {
		t.Fatalf("expected the manager id to be its configured name, got %q", sys.ManagerID())
	}
	if sys.Get("manager") == nil {
		t.Fatal("expected the manager agent already running after New")
	}
}

func TestNew_DoesNotEagerlySpawnOtherConfiguredRoles(t *testing.T) {
	sys, _ := newTestSystem(t)
	if sys.Get("analyst") != nil {
		t.Fatal("expected the analyst role to not be spawned until first referenced")
	}
}

func TestEnsureFromRole_LazilySpawnsConfiguredRole(t *testing.T) {
	sys, _ := newTestSystem(t)
	as, err := sys.EnsureFromRole("analyst")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if as.ID != "analyst" || as.Role != "analyst" {
		t.Fatalf("unexpected agent state: %+v", as)
	}
	if got := as.ToolPermissions(); len(got) != 1 || got[0] != "search" {
		t.Fatalf("expected tool permissions carried from the role config, got %+v", got)
	}
	if sys.Get("analyst") != as {
		t.Fatal("expected a second call to return the same state")
	}
}

func TestEnsureFromRole_UnknownIDCreatesDynamicAgent(t *testing.T) {
	sys, _ := newTestSystem(t)
	as, err := sys.EnsureFromRole("some-ad-hoc-agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if as.ID != "some-ad-hoc-agent" {
		t.Fatalf("expected the dynamic agent's id to match the requested id, got %q", as.ID)
	}
}

func TestBindHumanAgent_WrongPasswordFails(t *testing.T) {
	sys, _ := newTestSystem(t)
	if _, err := sys.BindHumanAgent("alice", "wrong"); err == nil {
		t.Fatal("expected an error for an incorrect password")
	}
}

func TestBindHumanAgent_UnknownNameFails(t *testing.T) {
	sys, _ := newTestSystem(t)
	if _, err := sys.BindHumanAgent("ghost", "anything"); err == nil {
		t.Fatal("expected an error for an unknown human agent name")
	}
}

func TestBindHumanAgent_CorrectPasswordReturnsBoundID(t *testing.T) {
	sys, base := newTestSystem(t)
	data, err := os.ReadFile(filepath.Join(base, "humans", "alice.yaml"))
	if err != nil {
		t.Fatalf("unexpected error reading back the human file: %v", err)
	}
	if !contains(string(data), "agent_id") {
		t.Fatal("expected spawnHumanAgent to have persisted a generated agent_id")
	}

	id, err := sys.BindHumanAgent("alice", "hunter2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sys.Agent(id) == nil {
		t.Fatal("expected the bound agent id to resolve to a live agent")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}

func TestCreateTask_SeedsTaskUnderTheManager(t *testing.T) {
	sys, _ := newTestSystem(t)
	task, err := sys.CreateTask("build a thing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ManagerID != "manager" {
		t.Fatalf("expected the manager as the task owner, got %q", task.ManagerID)
	}
	if sys.Task(task.ID) != task {
		t.Fatal("expected the task retrievable by id")
	}
	if len(sys.Tasks()) != 1 {
		t.Fatalf("expected exactly one known task, got %d", len(sys.Tasks()))
	}
}

func TestAgentStates_IncludesEverySpawnedAgent(t *testing.T) {
	sys, _ := newTestSystem(t)
	sys.EnsureFromRole("analyst")

	states := sys.AgentStates()
	ids := make(map[string]bool, len(states))
	for _, s := range states {
		ids[s.ID] = true
	}
	if !ids["manager"] || !ids["analyst"] {
		t.Fatalf("expected manager and analyst both present, got %+v", ids)
	}
}

func TestShutdown_StopsWithoutHanging(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "agents"), "manager.yaml",
		"name: manager\nrole: manager\nllm_config:\n  api_type: ollama\n  model: llama3\n")
	sys, err := mas.New(context.Background(), mas.Config{RolesDir: base})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		sys.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Shutdown to return promptly")
	}
}
