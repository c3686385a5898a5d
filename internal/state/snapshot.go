package state

// TaskSnapshot is the JSON-serializable projection of a Task used by the
// offline save/load hooks below. Nothing in internal/mas calls these
// today — persistence across restarts is out of scope — but the shape
// exists so a future store can serialize and rebuild a Task without
// reaching into its unexported fields.
type TaskSnapshot struct {
	ID             string          `json:"id"`
	Intention      string          `json:"intention"`
	ManagerID      string          `json:"manager_id"`
	Group          []string        `json:"group"`
	Stages         []*Stage        `json:"stages"`
	Messages       []SharedMessage `json:"messages"`
	ExecutionState TaskExecState   `json:"execution_state"`
	Summary        string          `json:"summary"`
}

// Snapshot captures t's current state for offline storage.
func (t *Task) Snapshot() TaskSnapshot {
	t.mu.RLock()
	group := make([]string, 0, len(t.Group))
	for id := range t.Group {
		group = append(group, id)
	}
	stages := make([]*Stage, len(t.stages))
	copy(stages, t.stages)
	t.mu.RUnlock()

	return TaskSnapshot{
		ID:             t.ID,
		Intention:      t.Intention,
		ManagerID:      t.ManagerID,
		Group:          group,
		Stages:         stages,
		Messages:       t.Messages(),
		ExecutionState: t.ExecutionState,
		Summary:        t.Summary,
	}
}

// RestoreTask rebuilds a Task from a previously captured snapshot,
// replaying its messages into a fresh bounded log.
func RestoreTask(snap TaskSnapshot) *Task {
	group := make(map[string]struct{}, len(snap.Group))
	for _, id := range snap.Group {
		group[id] = struct{}{}
	}
	log := NewMessageLog(defaultMessageRetention)
	for _, msg := range snap.Messages {
		log.Append(msg)
	}
	return &Task{
		ID:             snap.ID,
		Intention:      snap.Intention,
		ManagerID:      snap.ManagerID,
		Group:          group,
		stages:         snap.Stages,
		log:            log,
		ExecutionState: snap.ExecutionState,
		Summary:        snap.Summary,
	}
}

// AgentStateSnapshot is the JSON-serializable projection of an
// AgentState, mirroring TaskSnapshot for the other state kind a future
// offline store would need to persist.
type AgentStateSnapshot struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Role             string   `json:"role"`
	Profile          string   `json:"profile"`
	ToolPermissions  []string `json:"tool_permissions"`
	SkillPermissions []string `json:"skill_permissions"`
	DialogueTurns    []DialogueTurn `json:"dialogue_turns"`
}

// Snapshot captures as's current identity, permissions, and dialogue
// history for offline storage.
func (as *AgentState) Snapshot() AgentStateSnapshot {
	var turns []DialogueTurn
	if as.Dialogue != nil {
		turns = as.Dialogue.Turns()
	}
	return AgentStateSnapshot{
		ID:               as.ID,
		Name:             as.Name,
		Role:             as.Role,
		Profile:          as.Profile,
		ToolPermissions:  as.ToolPermissions(),
		SkillPermissions: as.SkillPermissions(),
		DialogueTurns:    turns,
	}
}
