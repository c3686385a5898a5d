package executor

import "github.com/motern88/allen/internal/state"

// StageAgentStateUpdate is the update_stage_agent_state field of
// execute_output.
type StageAgentStateUpdate struct {
	TaskID  string
	StageID string
	AgentID string
	State   state.AgentParticipation
}

// SharedMessageUpdate is the send_shared_message field of
// execute_output. Timestamping and appending it as a state.SharedMessage
// are the synchronizer's responsibility.
type SharedMessageUpdate struct {
	TaskID  string
	AgentID string
	Role    string
	StageID string
	Content string
}

// AddTaskUpdate is the add_task field of execute_output.
type AddTaskUpdate struct {
	Intention string
	ManagerID string
}

// AddStageUpdate is the add_stage field of execute_output.
// Allocation maps agent id -> responsibility text.
type AddStageUpdate struct {
	TaskID     string
	Intention  string
	Allocation map[string]string
}

// TaskStateUpdate is the update_task_state field of execute_output —
// an explicit override used by manager agents for early termination.
type TaskStateUpdate struct {
	TaskID string
	State  state.TaskExecState
}

// PermissionUpdate is the update_agent_tools / update_agent_skills
// field of execute_output.
type PermissionUpdate struct {
	AgentID string
	Names   []string
}

// Output is the structured execute_output every executor produces.
// Every field is independent and idempotent to apply; the
// synchronizer (internal/syncstate) is the sole interpreter.
type Output struct {
	UpdateStageAgentState *StageAgentStateUpdate
	SendSharedMessage     *SharedMessageUpdate
	AddTask               *AddTaskUpdate
	AddStage              *AddStageUpdate
	UpdateTaskState       *TaskStateUpdate
	SendMessage           *state.Message
	UpdateAgentTools      *PermissionUpdate
	UpdateAgentSkills     *PermissionUpdate
}
