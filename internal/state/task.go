package state

import "sync"

// TaskExecState is a Task's execution_state.
type TaskExecState string

const (
	TaskInit     TaskExecState = "init"
	TaskRunning  TaskExecState = "running"
	TaskFinished TaskExecState = "finished"
	TaskFailed   TaskExecState = "failed"
)

// StageExecState is a Stage's execution_state.
type StageExecState string

const (
	StageInit     StageExecState = "init"
	StageRunning  StageExecState = "running"
	StageFinished StageExecState = "finished"
	StageFailed   StageExecState = "failed"
)

// AgentParticipation is a Stage's per-agent participation state.
type AgentParticipation string

const (
	ParticipationIdle     AgentParticipation = "idle"
	ParticipationWorking  AgentParticipation = "working"
	ParticipationFinished AgentParticipation = "finished"
	ParticipationFailed   AgentParticipation = "failed"
)

// defaultMessageRetention bounds the task-scoped broadcast log:
// unbounded upstream, kept-last-N here.
const defaultMessageRetention = 500

// Stage is an ordered sub-phase of a Task.
// All fields are only ever mutated by the synchronizer
// (internal/syncstate), under the owning Task's lock.
type Stage struct {
	TaskID    string
	ID        string
	Intention string

	// AgentAllocation maps agent id -> human-readable responsibility.
	AgentAllocation map[string]string
	// PerAgentState maps agent id -> participation state.
	PerAgentState map[string]AgentParticipation
	// CompletionSummary maps agent id -> free-text summary left by that
	// agent's last step in this stage.
	CompletionSummary map[string]string

	ExecutionState StageExecState
}

// NewStage constructs a Stage in StageInit with every allocated agent
// seeded at ParticipationIdle.
func NewStage(taskID, intention string, allocation map[string]string) *Stage {
	perAgent := make(map[string]AgentParticipation, len(allocation))
	for agentID := range allocation {
		perAgent[agentID] = ParticipationIdle
	}
	return &Stage{
		TaskID:            taskID,
		ID:                NewID(),
		Intention:         intention,
		AgentAllocation:   allocation,
		PerAgentState:     perAgent,
		CompletionSummary: make(map[string]string),
		ExecutionState:    StageInit,
	}
}

// Complete reports whether every allocated agent has reached a terminal
// participation state. An empty stage (no assigned agents) is
// vacuously complete.
func (s *Stage) Complete() bool {
	for _, st := range s.PerAgentState {
		if st != ParticipationFinished && st != ParticipationFailed {
			return false
		}
	}
	return true
}

// AnyFailed reports whether any allocated agent ended in
// ParticipationFailed — used to apply the strict-failure stage policy.
func (s *Stage) AnyFailed() bool {
	for _, st := range s.PerAgentState {
		if st == ParticipationFailed {
			return true
		}
	}
	return false
}

// Task is a user-originated unit of work.
type Task struct {
	ID        string
	Intention string
	ManagerID string
	// Group is the set of agent ids allowed to participate in this task.
	Group map[string]struct{}

	mu     sync.RWMutex
	stages []*Stage
	log    *MessageLog

	ExecutionState TaskExecState
	Summary        string
}

// NewTask constructs a Task with an empty stage list and an empty
// shared message log bounded at defaultMessageRetention entries.
func NewTask(intention, managerID string) *Task {
	return &Task{
		ID:             NewID(),
		Intention:      intention,
		ManagerID:      managerID,
		Group:          map[string]struct{}{managerID: {}},
		log:            NewMessageLog(defaultMessageRetention),
		ExecutionState: TaskInit,
	}
}

// AddToGroup adds an agent id to the task's group: every agent
// referenced in any stage must appear here.
func (t *Task) AddToGroup(agentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Group[agentID] = struct{}{}
}

// InGroup reports whether agentID is a member of the task's group.
func (t *Task) InGroup(agentID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.Group[agentID]
	return ok
}

// Stages returns a snapshot slice of the task's stages in order.
func (t *Task) Stages() []*Stage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Stage, len(t.stages))
	copy(out, t.stages)
	return out
}

// AppendStage appends a fully-formed stage.
func (t *Task) AppendStage(s *Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages = append(t.stages, s)
}

// StageByID returns the stage with the given id, or nil.
func (t *Task) StageByID(stageID string) *Stage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.stages {
		if s.ID == stageID {
			return s
		}
	}
	return nil
}

// RunningStage returns the stage currently in StageRunning, or nil —
// used to enforce that at most one stage is running at any instant.
func (t *Task) RunningStage() *Stage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.stages {
		if s.ExecutionState == StageRunning {
			return s
		}
	}
	return nil
}

// NextStage returns the stage immediately after cur in task order, or
// nil if cur is the last stage.
func (t *Task) NextStage(cur *Stage) *Stage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, s := range t.stages {
		if s.ID == cur.ID {
			if i+1 < len(t.stages) {
				return t.stages[i+1]
			}
			return nil
		}
	}
	return nil
}

// AppendMessage appends to the shared message log.
func (t *Task) AppendMessage(msg SharedMessage) {
	t.log.Append(msg)
}

// Messages returns a snapshot of the retained shared message log.
func (t *Task) Messages() []SharedMessage {
	return t.log.Snapshot()
}
