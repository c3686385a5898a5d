// Package syncstate implements the synchronizer that is the sole
// component permitted to mutate Tasks and Stages. Its single entry
// point, Sync, interprets a fixed, ordered, idempotent set of
// execute_output fields.
//
// Modeled on internal/mcp/manager.go's concurrency convention
// (network/agent-visible I/O happens while holding only the lock that
// specific mutation needs; never one big process-wide lock),
// generalized here to a per-task mutex so unrelated tasks advance in
// parallel.
package syncstate

import (
	"fmt"
	"sync"
	"time"

	"github.com/motern88/allen/internal/executor"
	"github.com/motern88/allen/internal/state"
)

// AgentDirectory resolves agent ids to live AgentState and backing
// Agent loops. Defined as an interface here (rather than importing
// internal/mas directly) to avoid a package cycle: mas constructs the
// Synchronizer and so must not be imported by it.
type AgentDirectory interface {
	// Get returns the agent's state, or nil if unknown.
	Get(agentID string) *state.AgentState
	// Agent returns the agent's runnable loop (for step/queue delivery),
	// or nil if unknown.
	Agent(agentID string) state.Agent
	// EnsureFromRole instantiates an absent agent from its role config
	// and registers it, returning the (possibly pre-existing) state.
	EnsureFromRole(agentID string) (*state.AgentState, error)
}

// Dispatcher accepts a constructed Message for delivery to its
// receivers, used for an Output's send_message field without
// importing internal/dispatch directly. CancelTask
// releases every outstanding wait scoped to a task once that task
// reaches a terminal execution state.
type Dispatcher interface {
	Send(msg state.Message)
	CancelTask(taskID string)
}

// Policy configures synchronizer behavior left open by // Open Questions.
type Policy struct {
	// StrictFailure decides the outcome once every allocated agent has
	// reached a terminal state: when true, the stage (and so its task,
	// transitively) is marked failed if any agent ended in
	// ParticipationFailed; when false, the stage is marked finished.
	// Defaults to true.
	StrictFailure bool
}

// DefaultPolicy is the synchronizer's default policy.
var DefaultPolicy = Policy{StrictFailure: true}

// Synchronizer is a single process-wide instance holding task_id -> Task.
type Synchronizer struct {
	mu        sync.Mutex
	tasks     map[string]*state.Task
	taskLocks map[string]*sync.Mutex

	agents     AgentDirectory
	dispatcher Dispatcher
	policy     Policy
}

// New creates a Synchronizer.
func New(agents AgentDirectory, dispatcher Dispatcher, policy Policy) *Synchronizer {
	return &Synchronizer{
		tasks:      make(map[string]*state.Task),
		taskLocks:  make(map[string]*sync.Mutex),
		agents:     agents,
		dispatcher: dispatcher,
		policy:     policy,
	}
}

// Task returns the task with the given id, or nil.
func (s *Synchronizer) Task(taskID string) *state.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[taskID]
}

// Tasks returns a snapshot of every known task.
func (s *Synchronizer) Tasks() []*state.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*state.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}

func (s *Synchronizer) lockFor(taskID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.taskLocks[taskID]
	if !ok {
		l = &sync.Mutex{}
		s.taskLocks[taskID] = l
	}
	return l
}

// Sync applies one executor.Output's fields in a fixed order —
// add_task, then the task-scoped fields, then permission updates, with
// send_message always last — so a recipient never observes a stale
// stage.
func (s *Synchronizer) Sync(output executor.Output) error {
	if output.AddTask != nil {
		if _, err := s.applyAddTask(output.AddTask); err != nil {
			return err
		}
	}

	taskID := resolveTaskID(output)
	if taskID != "" {
		lock := s.lockFor(taskID)
		lock.Lock()
		defer lock.Unlock()

		task := s.Task(taskID)
		if task == nil {
			return fmt.Errorf("syncstate: unknown task %q", taskID)
		}

		if output.UpdateStageAgentState != nil {
			if err := s.applyStageAgentState(task, output.UpdateStageAgentState); err != nil {
				return err
			}
		}
		if output.SendSharedMessage != nil {
			s.applySendSharedMessage(task, output.SendSharedMessage)
		}
		if output.AddStage != nil {
			if err := s.applyAddStage(task, output.AddStage); err != nil {
				return err
			}
		}
		if output.UpdateTaskState != nil {
			s.applyTaskState(task, output.UpdateTaskState.State)
		}
	}

	if output.UpdateAgentTools != nil {
		s.applyPermission(output.UpdateAgentTools, true)
	}
	if output.UpdateAgentSkills != nil {
		s.applyPermission(output.UpdateAgentSkills, false)
	}

	if output.SendMessage != nil {
		s.dispatcher.Send(*output.SendMessage)
	}
	return nil
}

func resolveTaskID(output executor.Output) string {
	switch {
	case output.UpdateStageAgentState != nil:
		return output.UpdateStageAgentState.TaskID
	case output.SendSharedMessage != nil:
		return output.SendSharedMessage.TaskID
	case output.AddStage != nil:
		return output.AddStage.TaskID
	case output.UpdateTaskState != nil:
		return output.UpdateTaskState.TaskID
	default:
		return ""
	}
}

func (s *Synchronizer) applyAddTask(add *executor.AddTaskUpdate) (*state.Task, error) {
	manager, err := s.agents.EnsureFromRole(add.ManagerID)
	if err != nil {
		return nil, fmt.Errorf("syncstate: add_task: %w", err)
	}

	task := state.NewTask(add.Intention, manager.ID)

	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()

	step := state.NewStep(task.ID, "", manager.ID, add.Intention, state.StepTypeSkill, "stage_planning")
	manager.Steps.AddStep(step)
	manager.RecordWorkingMemory(task.ID, "", step.ID)
	return task, nil
}

// AddTask opens a new task directly, for entrypoints that have no
// step's execute_output to route it through (the process bootstrap,
// an API-triggered task creation).
func (s *Synchronizer) AddTask(intention, managerID string) (*state.Task, error) {
	return s.applyAddTask(&executor.AddTaskUpdate{Intention: intention, ManagerID: managerID})
}

// applyTaskState sets a task's execution state and, when the new state
// is terminal, releases every wait the dispatcher has outstanding
// against it with a synthetic task-ended reply — otherwise an agent
// waiting on a reply from a task that just finished or failed would
// hang forever.
func (s *Synchronizer) applyTaskState(task *state.Task, newState state.TaskExecState) {
	task.ExecutionState = newState
	if newState == state.TaskFinished || newState == state.TaskFailed {
		s.dispatcher.CancelTask(task.ID)
	}
}

func (s *Synchronizer) applyStageAgentState(task *state.Task, upd *executor.StageAgentStateUpdate) error {
	stage := task.StageByID(upd.StageID)
	if stage == nil {
		return fmt.Errorf("syncstate: unknown stage %q in task %q", upd.StageID, task.ID)
	}
	stage.PerAgentState[upd.AgentID] = upd.State
	return s.checkStageCompletion(task, stage)
}

// checkStageCompletion finishes stage if every allocated agent has
// reached a terminal participation state, then activates the next
// planned stage. Activation re-enters here, so a newly activated stage
// that is itself already complete (notably an empty stage with no
// assigned agents) finishes immediately instead of waiting on a
// participation update that will never arrive.
func (s *Synchronizer) checkStageCompletion(task *state.Task, stage *state.Stage) error {
	if !stage.Complete() {
		return nil
	}

	if stage.AnyFailed() && s.policy.StrictFailure {
		stage.ExecutionState = state.StageFailed
		s.applyTaskState(task, state.TaskFailed)
		return nil
	}
	stage.ExecutionState = state.StageFinished

	next := task.NextStage(stage)
	if next == nil {
		// No stage has been planned past this one yet. Rather than guessing
		// whether the task is done, hand it back to the manager's
		// stage_planning skill: it either adds the next stage or, seeing
		// nothing left to do, sets update_task_state itself.
		manager := s.agents.Get(task.ManagerID)
		if manager == nil {
			return fmt.Errorf("syncstate: task %q has no manager agent %q", task.ID, task.ManagerID)
		}
		step := state.NewStep(task.ID, "", task.ManagerID, task.Intention, state.StepTypeSkill, "stage_planning")
		manager.Steps.AddStep(step)
		manager.RecordWorkingMemory(task.ID, "", step.ID)
		return nil
	}

	return s.activateStage(task, next)
}

// activateStage marks stage running, enqueues a planning step for every
// allocated agent, and immediately re-checks completion so an empty
// stage is marked finished upon activation rather than hanging forever.
func (s *Synchronizer) activateStage(task *state.Task, stage *state.Stage) error {
	stage.ExecutionState = state.StageRunning
	for agentID, responsibility := range stage.AgentAllocation {
		agentState := s.agents.Get(agentID)
		if agentState == nil {
			continue
		}
		step := state.NewStep(task.ID, stage.ID, agentID, responsibility, state.StepTypeSkill, "planning")
		agentState.Steps.AddStep(step)
		agentState.RecordWorkingMemory(task.ID, stage.ID, step.ID)
	}
	return s.checkStageCompletion(task, stage)
}

func (s *Synchronizer) applySendSharedMessage(task *state.Task, upd *executor.SharedMessageUpdate) {
	task.AppendMessage(state.SharedMessage{
		Timestamp: time.Now(),
		AgentID:   upd.AgentID,
		Role:      upd.Role,
		StageID:   upd.StageID,
		Content:   upd.Content,
	})
}

func (s *Synchronizer) applyAddStage(task *state.Task, add *executor.AddStageUpdate) error {
	stage := state.NewStage(task.ID, add.Intention, add.Allocation)
	for agentID := range add.Allocation {
		task.AddToGroup(agentID)
	}

	first := len(task.Stages()) == 0
	task.AppendStage(stage)

	if !first {
		return nil
	}

	return s.activateStage(task, stage)
}

func (s *Synchronizer) applyPermission(upd *executor.PermissionUpdate, tools bool) {
	agentState := s.agents.Get(upd.AgentID)
	if agentState == nil {
		return
	}
	if tools {
		agentState.SetToolPermissions(upd.Names)
	} else {
		agentState.SetSkillPermissions(upd.Names)
	}
}
