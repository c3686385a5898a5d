package state

import "encoding/json"

// StepType distinguishes the two kinds of step execution: an LLM-driven
// skill versus a tool invocation.
type StepType string

const (
	StepTypeSkill StepType = "skill"
	StepTypeTool  StepType = "tool"
)

// StepState is a Step's execution_state.
type StepState string

const (
	StepInit    StepState = "init"
	StepPending StepState = "pending" // tool step awaiting instruction fill
	StepRunning StepState = "running"
	StepFinished StepState = "finished"
	StepFailed  StepState = "failed"
)

// ExecuteResult is the structured outcome recorded on a Step.
// Exactly one of Text/Data is normally populated on success; on failure
// Error/ErrorKind carry the upstream failure, and Text keeps the raw
// response when Post rejected one.
type ExecuteResult struct {
	Text      string          `json:"text,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
}

// IsEmpty reports whether no result has been recorded yet: a step's
// execute_result is non-empty exactly when its execution_state has
// reached StepFinished or StepFailed.
func (r ExecuteResult) IsEmpty() bool {
	return r.Text == "" && len(r.Data) == 0 && r.Error == "" && r.ErrorKind == ""
}

// Step is the smallest unit of agent execution.
type Step struct {
	ID      string
	TaskID  string
	StageID string
	AgentID string

	Intention      string
	Type           StepType
	ExecutorName   string
	ExecutionState StepState

	// TextContent is the request prompt body for skill steps.
	TextContent string

	// InstructionContent is the structured invocation payload produced by
	// the instruction_generation skill for tool steps. A tool step may not
	// transition to StepRunning until this is populated.
	InstructionContent json.RawMessage

	// ReplyToAgentID and ReplyWaitingID are set on reply_message steps
	// created from the task-receipt path: the agent id to
	// send the reply to, and the waiting_id to echo back as
	// return_waiting_id, if the inbound message required one.
	ReplyToAgentID string
	ReplyWaitingID string

	ExecuteResult ExecuteResult
}

// NewStep constructs a Step in its initial state.
func NewStep(taskID, stageID, agentID, intention string, typ StepType, executorName string) *Step {
	return &Step{
		ID:             NewID(),
		TaskID:         taskID,
		StageID:        stageID,
		AgentID:        agentID,
		Intention:      intention,
		Type:           typ,
		ExecutorName:   executorName,
		ExecutionState: StepInit,
	}
}

// ReadyToRun reports whether the step may transition to StepRunning,
// enforcing tool-step instruction invariant.
func (s *Step) ReadyToRun() bool {
	if s.Type == StepTypeTool && len(s.InstructionContent) == 0 {
		return false
	}
	return true
}
