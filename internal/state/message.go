package state

import (
	"context"
	"sync"
	"time"
)

// SharedMessage is one entry in a Task's append-only shared message
// log.
type SharedMessage struct {
	Timestamp time.Time
	AgentID   string
	Role      string
	StageID   string
	Content   string
}

// MessageLog is the bounded, append-only task-scoped broadcast log,
// kept-last-N to bound memory over a long-running task.
//
// Modeled on session.History's ring buffer (internal/session/history.go).
type MessageLog struct {
	mu       sync.RWMutex
	entries  []SharedMessage
	capacity int
}

// NewMessageLog creates a log retaining at most capacity entries.
func NewMessageLog(capacity int) *MessageLog {
	if capacity <= 0 {
		capacity = defaultMessageRetention
	}
	return &MessageLog{capacity: capacity}
}

// Append adds msg, evicting the oldest entry if the log is at capacity.
func (l *MessageLog) Append(msg SharedMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, msg)
	if over := len(l.entries) - l.capacity; over > 0 {
		l.entries = l.entries[over:]
	}
}

// Snapshot returns a copy of the currently retained entries, oldest first.
func (l *MessageLog) Snapshot() []SharedMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]SharedMessage, len(l.entries))
	copy(out, l.entries)
	return out
}

// NoRelative is the sentinel stage_relative value meaning a Message is
// not scoped to any particular stage.
const NoRelative = "no_relative"

// Message is the dispatcher envelope passed between agents and
// recorded into a task's shared log.
type Message struct {
	SenderID        string
	Receivers       []string
	TaskID          string
	StageRelative   string // stage id, or NoRelative
	Content         string
	NeedReply       bool
	Waiting         bool
	WaitingID       string
	ReturnWaitingID string
}

// Agent is the capability every task participant exposes to the rest
// of the runtime, unifying LLM-backed and human-backed agents behind
// one interface rather than a subclass hierarchy.
type Agent interface {
	// ID returns the agent's unique id.
	ID() string

	// EnqueueStep adds a step to this agent's AgentStep container,
	// making it eligible to run once reached by the agent's loop.
	EnqueueStep(step *Step)

	// ReceiveMessage runs parallel to the step loop: for an LLM agent
	// this appends a reply_message step; for a human agent this appends
	// to the relevant private conversation and surfaces the message for
	// the operator.
	ReceiveMessage(ctx context.Context, msg Message)

	// State returns the agent's underlying state, for callers (the
	// dispatcher, the synchronizer) that need to read or mutate it
	// directly rather than through a step.
	State() *AgentState
}
