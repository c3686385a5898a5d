package state

import (
	"context"
	"sync"
)

// WorkingState is an AgentState's working_state
type WorkingState string

const (
	WorkingUnassigned WorkingState = "unassigned"
	WorkingIdle       WorkingState = "idle"
	WorkingWorking    WorkingState = "working"
	WorkingAwaiting   WorkingState = "awaiting"
)

// LLMConfig is an agent's LLM configuration block,
// loaded from internal/config's role/default-LLM YAML files.
type LLMConfig struct {
	Provider    string // "openai", "ollama"
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
}

// LLMClient is the minimal capability an LLM-backed agent needs from
// its model client. Defined here, rather than depending on
// internal/llm, so that state stays a leaf package with no import
// cycle back from internal/llm/* adapters that wrap it.
type LLMClient interface {
	// CallLLM sends the given turns and returns the assistant's reply.
	CallLLM(ctx context.Context, turns []DialogueTurn) (DialogueTurn, error)
	// Name identifies the provider/model, for logging.
	Name() string
}

// workingMemoryKey addresses one (task, stage) pair in an agent's
// working_memory view.
type workingMemoryKey struct {
	taskID  string
	stageID string
}

// AgentState is the full per-agent state. No lock is held across an
// executor's run: one agent's steps run one at a time on its loop
// goroutine, and the mutex here guards working state, working memory
// and the permission lists against concurrent access from the
// synchronizer, dispatcher and accessor surface (internal/api).
type AgentState struct {
	ID      string
	Name    string
	Role    string
	Profile string

	mu           sync.RWMutex
	workingState WorkingState
	workingMem   map[workingMemoryKey][]string // ordered step ids

	LLMConfig LLMConfig

	Persistent *PersistentMemory
	Steps      *AgentStep

	// toolPermissions is the ordered set of tool-server names this agent
	// may invoke. Guarded by mu: the synchronizer updates it from its own
	// goroutine while an in-flight executor concurrently reads it while
	// assembling a prompt or checking a permission.
	toolPermissions []string
	// skillPermissions is the set of skill names this agent may run,
	// guarded the same way as toolPermissions.
	skillPermissions []string

	// LLM holds the agent's model client; nil for human agents.
	LLM     LLMClient
	Dialogue *DialogueContext

	// privateMu guards ConversationPrivates independently of mu, since
	// human-agent message delivery (dispatcher goroutine) and step
	// execution (agent goroutine) touch it from different loops.
	privateMu            sync.Mutex
	ConversationPrivates map[string][]Message // peer agent id -> ordered messages
}

// NewLLMAgentState constructs AgentState for an LLM-backed agent.
func NewLLMAgentState(name, role, profile string, cfg LLMConfig, client LLMClient, dialogueCapacity int) *AgentState {
	id := NewID()
	return &AgentState{
		ID:           id,
		Name:         name,
		Role:         role,
		Profile:      profile,
		workingState: WorkingUnassigned,
		workingMem:   make(map[workingMemoryKey][]string),
		LLMConfig:    cfg,
		Persistent:   &PersistentMemory{},
		Steps:        NewAgentStep(id),
		LLM:          client,
		Dialogue:     NewDialogueContext(dialogueCapacity),
	}
}

// NewHumanAgentState constructs AgentState for a human-bound agent.
func NewHumanAgentState(name, role, profile string) *AgentState {
	s := &AgentState{
		ID:                   NewID(),
		Name:                 name,
		Role:                 role,
		Profile:              profile,
		workingState:         WorkingUnassigned,
		workingMem:           make(map[workingMemoryKey][]string),
		Persistent:           &PersistentMemory{},
		ConversationPrivates: make(map[string][]Message),
	}
	s.Steps = NewAgentStep(s.ID)
	return s
}

// IsHuman reports whether this agent has no LLM client.
func (a *AgentState) IsHuman() bool {
	return a.LLM == nil
}

// SetWorkingState updates working_state under lock.
func (a *AgentState) SetWorkingState(ws WorkingState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.workingState = ws
}

// GetWorkingState reads working_state under lock.
func (a *AgentState) GetWorkingState() WorkingState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.workingState
}

// RecordWorkingMemory appends a step id to the agent's open
// involvement for (taskID, stageID).
func (a *AgentState) RecordWorkingMemory(taskID, stageID, stepID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := workingMemoryKey{taskID, stageID}
	a.workingMem[k] = append(a.workingMem[k], stepID)
}

// WorkingMemory returns the ordered step ids recorded for (taskID, stageID).
func (a *AgentState) WorkingMemory(taskID, stageID string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	k := workingMemoryKey{taskID, stageID}
	out := make([]string, len(a.workingMem[k]))
	copy(out, a.workingMem[k])
	return out
}

// SetToolPermissions replaces the agent's tool-server allowlist under
// lock.
func (a *AgentState) SetToolPermissions(names []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.toolPermissions = names
}

// SetSkillPermissions replaces the agent's skill allowlist under lock.
func (a *AgentState) SetSkillPermissions(names []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skillPermissions = names
}

// ToolPermissions returns a copy of the agent's tool-server allowlist.
func (a *AgentState) ToolPermissions() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.toolPermissions))
	copy(out, a.toolPermissions)
	return out
}

// SkillPermissions returns a copy of the agent's skill allowlist.
func (a *AgentState) SkillPermissions() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.skillPermissions))
	copy(out, a.skillPermissions)
	return out
}

// HasToolPermission reports whether the agent may invoke the named
// tool-server.
func (a *AgentState) HasToolPermission(server string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, s := range a.toolPermissions {
		if s == server {
			return true
		}
	}
	return false
}

// HasSkillPermission reports whether the agent may run the named skill.
func (a *AgentState) HasSkillPermission(skill string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, s := range a.skillPermissions {
		if s == skill {
			return true
		}
	}
	return false
}

// AppendPrivateMessage records an inbound or outbound message in the
// per-peer private conversation.
func (a *AgentState) AppendPrivateMessage(peerID string, msg Message) {
	a.privateMu.Lock()
	defer a.privateMu.Unlock()
	if a.ConversationPrivates == nil {
		a.ConversationPrivates = make(map[string][]Message)
	}
	a.ConversationPrivates[peerID] = append(a.ConversationPrivates[peerID], msg)
}

// PrivateConversation returns a copy of the message list with the given peer.
func (a *AgentState) PrivateConversation(peerID string) []Message {
	a.privateMu.Lock()
	defer a.privateMu.Unlock()
	msgs := a.ConversationPrivates[peerID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
