// Package mas wires every process-wide component — the agent registry,
// the executor router, the synchronizer, the dispatcher, and the tool
// client multiplexer — into one running System, and owns the lifecycle
// (spawn, lazy dynamic creation, shutdown) of every agent in it.
package mas

import (
	"context"
	"fmt"
	"sync"

	"github.com/motern88/allen/internal/agentloop"
	"github.com/motern88/allen/internal/config"
	"github.com/motern88/allen/internal/dispatch"
	"github.com/motern88/allen/internal/executor/skill"
	"github.com/motern88/allen/internal/executor/toolexec"
	"github.com/motern88/allen/internal/router"
	"github.com/motern88/allen/internal/state"
	"github.com/motern88/allen/internal/syncstate"
	"github.com/motern88/allen/internal/toolclient"
)

// entry pairs a live agent with the cancel func for its action-loop
// goroutine, if any — human agents have none.
type entry struct {
	agent  state.Agent
	cancel context.CancelFunc
}

// System is the whole running process: one instance owns every agent,
// task, and background goroutine.
type System struct {
	mu      sync.RWMutex
	entries map[string]*entry

	roleByName map[string]config.RoleConfig
	humans     []config.HumanConfig

	router      *router.Router
	dispatcher  *dispatch.Dispatcher
	sync        *syncstate.Synchronizer
	multiplexer *toolclient.Multiplexer

	defaultLLM       config.LLMBlock
	dialogueCapacity int

	managerID string
}

// Config gathers the filesystem locations New reads at startup.
type Config struct {
	// RolesDir is scanned for <RolesDir>/agents/*.yaml and
	// <RolesDir>/humans/*.yaml (config.LoadRoles / config.LoadHumans).
	RolesDir string
	// ToolServersPath is the mcpServers YAML file (config.LoadToolServers).
	// Empty skips tool server setup entirely.
	ToolServersPath string
	// DefaultLLMPath is the fallback llm_config YAML file
	// (config.LoadDefaultLLM), used for agents created on the fly with no
	// matching role. Empty leaves the fallback at its zero value, which
	// buildLLMClient resolves to an OpenAI client configured from the
	// LLM_* environment variables.
	DefaultLLMPath string
	// DialogueCapacity bounds each LLM agent's rolling turn history.
	// Zero uses state.NewDialogueContext's default.
	DialogueCapacity int
}

// New loads every role and human config, creates the tool server
// multiplexer (servers connect lazily on first use), builds the router, and spawns the manager agent's action
// loop. Every other configured agent is instantiated lazily, on first
// reference, through EnsureFromRole.
func New(ctx context.Context, cfg Config) (*System, error) {
	roles, err := config.LoadRoles(cfg.RolesDir)
	if err != nil {
		return nil, fmt.Errorf("mas: load roles: %w", err)
	}
	humans, err := config.LoadHumans(cfg.RolesDir)
	if err != nil {
		return nil, fmt.Errorf("mas: load humans: %w", err)
	}

	var defaultLLM config.LLMBlock
	if cfg.DefaultLLMPath != "" {
		defaultLLM, err = config.LoadDefaultLLM(cfg.DefaultLLMPath)
		if err != nil {
			return nil, fmt.Errorf("mas: load default llm: %w", err)
		}
	}

	specs, err := loadToolSpecs(cfg.ToolServersPath)
	if err != nil {
		return nil, err
	}

	roleByName := make(map[string]config.RoleConfig, len(roles))
	for _, rc := range roles {
		roleByName[rc.Name] = rc
	}

	sys := &System{
		entries:          make(map[string]*entry),
		roleByName:       roleByName,
		humans:           humans,
		multiplexer:      toolclient.New(specs),
		defaultLLM:       defaultLLM,
		dialogueCapacity: cfg.DialogueCapacity,
	}

	sys.router = router.New()
	skill.Register(sys.router)
	toolexec.Register(sys.router, sys.multiplexer)

	sys.dispatcher = dispatch.New(sys)
	sys.sync = syncstate.New(sys, sys.dispatcher, syncstate.DefaultPolicy)

	if len(roles) == 0 {
		return nil, fmt.Errorf("mas: no roles configured under %q", cfg.RolesDir)
	}
	manager := roles[0]
	if manager.Role != config.ManagerRole {
		return nil, fmt.Errorf("mas: config.LoadRoles did not return the manager first")
	}
	sys.managerID = manager.Name
	if _, err := sys.spawnLLMAgent(ctx, manager); err != nil {
		return nil, fmt.Errorf("mas: spawn manager: %w", err)
	}

	for _, hc := range humans {
		if err := sys.spawnHumanAgent(hc); err != nil {
			return nil, fmt.Errorf("mas: spawn human %q: %w", hc.Name, err)
		}
	}

	return sys, nil
}

func loadToolSpecs(path string) ([]toolclient.ServerSpec, error) {
	if path == "" {
		return nil, nil
	}
	servers, err := config.LoadToolServers(path)
	if err != nil {
		return nil, fmt.Errorf("mas: load tool servers: %w", err)
	}
	specs := make([]toolclient.ServerSpec, 0, len(servers))
	for _, s := range servers {
		specs = append(specs, toolclient.ServerSpec{
			Name:        s.Name,
			Transport:   s.Transport,
			Command:     s.Command,
			Args:        s.Args,
			Env:         s.Env,
			URL:         s.URL,
			Description: s.UseGuide.Description,
		})
	}
	return specs, nil
}

// ManagerID returns the manager agent's id, used to bootstrap the
// first task.
func (s *System) ManagerID() string { return s.managerID }

// spawnLLMAgent instantiates and starts an LLM-backed agent's action
// loop from rc, keyed by rc.Name rather than a generated id: a
// configured agent's id is the name other agents and role files already
// know it by.
func (s *System) spawnLLMAgent(ctx context.Context, rc config.RoleConfig) (*state.AgentState, error) {
	llmBlock := rc.LLM
	if llmBlock.Model == "" {
		llmBlock = s.defaultLLM
	}
	client, llmCfg, err := buildLLMClient(llmBlock)
	if err != nil {
		return nil, err
	}

	as := state.NewLLMAgentState(rc.Name, rc.Role, rc.Profile, llmCfg, client, s.dialogueCapacity)
	as.ID = rc.Name
	as.Steps = state.NewAgentStep(rc.Name)
	as.SetToolPermissions(rc.Tools)
	as.SetSkillPermissions(rc.Skills)

	loop := agentloop.New(as, s.router, s.sync)
	loopCtx, cancel := context.WithCancel(ctx)
	go loop.Run(loopCtx)

	s.mu.Lock()
	s.entries[as.ID] = &entry{agent: loop, cancel: cancel}
	s.mu.Unlock()
	return as, nil
}

// spawnHumanAgent instantiates a human-bound agent from hc. If hc's
// file already carries a persisted agent_id from a prior run's bind,
// that id is reused so the operator's binding survives a restart;
// otherwise a new id is generated and written back immediately so it is
// stable from here on.
func (s *System) spawnHumanAgent(hc config.HumanConfig) error {
	as := state.NewHumanAgentState(hc.Name, hc.Role, hc.Profile)
	id := hc.Human.AgentID
	if id == "" {
		id = as.ID
		if err := config.PersistAgentID(hc.Path, id); err != nil {
			return err
		}
	} else {
		as.ID = id
		as.Steps = state.NewAgentStep(id)
	}
	as.SetToolPermissions(hc.Tools)
	as.SetSkillPermissions(hc.Skills)

	agent := NewHumanAgent(as)
	s.mu.Lock()
	s.entries[id] = &entry{agent: agent}
	s.mu.Unlock()
	return nil
}

// Get implements syncstate.AgentDirectory.
func (s *System) Get(agentID string) *state.AgentState {
	s.mu.RLock()
	e := s.entries[agentID]
	s.mu.RUnlock()
	if e == nil {
		return nil
	}
	return e.agent.State()
}

// Agent implements syncstate.AgentDirectory and dispatch.AgentDirectory.
func (s *System) Agent(agentID string) state.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entries[agentID]
	if e == nil {
		return nil
	}
	return e.agent
}

// EnsureFromRole implements syncstate.AgentDirectory: returns the
// already-running agent named agentID, lazily spawns it from a matching
// configured role on first reference, or — if agentID matches no
// configured role at all — creates a fresh agent on the default LLM, a
// bare id and no declared persona.
func (s *System) EnsureFromRole(agentID string) (*state.AgentState, error) {
	if existing := s.Get(agentID); existing != nil {
		return existing, nil
	}

	rc, ok := s.roleByName[agentID]
	if !ok {
		rc = config.RoleConfig{Name: agentID, Role: agentID}
	}
	return s.spawnLLMAgent(context.Background(), rc)
}

// BindHumanAgent checks name/password against configured human agents
// and returns the bound agent id on success.
func (s *System) BindHumanAgent(name, password string) (string, error) {
	for _, hc := range s.humans {
		if hc.Name != name {
			continue
		}
		if hc.Human.Password != password {
			return "", fmt.Errorf("mas: incorrect password for %q", name)
		}
		if existing := s.Agent(hc.Human.AgentID); existing != nil {
			return hc.Human.AgentID, nil
		}
		return "", fmt.Errorf("mas: human agent %q not registered", name)
	}
	return "", fmt.Errorf("mas: unknown human agent %q", name)
}

// CreateTask opens a new task with the manager as its owner.
func (s *System) CreateTask(intention string) (*state.Task, error) {
	return s.sync.AddTask(intention, s.managerID)
}

// Task returns the task with the given id, or nil.
func (s *System) Task(taskID string) *state.Task { return s.sync.Task(taskID) }

// Tasks returns a snapshot of every known task.
func (s *System) Tasks() []*state.Task { return s.sync.Tasks() }

// SendMessage routes msg through the dispatcher, for the accessor
// surface's send_private_message / send_group_message endpoints.
func (s *System) SendMessage(msg state.Message) {
	s.dispatcher.Send(msg)
}

// AgentStates returns a snapshot of every currently registered agent's
// state, for the accessor surface's list endpoint.
func (s *System) AgentStates() []*state.AgentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*state.AgentState, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.agent.State())
	}
	return out
}

// Shutdown cancels every running agent loop and closes the tool client
// multiplexer and dispatcher.
func (s *System) Shutdown() {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		if e.cancel != nil {
			e.cancel()
		}
	}
	s.dispatcher.Close()
	s.multiplexer.Close()
}
