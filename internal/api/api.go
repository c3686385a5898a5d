// Package api exposes the runtime's accessor surface over plain
// net/http: read agent state and submit messages and task
// requests. The operator dashboard itself is out of scope — this is
// only the thin JSON surface it would be built against, in the same
// spirit as internal/web's handler registration but trimmed to the
// six operations the runtime needs exposed.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/motern88/allen/internal/mas"
	"github.com/motern88/allen/internal/state"
)

var (
	errNeedsSingleReceiver = errors.New("api: send_private_message requires exactly one receiver")
	errNeedsReceivers      = errors.New("api: send_group_message requires at least one receiver")
)

func errUnknownAgent(id string) error {
	return fmt.Errorf("api: unknown agent %q", id)
}

// Handler serves the accessor surface against a single System.
type Handler struct {
	sys *mas.System
	mux *http.ServeMux
}

// NewHandler builds a Handler routing every endpoint to sys.
func NewHandler(sys *mas.System) *Handler {
	h := &Handler{sys: sys, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /api/states", h.ListStates)
	h.mux.HandleFunc("GET /api/state/{id}", h.GetState)
	h.mux.HandleFunc("POST /api/send_private_message", h.SendPrivateMessage)
	h.mux.HandleFunc("POST /api/send_group_message", h.SendGroupMessage)
	h.mux.HandleFunc("POST /api/bind_human_agent", h.BindHumanAgent)
	h.mux.HandleFunc("POST /api/create_task", h.CreateTask)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// agentStateView is the JSON projection of a state.AgentState — its
// unexported fields and mutex are never serialized directly.
type agentStateView struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Role             string   `json:"role"`
	Profile          string   `json:"profile"`
	WorkingState     string   `json:"working_state"`
	ToolPermissions  []string `json:"tool_permissions"`
	SkillPermissions []string `json:"skill_permissions"`
	QueueSize        int      `json:"queue_size"`
	IsHuman          bool     `json:"is_human"`
}

func renderAgentState(as *state.AgentState) agentStateView {
	return agentStateView{
		ID:               as.ID,
		Name:             as.Name,
		Role:             as.Role,
		Profile:          as.Profile,
		WorkingState:     string(as.GetWorkingState()),
		ToolPermissions:  as.ToolPermissions(),
		SkillPermissions: as.SkillPermissions(),
		QueueSize:        as.Steps.QueueSize(),
		IsHuman:          as.IsHuman(),
	}
}

// ListStates handles GET /api/states: every registered agent's state.
func (h *Handler) ListStates(w http.ResponseWriter, r *http.Request) {
	states := h.sys.AgentStates()
	out := make([]agentStateView, len(states))
	for i, as := range states {
		out[i] = renderAgentState(as)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetState handles GET /api/state/{id}: one agent's state, 404 if
// unknown.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	as := h.sys.Get(id)
	if as == nil {
		writeError(w, http.StatusNotFound, errUnknownAgent(id))
		return
	}
	writeJSON(w, http.StatusOK, renderAgentState(as))
}

type sendMessageRequest struct {
	SenderID  string `json:"sender_id"`
	Receivers []string `json:"receivers"`
	TaskID    string `json:"task_id"`
	StageID   string `json:"stage_id,omitempty"`
	Content   string `json:"content"`
	NeedReply bool   `json:"need_reply,omitempty"`
}

func decodeSendMessage(r *http.Request) (sendMessageRequest, error) {
	var req sendMessageRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}

// SendPrivateMessage handles POST /api/send_private_message: a message
// to a single receiver, e.g. an operator replying through a bound
// human agent.
func (h *Handler) SendPrivateMessage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSendMessage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Receivers) != 1 {
		writeError(w, http.StatusBadRequest, errNeedsSingleReceiver)
		return
	}
	stage := req.StageID
	if stage == "" {
		stage = state.NoRelative
	}
	h.sys.SendMessage(state.Message{
		SenderID:      req.SenderID,
		Receivers:     req.Receivers,
		TaskID:        req.TaskID,
		StageRelative: stage,
		Content:       req.Content,
		NeedReply:     req.NeedReply,
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// SendGroupMessage handles POST /api/send_group_message: a broadcast to
// every receiver listed.
func (h *Handler) SendGroupMessage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSendMessage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Receivers) == 0 {
		writeError(w, http.StatusBadRequest, errNeedsReceivers)
		return
	}
	stage := req.StageID
	if stage == "" {
		stage = state.NoRelative
	}
	h.sys.SendMessage(state.Message{
		SenderID:      req.SenderID,
		Receivers:     req.Receivers,
		TaskID:        req.TaskID,
		StageRelative: stage,
		Content:       req.Content,
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

type bindHumanAgentRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// BindHumanAgent handles POST /api/bind_human_agent: operator login,
// returning the agent id the operator's session now controls.
func (h *Handler) BindHumanAgent(w http.ResponseWriter, r *http.Request) {
	var req bindHumanAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	agentID, err := h.sys.BindHumanAgent(req.Name, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"agent_id": agentID})
}

type createTaskRequest struct {
	Intention string `json:"intention"`
}

// CreateTask handles POST /api/create_task: opens a new task against
// the manager agent.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	task, err := h.sys.CreateTask(req.Intention)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"task_id": task.ID})
}
