// Package dispatch implements the message dispatcher: a single
// goroutine owning an inbound channel, routing Messages between agents
// and correlating waiting/reply pairs.
//
// Modeled on internal/mcp/manager.go's single-owner-goroutine
// convention, generalized from "one manager per tool server" to "one
// dispatcher for the whole system".
package dispatch

import (
	"context"
	"log"
	"sync"

	"github.com/motern88/allen/internal/state"
)

// AgentDirectory resolves agent ids to their runnable loop. Defined
// locally (rather than reusing internal/syncstate.AgentDirectory) so
// dispatch does not need to import syncstate.
type AgentDirectory interface {
	Agent(agentID string) state.Agent
}

// waitEntry is one outstanding waiting_id registration.
type waitEntry struct {
	taskID   string
	senderID string
}

// Dispatcher is the single process-wide message router.
type Dispatcher struct {
	agents AgentDirectory

	inbound chan state.Message
	done    chan struct{}

	mu       sync.Mutex
	waiting  map[string]waitEntry // waiting_id -> entry
	byTask   map[string]map[string]bool // task_id -> set of waiting_ids
}

// New creates a Dispatcher over agents and starts its goroutine.
func New(agents AgentDirectory) *Dispatcher {
	d := &Dispatcher{
		agents:  agents,
		inbound: make(chan state.Message, 256),
		done:    make(chan struct{}),
		waiting: make(map[string]waitEntry),
		byTask:  make(map[string]map[string]bool),
	}
	go d.loop()
	return d
}

// Send implements syncstate.Dispatcher: hands a Message to the
// dispatcher's inbound channel.
func (d *Dispatcher) Send(msg state.Message) {
	select {
	case d.inbound <- msg:
	case <-d.done:
	}
}

func (d *Dispatcher) loop() {
	for {
		select {
		case msg := <-d.inbound:
			d.deliver(msg)
		case <-d.done:
			return
		}
	}
}

func (d *Dispatcher) deliver(msg state.Message) {
	if len(msg.Receivers) == 0 {
		log.Printf("[dispatch] message from %s has zero receivers: dispatch/unknown-receiver", msg.SenderID)
		d.deliverErrorReply(msg, "dispatch/unknown-receiver: zero receivers")
		return
	}

	if msg.ReturnWaitingID != "" {
		d.resolveWait(msg.ReturnWaitingID, msg.Content)
	}

	if msg.Waiting && msg.WaitingID != "" {
		d.mu.Lock()
		d.waiting[msg.WaitingID] = waitEntry{taskID: msg.TaskID, senderID: msg.SenderID}
		if d.byTask[msg.TaskID] == nil {
			d.byTask[msg.TaskID] = make(map[string]bool)
		}
		d.byTask[msg.TaskID][msg.WaitingID] = true
		d.mu.Unlock()

		if sender := d.agents.Agent(msg.SenderID); sender != nil {
			sender.State().SetWorkingState(state.WorkingAwaiting)
		}
	}

	unknown := false
	for _, receiverID := range msg.Receivers {
		agent := d.agents.Agent(receiverID)
		if agent == nil {
			unknown = true
			continue
		}
		agent.ReceiveMessage(context.Background(), msg)
	}
	if unknown {
		d.deliverErrorReply(msg, "dispatch/unknown-receiver: one or more receivers not found")
	}
}

func (d *Dispatcher) resolveWait(waitingID, content string) {
	d.mu.Lock()
	entry, ok := d.waiting[waitingID]
	if ok {
		delete(d.waiting, waitingID)
		if set := d.byTask[entry.taskID]; set != nil {
			delete(set, waitingID)
		}
	}
	d.mu.Unlock()
	if !ok {
		return // duplicated reply: discarded
	}

	sender := d.agents.Agent(entry.senderID)
	if sender == nil {
		return
	}
	follow := state.NewStep(entry.taskID, "", entry.senderID, "resume after reply", state.StepTypeSkill, "planning")
	follow.TextContent = content
	sender.EnqueueStep(follow)
}

// deliverErrorReply synthesizes a delivery-error reply step to the
// sender, carrying reason as the step's text content.
func (d *Dispatcher) deliverErrorReply(msg state.Message, reason string) {
	sender := d.agents.Agent(msg.SenderID)
	if sender == nil {
		return
	}
	step := state.NewStep(msg.TaskID, "", msg.SenderID, "delivery error", state.StepTypeSkill, "quick_think")
	step.TextContent = reason
	sender.EnqueueStep(step)
}

// CancelTask releases every outstanding wait scoped to taskID with a
// task-ended synthetic reply: once a task finishes or fails, every
// wait registered against it is released.
func (d *Dispatcher) CancelTask(taskID string) {
	d.mu.Lock()
	ids := d.byTask[taskID]
	delete(d.byTask, taskID)
	var entries []waitEntry
	for id := range ids {
		if e, ok := d.waiting[id]; ok {
			entries = append(entries, e)
			delete(d.waiting, id)
		}
	}
	d.mu.Unlock()

	for _, e := range entries {
		sender := d.agents.Agent(e.senderID)
		if sender == nil {
			continue
		}
		follow := state.NewStep(e.taskID, "", e.senderID, "resume after task end", state.StepTypeSkill, "planning")
		follow.TextContent = "task-ended"
		sender.EnqueueStep(follow)
	}
}

// Close stops the dispatcher's goroutine.
func (d *Dispatcher) Close() {
	close(d.done)
}
