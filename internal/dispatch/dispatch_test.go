package dispatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/motern88/allen/internal/dispatch"
	"github.com/motern88/allen/internal/state"
)

type fakeAgent struct {
	agentState *state.AgentState

	mu       sync.Mutex
	received []state.Message
	enqueued []*state.Step
	receivedCh chan state.Message
	enqueuedCh chan *state.Step
}

func newFakeAgent(id string) *fakeAgent {
	as := state.NewHumanAgentState(id, "role", "")
	as.ID = id
	return &fakeAgent{agentState: as, receivedCh: make(chan state.Message, 16), enqueuedCh: make(chan *state.Step, 16)}
}

func (f *fakeAgent) ID() string { return f.agentState.ID }
func (f *fakeAgent) EnqueueStep(step *state.Step) {
	f.mu.Lock()
	f.enqueued = append(f.enqueued, step)
	f.mu.Unlock()
	f.enqueuedCh <- step
}
func (f *fakeAgent) ReceiveMessage(ctx context.Context, msg state.Message) {
	f.mu.Lock()
	f.received = append(f.received, msg)
	f.mu.Unlock()
	f.receivedCh <- msg
}
func (f *fakeAgent) State() *state.AgentState { return f.agentState }

type fakeDirectory struct {
	mu     sync.Mutex
	agents map[string]*fakeAgent
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{agents: make(map[string]*fakeAgent)}
}

func (d *fakeDirectory) add(a *fakeAgent) {
	d.mu.Lock()
	d.agents[a.ID()] = a
	d.mu.Unlock()
}

func (d *fakeDirectory) Agent(agentID string) state.Agent {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.agents[agentID]
	if !ok {
		return nil
	}
	return a
}

const waitTimeout = 2 * time.Second

func TestDispatcher_DeliversToKnownReceiver(t *testing.T) {
	dir := newFakeDirectory()
	receiver := newFakeAgent("bob")
	dir.add(receiver)
	d := dispatch.New(dir)
	defer d.Close()

	d.Send(state.Message{SenderID: "alice", Receivers: []string{"bob"}, Content: "hello"})

	select {
	case msg := <-receiver.receivedCh:
		if msg.Content != "hello" {
			t.Fatalf("unexpected message content: %q", msg.Content)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestDispatcher_UnknownReceiverSendsErrorReplyToSender(t *testing.T) {
	dir := newFakeDirectory()
	sender := newFakeAgent("alice")
	dir.add(sender)
	d := dispatch.New(dir)
	defer d.Close()

	d.Send(state.Message{SenderID: "alice", Receivers: []string{"ghost"}, Content: "hello"})

	select {
	case step := <-sender.enqueuedCh:
		if step.ExecutorName != "quick_think" {
			t.Fatalf("expected a quick_think delivery-error step, got %q", step.ExecutorName)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the delivery-error step")
	}
}

func TestDispatcher_ZeroReceiversSendsErrorReplyToSender(t *testing.T) {
	dir := newFakeDirectory()
	sender := newFakeAgent("alice")
	dir.add(sender)
	d := dispatch.New(dir)
	defer d.Close()

	d.Send(state.Message{SenderID: "alice", Receivers: nil, Content: "hello"})

	select {
	case <-sender.enqueuedCh:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the zero-receiver error step")
	}
}

func TestDispatcher_WaitingMessageMarksSenderAwaiting(t *testing.T) {
	dir := newFakeDirectory()
	sender := newFakeAgent("alice")
	receiver := newFakeAgent("bob")
	dir.add(sender)
	dir.add(receiver)
	d := dispatch.New(dir)
	defer d.Close()

	d.Send(state.Message{SenderID: "alice", Receivers: []string{"bob"}, Content: "question", Waiting: true, WaitingID: "wait-1", TaskID: "task-1"})

	select {
	case <-receiver.receivedCh:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for delivery")
	}
	deadline := time.Now().Add(waitTimeout)
	for sender.agentState.GetWorkingState() != state.WorkingAwaiting {
		if time.Now().After(deadline) {
			t.Fatalf("expected sender marked awaiting, got %q", sender.agentState.GetWorkingState())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDispatcher_ReturnWaitingIDResumesSenderWithAPlanningStep(t *testing.T) {
	dir := newFakeDirectory()
	sender := newFakeAgent("alice")
	receiver := newFakeAgent("bob")
	dir.add(sender)
	dir.add(receiver)
	d := dispatch.New(dir)
	defer d.Close()

	d.Send(state.Message{SenderID: "alice", Receivers: []string{"bob"}, Content: "question", Waiting: true, WaitingID: "wait-1", TaskID: "task-1"})
	select {
	case <-receiver.receivedCh:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the question to be delivered")
	}

	d.Send(state.Message{SenderID: "bob", Receivers: []string{"alice"}, Content: "the answer", ReturnWaitingID: "wait-1", TaskID: "task-1"})

	select {
	case step := <-sender.enqueuedCh:
		if step.ExecutorName != "planning" || step.TextContent != "the answer" {
			t.Fatalf("expected a resume planning step carrying the reply, got %+v", step)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the resume step")
	}
}

func TestDispatcher_CancelTaskReleasesOutstandingWaits(t *testing.T) {
	dir := newFakeDirectory()
	sender := newFakeAgent("alice")
	receiver := newFakeAgent("bob")
	dir.add(sender)
	dir.add(receiver)
	d := dispatch.New(dir)
	defer d.Close()

	d.Send(state.Message{SenderID: "alice", Receivers: []string{"bob"}, Content: "question", Waiting: true, WaitingID: "wait-1", TaskID: "task-1"})
	select {
	case <-receiver.receivedCh:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the question to be delivered")
	}

	d.CancelTask("task-1")

	select {
	case step := <-sender.enqueuedCh:
		if step.TextContent != "task-ended" {
			t.Fatalf("expected a task-ended resume step, got %+v", step)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the cancel-task resume step")
	}
}
