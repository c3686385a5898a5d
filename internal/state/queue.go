package state

import (
	"context"
	"sync"
)

// StepQueue is the FIFO of step ids awaiting execution on one agent.
// It is an unbounded blocking queue: Push never blocks, Pop blocks
// until an item is available, the context is cancelled, or the queue
// is closed.
//
// Modeled after session.Store's shutdown idiom (internal/session/store.go:
// a done channel closed once, checked in a select alongside the real
// work), generalized from "stop a ticker loop" to "stop a per-agent
// worker loop".
type StepQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []string
	closed bool
}

// NewStepQueue creates an empty queue.
func NewStepQueue() *StepQueue {
	q := &StepQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a step id to the back of the queue and wakes one waiter.
// Push on a closed queue is a silent no-op: a step enqueued after
// shutdown has nowhere to run.
func (q *StepQueue) Push(stepID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, stepID)
	q.cond.Signal()
}

// Pop blocks until an item is available, ctx is cancelled, or the queue
// is closed. ok is false in the latter two cases.
func (q *StepQueue) Pop(ctx context.Context) (stepID string, ok bool) {
	// Bridge ctx cancellation into the condvar by waking the waiter once
	// when ctx is done; sync.Cond has no native context support.
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		close(done)
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		select {
		case <-done:
			return "", false
		default:
		}
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return "", false
	}
	stepID, q.items = q.items[0], q.items[1:]
	return stepID, true
}

// Len reports the number of items currently queued — used to render
// the queue as its size.
func (q *StepQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close wakes every blocked Pop with ok=false. Safe to call more than
// once.
func (q *StepQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}
