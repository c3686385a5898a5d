// Package router resolves a step's (executor_type, executor_name) pair
// to a ready executor instance.
//
// Modeled on tool.Registry (internal/tool/registry.go), generalized
// from a single mutex-guarded map to a lock-free atomic.Pointer swap,
// since every step dequeue performs a lookup and that path should stay
// lock-free.
package router

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/motern88/allen/internal/state"
)

// ErrorKind values produced by the router.
const (
	ErrUnknownExecutor = "router/unknown-executor"
)

// RouterError reports a failed executor lookup.
type RouterError struct {
	Kind string
	Type string
	Name string
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("%s: no executor registered for type=%q name=%q", e.Kind, e.Type, e.Name)
}

// Executor is the capability every skill/tool implementation exposes.
// Defined here (rather than imported from internal/executor) to keep
// the registry key/value shape local; the concrete Output type it
// produces is opaque to the router.
type Executor interface {
	Execute(ctx context.Context, stepID string, agentState *state.AgentState) (any, error)
}

// Factory constructs a fresh Executor instance, called once per step
// resolution. Most factories simply return a shared stateless value.
type Factory func() Executor

type key struct {
	execType string
	name     string
}

// Router holds the process-wide, startup-populated (type, name) ->
// factory mapping. The zero value is not usable; use New.
type Router struct {
	table atomic.Pointer[map[key]Factory]

	// registerMu serializes Register calls during startup; it is never
	// held on the Resolve hot path.
	registerMu sync.Mutex
}

// New creates an empty Router.
func New() *Router {
	r := &Router{}
	empty := make(map[key]Factory)
	r.table.Store(&empty)
	return r
}

// Register declares an executor factory under (execType, name). Intended
// for startup only: each skill/tool implementation calls this once as
// it initializes. Safe to call concurrently, but the registry is meant
// to be immutable after startup — callers must not Register once steps
// are being dispatched.
func (r *Router) Register(execType, name string, factory Factory) {
	r.registerMu.Lock()
	defer r.registerMu.Unlock()

	old := *r.table.Load()
	next := make(map[key]Factory, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[key{execType, name}] = factory
	r.table.Store(&next)
}

// Resolve returns a ready executor for (execType, name), or a
// RouterError with Kind ErrUnknownExecutor.
func (r *Router) Resolve(execType, name string) (Executor, error) {
	table := *r.table.Load()
	factory, ok := table[key{execType, name}]
	if !ok {
		return nil, &RouterError{Kind: ErrUnknownExecutor, Type: execType, Name: name}
	}
	return factory(), nil
}
