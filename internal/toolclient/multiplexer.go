package toolclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrUnavailable wraps any failure to obtain a usable session for a tool
// server — an unknown server, a security-scan block, a persistent
// unavailable mark, or a connect failure. Callers use errors.Is to
// distinguish this "never got a session" class from a per-call failure
// that reached the server and failed there.
var ErrUnavailable = errors.New("toolclient: server unavailable")

// DefaultInvokeTimeout is the default per-call timeout, used when the
// caller's context carries no deadline of its own.
const DefaultInvokeTimeout = 30 * time.Second

// request is one unit of work submitted to the event-loop worker.
type request struct {
	ctx        context.Context
	server     string
	capability string
	args       map[string]any
	reply      chan Result
}

// Result is the outcome of one Invoke call, delivered through a future.
type Result struct {
	Text string
	Err  error
}

// Future is a handle to a pending invocation; the caller blocks on it
// with Wait.
type Future struct {
	ch chan Result
}

// Wait blocks until the invocation completes or ctx is cancelled.
func (f *Future) Wait(ctx context.Context) Result {
	select {
	case r := <-f.ch:
		return r
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// Multiplexer is the process-wide tool client multiplexer. One
// instance is shared by every agent; every invocation funnels through
// its event loop, which dispatches each onto its own goroutine so a
// slow call to one server never blocks an unrelated call to another
// server, or another agent's call to the same one. The shared maps
// (sessions, unavailable marks, description cache) stay consistent
// under mu; a per-server connect lock keeps two concurrent first calls
// to the same never-yet-connected server from opening two sessions.
//
// Modeled on mcp.Manager (internal/mcp/manager.go): same "network I/O
// outside the lock, state mutation under the lock" shape, generalized
// from a direct tool.Registry-registering manager into a
// future-returning invocation multiplexer, since tools here are
// invoked by name through explicit tool steps rather than registered
// into an in-process registry.
type Multiplexer struct {
	mu          sync.RWMutex
	specs       map[string]ServerSpec
	sessions    map[string]*Session
	unavailable map[string]bool
	descCache   map[string][]CapabilityInfo
	connectMu   map[string]*sync.Mutex

	work chan request
	done chan struct{}
}

// New creates a Multiplexer over the given static server specs and
// starts its event loop.
func New(specs []ServerSpec) *Multiplexer {
	m := &Multiplexer{
		specs:       make(map[string]ServerSpec, len(specs)),
		sessions:    make(map[string]*Session),
		unavailable: make(map[string]bool),
		descCache:   make(map[string][]CapabilityInfo),
		connectMu:   make(map[string]*sync.Mutex),
		work:        make(chan request, 64),
		done:        make(chan struct{}),
	}
	for _, s := range specs {
		m.specs[s.Name] = s
	}
	go m.loop()
	return m
}

// loop is the event loop: every invocation — from every agent, to
// every server — is dequeued here and handed to its own goroutine, so
// concurrent invocations run concurrently rather than queueing behind
// one another's network round trip.
func (m *Multiplexer) loop() {
	for {
		select {
		case req := <-m.work:
			go m.handle(req)
		case <-m.done:
			return
		}
	}
}

func (m *Multiplexer) handle(req request) {
	text, err := m.doInvoke(req.ctx, req.server, req.capability, req.args)
	req.reply <- Result{Text: text, Err: err}
}

// connectLockFor returns the per-server mutex serializing Connect
// attempts against serverName, creating it on first use.
func (m *Multiplexer) connectLockFor(serverName string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.connectMu[serverName]
	if !ok {
		lock = &sync.Mutex{}
		m.connectMu[serverName] = lock
	}
	return lock
}

// Connect lazily opens a session for serverName, scanning stdio launch
// scripts first. A connection failure marks the server persistently
// unavailable. Concurrent first calls for the same server serialize on
// a per-server lock so only one of them actually dials out.
func (m *Multiplexer) Connect(ctx context.Context, serverName string) error {
	if ready, err := m.connectedOrUnavailable(serverName); ready || err != nil {
		return err
	}

	lock := m.connectLockFor(serverName)
	lock.Lock()
	defer lock.Unlock()

	// Re-check now that we hold the per-server lock: another goroutine
	// may have connected, or marked the server unavailable, while we
	// were waiting for it.
	if ready, err := m.connectedOrUnavailable(serverName); ready || err != nil {
		return err
	}

	m.mu.RLock()
	spec, ok := m.specs[serverName]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("toolclient: unknown server %q: %w", serverName, ErrUnavailable)
	}

	if spec.Transport == "stdio" {
		if script := findPyScript(spec); script != "" {
			findings, err := ScanScript(script)
			if err != nil {
				log.Printf("[toolclient] scan error for %q: %v", serverName, err)
			} else if HasCritical(findings) {
				LogFindings(serverName, findings)
				m.markUnavailable(serverName)
				return fmt.Errorf("toolclient: server %q blocked by security scan: %w", serverName, ErrUnavailable)
			} else {
				LogFindings(serverName, findings)
			}
		}
	}

	session := NewSession(spec)
	if err := session.Connect(ctx); err != nil {
		m.markUnavailable(serverName)
		return fmt.Errorf("toolclient: connect %q: %v: %w", serverName, err, ErrUnavailable)
	}

	m.mu.Lock()
	m.sessions[serverName] = session
	m.mu.Unlock()
	return nil
}

// connectedOrUnavailable reports whether Connect can return immediately:
// ready=true means a session already exists (return nil); a non-nil err
// means the server carries a persistent unavailable mark (return err).
// Both false means the caller must actually attempt a connect.
func (m *Multiplexer) connectedOrUnavailable(serverName string) (ready bool, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sessions[serverName] != nil {
		return true, nil
	}
	if m.unavailable[serverName] {
		return false, fmt.Errorf("toolclient: server %q is marked unavailable: %w", serverName, ErrUnavailable)
	}
	return false, nil
}

func (m *Multiplexer) markUnavailable(serverName string) {
	m.mu.Lock()
	m.unavailable[serverName] = true
	m.mu.Unlock()
}

// Unavailable reports whether serverName has a persistent unavailable
// mark, set by a failed connect or a security-scan block.
func (m *Multiplexer) Unavailable(serverName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unavailable[serverName]
}

// Describe returns the cached or freshly-fetched capability list for
// serverName, connecting first if necessary.
func (m *Multiplexer) Describe(ctx context.Context, serverName string) ([]CapabilityInfo, error) {
	if err := m.Connect(ctx, serverName); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if cached, ok := m.descCache[serverName]; ok {
		m.mu.RUnlock()
		return cached, nil
	}
	session := m.sessions[serverName]
	m.mu.RUnlock()

	caps, err := session.ListCapabilities(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.descCache[serverName] = caps
	m.mu.Unlock()
	return caps, nil
}

// Invoke submits an invocation to the event-loop worker and returns a
// Future the caller blocks on.
func (m *Multiplexer) Invoke(ctx context.Context, serverName, capability string, args map[string]any) *Future {
	f := &Future{ch: make(chan Result, 1)}
	select {
	case m.work <- request{ctx: ctx, server: serverName, capability: capability, args: args, reply: f.ch}:
	case <-m.done:
		f.ch <- Result{Err: fmt.Errorf("toolclient: multiplexer closed")}
	}
	return f
}

// InvokeRequest is one entry of a BulkInvoke call.
type InvokeRequest struct {
	Server     string
	Capability string
	Args       map[string]any
}

// BulkInvoke submits every request concurrently and joins on all
// handles, so a tool step that needs several calls can issue them
// without serializing on the event loop.
func (m *Multiplexer) BulkInvoke(ctx context.Context, reqs []InvokeRequest) []Result {
	futures := make([]*Future, len(reqs))
	for i, r := range reqs {
		futures[i] = m.Invoke(ctx, r.Server, r.Capability, r.Args)
	}
	results := make([]Result, len(reqs))
	for i, f := range futures {
		results[i] = f.Wait(ctx)
	}
	return results
}

// doInvoke runs on its own per-request goroutine: connects if necessary
// and performs the call with a default timeout if the caller's context
// carries none.
func (m *Multiplexer) doInvoke(ctx context.Context, serverName, capability string, args map[string]any) (string, error) {
	if err := m.Connect(ctx, serverName); err != nil {
		return "", err
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultInvokeTimeout)
		defer cancel()
	}

	m.mu.RLock()
	session := m.sessions[serverName]
	m.mu.RUnlock()
	if session == nil {
		return "", fmt.Errorf("toolclient: server %q has no active session: %w", serverName, ErrUnavailable)
	}
	return session.Invoke(ctx, capability, args)
}

// Close shuts down the event-loop worker and closes every active
// session.
func (m *Multiplexer) Close() {
	close(m.done)

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for name, s := range sessions {
		if err := s.Close(); err != nil {
			log.Printf("[toolclient] close error for %q: %v", name, err)
		}
	}
}
