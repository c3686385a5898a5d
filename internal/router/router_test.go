package router_test

import (
	"context"
	"testing"

	"github.com/motern88/allen/internal/router"
	"github.com/motern88/allen/internal/state"
)

type stubExecutor struct{ calls int }

func (s *stubExecutor) Execute(ctx context.Context, stepID string, agentState *state.AgentState) (any, error) {
	s.calls++
	return "done", nil
}

func TestRouter_ResolveUnknownReturnsRouterError(t *testing.T) {
	r := router.New()
	_, err := r.Resolve("skill", "planning")
	if err == nil {
		t.Fatal("expected an error for an unregistered executor")
	}
	rerr, ok := err.(*router.RouterError)
	if !ok {
		t.Fatalf("expected *router.RouterError, got %T", err)
	}
	if rerr.Kind != router.ErrUnknownExecutor {
		t.Fatalf("expected ErrUnknownExecutor, got %q", rerr.Kind)
	}
}

func TestRouter_RegisterAndResolve(t *testing.T) {
	r := router.New()
	r.Register("skill", "planning", func() router.Executor {
		return &stubExecutor{}
	})

	exec, err := r.Resolve("skill", "planning")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := exec.Execute(context.Background(), "step-1", nil)
	if err != nil || out != "done" {
		t.Fatalf("unexpected Execute result: %v, %v", out, err)
	}
}

func TestRouter_RegisterIsCopyOnWrite(t *testing.T) {
	r := router.New()
	r.Register("skill", "planning", func() router.Executor { return &stubExecutor{} })
	if _, err := r.Resolve("skill", "quick_think"); err == nil {
		t.Fatal("expected quick_think to remain unregistered after registering planning")
	}
	r.Register("skill", "quick_think", func() router.Executor { return &stubExecutor{} })
	if _, err := r.Resolve("skill", "planning"); err != nil {
		t.Fatal("expected a later Register to not drop an earlier registration")
	}
}

func TestRouter_FactoryCalledPerResolve(t *testing.T) {
	r := router.New()
	shared := &stubExecutor{}
	r.Register("skill", "planning", func() router.Executor { return shared })

	e1, _ := r.Resolve("skill", "planning")
	e2, _ := r.Resolve("skill", "planning")
	e1.Execute(context.Background(), "a", nil)
	e2.Execute(context.Background(), "b", nil)
	if shared.calls != 2 {
		t.Fatalf("expected the shared executor invoked twice, got %d", shared.calls)
	}
}
