package toolclient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/motern88/allen/internal/toolclient"
)

func TestMultiplexer_InvokeUnknownServerReturnsErrUnavailable(t *testing.T) {
	mux := toolclient.New(nil)
	defer mux.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result := mux.Invoke(ctx, "ghost", "noop", nil).Wait(ctx)
	if !errors.Is(result.Err, toolclient.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for an unregistered server, got %v", result.Err)
	}
}

func TestMultiplexer_ConnectFailureMarksServerPersistentlyUnavailable(t *testing.T) {
	mux := toolclient.New([]toolclient.ServerSpec{
		{Name: "broken", Transport: "stdio", Command: "/nonexistent/binary-that-does-not-exist"},
	})
	defer mux.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := mux.Connect(ctx, "broken"); err == nil {
		t.Fatal("expected a connect failure for a nonexistent binary")
	}
	if !mux.Unavailable("broken") {
		t.Fatal("expected the server marked persistently unavailable after a failed connect")
	}

	// A second attempt should short-circuit on the persistent mark rather
	// than trying to spawn the binary again.
	err := mux.Connect(ctx, "broken")
	if !errors.Is(err, toolclient.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on a repeat connect, got %v", err)
	}
}

func TestMultiplexer_UnknownServerConnectReturnsErrUnavailable(t *testing.T) {
	mux := toolclient.New(nil)
	defer mux.Close()

	err := mux.Connect(context.Background(), "ghost")
	if !errors.Is(err, toolclient.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for an unknown server, got %v", err)
	}
}

func TestMultiplexer_BulkInvokeReturnsOneResultPerRequest(t *testing.T) {
	mux := toolclient.New(nil)
	defer mux.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	results := mux.BulkInvoke(ctx, []toolclient.InvokeRequest{
		{Server: "ghost-a", Capability: "noop"},
		{Server: "ghost-b", Capability: "noop"},
	})
	if len(results) != 2 {
		t.Fatalf("expected one result per request, got %d", len(results))
	}
	for i, r := range results {
		if !errors.Is(r.Err, toolclient.ErrUnavailable) {
			t.Fatalf("result %d: expected ErrUnavailable, got %v", i, r.Err)
		}
	}
}

func TestMultiplexer_DescribeUnknownServerReturnsErrUnavailable(t *testing.T) {
	mux := toolclient.New(nil)
	defer mux.Close()

	if _, err := mux.Describe(context.Background(), "ghost"); !errors.Is(err, toolclient.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMultiplexer_ConcurrentInvokesToDifferentServersDoNotSerialize(t *testing.T) {
	mux := toolclient.New([]toolclient.ServerSpec{
		{Name: "slow", Transport: "stdio", Command: "/nonexistent/slow-binary"},
		{Name: "fast", Transport: "stdio", Command: "/nonexistent/fast-binary"},
	})
	defer mux.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan time.Duration, 1)
	start := time.Now()
	go func() {
		mux.Invoke(ctx, "slow", "noop", nil).Wait(ctx)
		done <- time.Since(start)
	}()

	// The fast call should not have to wait behind the slow one even
	// though both were submitted to the same event loop.
	fast := mux.Invoke(ctx, "fast", "noop", nil).Wait(ctx)
	if !errors.Is(fast.Err, toolclient.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for the fast call, got %v", fast.Err)
	}
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for the slow call's goroutine to finish")
	}
}
