package executor_test

import (
	"errors"
	"testing"

	"github.com/motern88/allen/internal/executor"
)

func TestError_ErrorString(t *testing.T) {
	plain := executor.NewError(executor.ErrKindParse, "bad yaml", nil)
	if plain.Error() != "executor/parse: bad yaml" {
		t.Fatalf("unexpected message: %q", plain.Error())
	}
	wrapped := executor.NewError(executor.ErrKindToolInvoke, "call failed", errors.New("boom"))
	if wrapped.Error() != "tool/invoke: call failed: boom" {
		t.Fatalf("unexpected wrapped message: %q", wrapped.Error())
	}
}

func TestError_UnwrapAndIs(t *testing.T) {
	cause := errors.New("boom")
	err := executor.NewError(executor.ErrKindLLMTransport, "call failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to see through Unwrap to the cause")
	}
	sameKind := &executor.Error{Kind: executor.ErrKindLLMTransport}
	if !errors.Is(err, sameKind) {
		t.Fatal("expected errors.Is to match on Kind")
	}
	otherKind := &executor.Error{Kind: executor.ErrKindParse}
	if errors.Is(err, otherKind) {
		t.Fatal("expected errors.Is to reject a different Kind")
	}
}
