package executor_test

import (
	"testing"

	"github.com/motern88/allen/internal/executor"
)

func TestExtractDelimited_Found(t *testing.T) {
	content := "before <tool_call>\nserver: search\n</tool_call> after"
	block, ok := executor.ExtractDelimited(content, "<tool_call>", "</tool_call>")
	if !ok {
		t.Fatal("expected a delimited block to be found")
	}
	if block != "server: search" {
		t.Fatalf("unexpected block content: %q", block)
	}
}

func TestExtractDelimited_MissingMarkers(t *testing.T) {
	if _, ok := executor.ExtractDelimited("no markers here", "<a>", "</a>"); ok {
		t.Fatal("expected not found when neither marker is present")
	}
	if _, ok := executor.ExtractDelimited("<a>unterminated", "<a>", "</a>"); ok {
		t.Fatal("expected not found when close marker is missing")
	}
}

func TestExtractYAML_FencedYAMLBlock(t *testing.T) {
	content := "reply:\n```yaml\nkey: value\n```\ndone"
	got, err := executor.ExtractYAML(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "key: value" {
		t.Fatalf("unexpected yaml: %q", got)
	}
}

func TestExtractYAML_BareFence(t *testing.T) {
	content := "```\nkey: value\n```"
	got, err := executor.ExtractYAML(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "key: value" {
		t.Fatalf("unexpected yaml: %q", got)
	}
}

func TestExtractYAML_NoFenceReturnsTrimmedContent(t *testing.T) {
	got, err := executor.ExtractYAML("  key: value  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "key: value" {
		t.Fatalf("unexpected yaml: %q", got)
	}
}

func TestExtractYAML_UnclosedFenceErrors(t *testing.T) {
	if _, err := executor.ExtractYAML("```yaml\nkey: value"); err == nil {
		t.Fatal("expected an error for an unclosed yaml fence")
	}
}

func TestFixBackslashes_NormalizesWindowsPathsInQuotes(t *testing.T) {
	in := `path: "C:\Users\bob\file.txt"`
	out := executor.FixBackslashes(in)
	want := `path: "C:/Users/bob/file.txt"`
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestFixBackslashes_LeavesUnquotedTextAlone(t *testing.T) {
	in := "no quoted path here"
	if out := executor.FixBackslashes(in); out != in {
		t.Fatalf("expected unchanged text, got %q", out)
	}
}
