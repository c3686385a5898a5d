package state_test

import (
	"strings"
	"testing"

	"github.com/motern88/allen/internal/state"
)

func TestSanitizePersistentMemory_DropsTopLevelHeadings(t *testing.T) {
	in := "# Section\nkeep this\n## Subsection\nand this\n### Detail\nkept heading"
	out := state.SanitizePersistentMemory(in)
	if strings.Contains(out, "# Section") || strings.Contains(out, "## Subsection") {
		t.Fatalf("expected depth 1/2 headings dropped, got %q", out)
	}
	if !strings.Contains(out, "keep this") || !strings.Contains(out, "and this") {
		t.Fatalf("expected surrounding text retained, got %q", out)
	}
	if !strings.Contains(out, "### Detail") {
		t.Fatalf("expected depth >=3 headings retained, got %q", out)
	}
}

func TestPersistentMemory_AppendDropsAllWhitespaceFragment(t *testing.T) {
	pm := &state.PersistentMemory{}
	pm.Append("# only a heading\n## another")
	if pm.String() != "" {
		t.Fatalf("expected empty scratchpad after dropping an all-heading fragment, got %q", pm.String())
	}
}

func TestPersistentMemory_AppendAccumulates(t *testing.T) {
	pm := &state.PersistentMemory{}
	pm.Append("first fact")
	pm.Append("second fact")
	got := pm.String()
	if !strings.Contains(got, "first fact") || !strings.Contains(got, "second fact") {
		t.Fatalf("expected both fragments retained, got %q", got)
	}
}

func TestDialogueContext_EvictsOldestOverCapacity(t *testing.T) {
	dc := state.NewDialogueContext(2)
	dc.Append(state.DialogueTurn{Role: "user", Content: "one"})
	dc.Append(state.DialogueTurn{Role: "assistant", Content: "two"})
	dc.Append(state.DialogueTurn{Role: "user", Content: "three"})

	turns := dc.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected capacity-bounded length 2, got %d", len(turns))
	}
	if turns[0].Content != "two" || turns[1].Content != "three" {
		t.Fatalf("expected the oldest turn evicted, got %+v", turns)
	}
}

func TestDialogueContext_Reset(t *testing.T) {
	dc := state.NewDialogueContext(5)
	dc.Append(state.DialogueTurn{Role: "user", Content: "hello"})
	dc.Reset()
	if len(dc.Turns()) != 0 {
		t.Fatalf("expected Reset to clear turns")
	}
}
