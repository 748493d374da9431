package memory

import "testing"

func TestShortTermBuffer_AppendOrder(t *testing.T) {
	b := NewShortTermBuffer(0)

	t1 := Turn{Role: RoleUser, Text: "first"}
	t2 := Turn{Role: RoleAssistant, Text: "second"}
	t3 := Turn{Role: RoleUser, Text: "third"}
	b.Append(t1)
	b.Append(t2)
	b.Append(t3)

	turns := b.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0] != t1 || turns[1] != t2 || turns[2] != t3 {
		t.Fatalf("turns reordered or modified: %#v", turns)
	}
}

func TestShortTermBuffer_TurnsReturnsCopy(t *testing.T) {
	b := NewShortTermBuffer(0)
	b.Append(Turn{Role: RoleUser, Text: "original"})

	turns := b.Turns()
	turns[0].Text = "mutated"

	if got := b.Turns()[0].Text; got != "original" {
		t.Fatalf("external mutation leaked into buffer: %q", got)
	}
}

func TestShortTermBuffer_CapDropsOldest(t *testing.T) {
	b := NewShortTermBuffer(2)
	b.Append(Turn{Role: RoleUser, Text: "one"})
	b.Append(Turn{Role: RoleAssistant, Text: "two"})
	b.Append(Turn{Role: RoleUser, Text: "three"})

	turns := b.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected cap to hold, got %d turns", len(turns))
	}
	if turns[0].Text != "two" || turns[1].Text != "three" {
		t.Fatalf("expected oldest dropped, got %#v", turns)
	}
}
