package memory

import (
	"strings"
	"testing"
)

func TestFormatPrompt_AllSections(t *testing.T) {
	pc := PromptContext{
		History: []Turn{
			{Role: RoleUser, Text: "Hello! My name is Alice."},
			{Role: RoleAssistant, Text: "Nice to meet you, Alice."},
		},
		LongTerm:  "User said: Hello! My name is Alice.",
		UserInput: "Do you remember my name?",
	}

	got := FormatPrompt(pc)

	if !strings.HasPrefix(got, "## Long-Term Memory\nUser said: Hello! My name is Alice.") {
		t.Fatalf("missing long-term section:\n%s", got)
	}
	if !strings.Contains(got, "## Conversation\nuser: Hello! My name is Alice.\nassistant: Nice to meet you, Alice.") {
		t.Fatalf("missing transcript section:\n%s", got)
	}
	if !strings.HasSuffix(got, "user: Do you remember my name?") {
		t.Fatalf("missing pending input:\n%s", got)
	}
}

func TestFormatPrompt_EmptyMemory(t *testing.T) {
	got := FormatPrompt(PromptContext{UserInput: "first message"})

	if strings.Contains(got, "## Long-Term Memory") {
		t.Fatalf("empty long-term view must not render a section:\n%s", got)
	}
	if strings.Contains(got, "## Conversation") {
		t.Fatalf("empty history must not render a section:\n%s", got)
	}
	if got != "user: first message" {
		t.Fatalf("unexpected prompt: %q", got)
	}
}
