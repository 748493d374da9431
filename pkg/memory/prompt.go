package memory

import (
	"fmt"
	"strings"
)

// FormatPrompt renders a PromptContext into the text payload handed to the
// model caller: an optional long-term section, the verbatim transcript, and
// the pending input. Prompt templating beyond this plain layout belongs to
// the caller.
func FormatPrompt(pc PromptContext) string {
	var b strings.Builder

	if pc.LongTerm != "" {
		b.WriteString("## Long-Term Memory\n")
		b.WriteString(pc.LongTerm)
		b.WriteString("\n\n")
	}

	if len(pc.History) > 0 {
		b.WriteString("## Conversation\n")
		for _, turn := range pc.History {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s: %s", RoleUser, pc.UserInput)
	return b.String()
}
