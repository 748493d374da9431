// Package provider defines the boundary to the external response generator.
// The memory manager never calls a model itself; callers render a prompt
// context, invoke a Responder outside any memory critical section, and feed
// the reply back in. Responder failures are the caller's to handle; the
// manager never sees them.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/dotsetgreg/chatmem/pkg/memory"
)

// Responder produces the assistant reply for one interaction.
type Responder interface {
	Reply(ctx context.Context, pc memory.PromptContext) (string, error)
}

// ResponderFunc adapts a function into a Responder.
type ResponderFunc func(ctx context.Context, pc memory.PromptContext) (string, error)

func (f ResponderFunc) Reply(ctx context.Context, pc memory.PromptContext) (string, error) {
	return f(ctx, pc)
}

// EchoResponder repeats the input back. Useful for wiring checks.
type EchoResponder struct{}

func (EchoResponder) Reply(_ context.Context, pc memory.PromptContext) (string, error) {
	return "You said: " + pc.UserInput, nil
}

type rule struct {
	substr string
	reply  string
}

// ScriptedResponder is a deterministic local responder: the first rule whose
// substring matches the input (case-insensitive) wins, and special "remember"
// inputs are answered from the rendered long-term view. It lets the CLI and
// tests exercise the full interaction loop without a model call.
type ScriptedResponder struct {
	rules    []rule
	fallback string
}

func NewScriptedResponder() *ScriptedResponder {
	return &ScriptedResponder{
		fallback: "Understood.",
	}
}

// AddRule appends a substring-match rule. Rules are checked in order.
func (r *ScriptedResponder) AddRule(substr, reply string) {
	r.rules = append(r.rules, rule{substr: strings.ToLower(substr), reply: reply})
}

// SetFallback replaces the default reply used when nothing matches.
func (r *ScriptedResponder) SetFallback(reply string) {
	r.fallback = reply
}

func (r *ScriptedResponder) Reply(_ context.Context, pc memory.PromptContext) (string, error) {
	input := strings.ToLower(pc.UserInput)

	if strings.Contains(input, "remember") {
		if pc.LongTerm == "" {
			return "I don't have anything in long-term memory yet.", nil
		}
		return fmt.Sprintf("Here is what I remember: %s", pc.LongTerm), nil
	}

	for _, rl := range r.rules {
		if strings.Contains(input, rl.substr) {
			return rl.reply, nil
		}
	}
	return r.fallback, nil
}
