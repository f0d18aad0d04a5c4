package chat

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestBuildPrompt_EmptyConversation(t *testing.T) {
	if got := BuildPrompt(nil); got != "Assistant:" {
		t.Errorf("Expected bare trailing marker, got %q", got)
	}
}

func TestBuildPrompt_RendersRoles(t *testing.T) {
	messages := []Message{
		{Role: RoleSystem, Content: "Be terse."},
		{Role: RoleUser, Content: "What is the capital of France?"},
		{Role: RoleAssistant, Content: "Paris."},
		{Role: RoleUser, Content: "And of Spain?"},
	}

	got := BuildPrompt(messages)
	want := "Assistant: Be terse.\n\n" +
		"Human: What is the capital of France?\n\n" +
		"Assistant: Paris.\n\n" +
		"Human: And of Spain?\n\n" +
		"Assistant:"

	if got != want {
		t.Errorf("BuildPrompt mismatch:\ngot  %q\nwant %q", got, want)
	}
}

// TestProperty_BuildPrompt_Shape checks the structural contract for
// arbitrary conversations: trailing marker, one rendered line per message,
// original order preserved.
func TestProperty_BuildPrompt_Shape(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		roles := []string{RoleSystem, RoleUser, RoleAssistant}
		n := rapid.IntRange(0, 12).Draw(rt, "n")

		messages := make([]Message, n)
		for i := range messages {
			messages[i] = Message{
				Role: roles[rapid.IntRange(0, 2).Draw(rt, "role")],
				// Content without blank lines so turns can be split back apart
				Content: rapid.StringMatching(`[a-zA-Z0-9 ,.?!]{0,60}`).Draw(rt, "content"),
			}
		}

		prompt := BuildPrompt(messages)

		if !strings.HasSuffix(prompt, "Assistant:") {
			rt.Fatalf("Prompt does not end with trailing marker: %q", prompt)
		}

		turns := strings.Split(prompt, "\n\n")
		if len(turns) != n+1 {
			rt.Fatalf("Expected %d turns plus marker, got %d segments", n, len(turns))
		}

		for i, m := range messages {
			var want string
			if m.Role == RoleUser {
				want = "Human: " + m.Content
			} else {
				want = "Assistant: " + m.Content
			}
			if turns[i] != want {
				rt.Fatalf("Turn %d: got %q, want %q", i, turns[i], want)
			}
		}
	})
}
