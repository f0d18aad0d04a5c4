package chat

import "strings"

// Turn markers for the completion prompt format
const (
	humanPrefix     = "Human: "
	assistantPrefix = "Assistant: "
	trailingMarker  = "Assistant:"
)

// BuildPrompt renders the conversation as a single completion prompt. User
// turns become "Human: <content>", every other turn "Assistant: <content>",
// joined by blank lines, with a trailing "Assistant:" marker prompting the
// model to continue. An empty conversation yields just the marker.
func BuildPrompt(messages []Message) string {
	lines := make([]string, 0, len(messages)+1)
	for _, m := range messages {
		if m.Role == RoleUser {
			lines = append(lines, humanPrefix+m.Content)
		} else {
			lines = append(lines, assistantPrefix+m.Content)
		}
	}
	lines = append(lines, trailingMarker)
	return strings.Join(lines, "\n\n")
}
