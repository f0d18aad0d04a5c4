package chat

import (
	"encoding/base64"
	"fmt"
)

// Message roles accepted on the wire
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ModelDirectCompletion selects the direct-completion path; every other
// selectedModel value runs the tool-using agent path.
const ModelDirectCompletion = "claude-2"

// Message is one turn of the conversation. Order is significant; the last
// message is the active query.
type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// ToolDescriptor enables or disables a named registry tool for one request
type ToolDescriptor struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Attachment is an uploaded file. Content holds the decoded UTF-8 text once
// Decode has run; the original base64 payload is preserved alongside it.
type Attachment struct {
	Base64  string `json:"base64"`
	Content string `json:"content,omitempty"`
}

// Request is the body of POST /api/v1/chat.
// SelectedVectorStorage is accepted for wire compatibility but does not
// influence request handling; the store backend is fixed at startup.
type Request struct {
	Messages              []Message        `json:"messages" binding:"required"`
	Functions             []ToolDescriptor `json:"functions"`
	Files                 []Attachment     `json:"files"`
	SelectedModel         string           `json:"selectedModel"`
	SelectedVectorStorage string           `json:"selectedVectorStorage"`
}

// UseDirectCompletion reports whether the request selects the completion path
func (r *Request) UseDirectCompletion() bool {
	return r.SelectedModel == ModelDirectCompletion
}

// LastMessage returns the content of the final message, the active query.
// An empty conversation yields the empty string.
func (r *Request) LastMessage() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

// DecodeAttachments decodes each attachment's base64 payload into its
// Content field, preserving the original payload. Inputs are not mutated;
// the returned slice has exactly one record per input. Malformed base64 is
// reported as an error rather than producing garbled text.
func DecodeAttachments(files []Attachment) ([]Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}

	decoded := make([]Attachment, 0, len(files))
	for i, f := range files {
		raw, err := base64.StdEncoding.DecodeString(f.Base64)
		if err != nil {
			return nil, fmt.Errorf("decoding attachment %d: %w", i, err)
		}
		decoded = append(decoded, Attachment{
			Base64:  f.Base64,
			Content: string(raw),
		})
	}
	return decoded, nil
}
