package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/conduitchat/conduit/internal/config"
	"github.com/conduitchat/conduit/internal/tools"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

type stubTool struct {
	name    string
	lastArg string
	output  string
	err     error
	calls   int
}

func (s *stubTool) Definition() openai.FunctionDefinition {
	return openai.FunctionDefinition{
		Name:        s.name,
		Description: "stub",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query": {Type: jsonschema.String},
			},
		},
	}
}

func (s *stubTool) Invoke(_ context.Context, args string) (string, error) {
	s.calls++
	s.lastArg = args
	return s.output, s.err
}

// fakeOpenAI serves scripted chat completion responses in order
func fakeOpenAI(t *testing.T, responses []string) (*openai.Client, *httptest.Server, *[][]byte) {
	t.Helper()
	var bodies [][]byte
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		buf, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Cannot read request body: %v", err)
		}
		bodies = append(bodies, buf)
		if call >= len(responses) {
			t.Fatalf("Unexpected extra completion call %d", call+1)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, responses[call])
		call++
	}))

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return openai.NewClientWithConfig(cfg), srv, &bodies
}

func agentConfig() *config.AgentConfig {
	return &config.AgentConfig{
		OpenAIKey: "test-key",
		ChatModel: "gpt-4o-mini",
		MaxTurns:  5,
	}
}

func toolCallResponse(id, name, args string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[{"id":%q,"type":"function","function":{"name":%q,"arguments":%q}}]}}]}`, id, name, args)
}

func finalResponse(answer string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%q}}]}`, answer)
}

func TestRun_DirectAnswerWithoutTools(t *testing.T) {
	client, srv, _ := fakeOpenAI(t, []string{finalResponse("Paris.")})
	defer srv.Close()

	a := New(client, agentConfig(), []tools.Tool{&stubTool{name: "search"}}, zerolog.Nop())
	result, err := a.Run(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Answer != "Paris." {
		t.Errorf("Expected answer Paris., got %q", result.Answer)
	}
	if result.ToolCalls != 0 {
		t.Errorf("Expected no tool calls, got %d", result.ToolCalls)
	}
}

func TestRun_InvokesRequestedToolThenAnswers(t *testing.T) {
	client, srv, bodies := fakeOpenAI(t, []string{
		toolCallResponse("call_1", "search", `{"query":"weather in Paris"}`),
		finalResponse("It is sunny in Paris."),
	})
	defer srv.Close()

	search := &stubTool{name: "search", output: "sunny, 24C"}
	a := New(client, agentConfig(), []tools.Tool{search}, zerolog.Nop())

	result, err := a.Run(context.Background(), "What's the weather in Paris?")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if search.calls != 1 {
		t.Fatalf("Expected one tool invocation, got %d", search.calls)
	}
	if search.lastArg != `{"query":"weather in Paris"}` {
		t.Errorf("Tool received wrong arguments: %s", search.lastArg)
	}
	if result.Answer != "It is sunny in Paris." {
		t.Errorf("Unexpected answer %q", result.Answer)
	}
	if result.ToolCalls != 1 {
		t.Errorf("Expected 1 recorded tool call, got %d", result.ToolCalls)
	}

	// Second request must carry the tool result back to the model
	var second struct {
		Messages []struct {
			Role       string `json:"role"`
			Content    string `json:"content"`
			ToolCallID string `json:"tool_call_id"`
		} `json:"messages"`
		Temperature *float32 `json:"temperature"`
	}
	if err := json.Unmarshal((*bodies)[1], &second); err != nil {
		t.Fatalf("Cannot parse second request body: %v", err)
	}
	last := second.Messages[len(second.Messages)-1]
	if last.Role != "tool" || last.ToolCallID != "call_1" || last.Content != "sunny, 24C" {
		t.Errorf("Tool result message malformed: %+v", last)
	}
}

func TestRun_ToolErrorReportedToModel(t *testing.T) {
	client, srv, bodies := fakeOpenAI(t, []string{
		toolCallResponse("call_1", "travelGuide", `{"region":"ZZ"}`),
		finalResponse("I could not fetch the guide."),
	})
	defer srv.Close()

	guide := &stubTool{name: "travelGuide", err: errors.New("no description")}
	a := New(client, agentConfig(), []tools.Tool{guide}, zerolog.Nop())

	result, err := a.Run(context.Background(), "Guide for ZZ?")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Answer != "I could not fetch the guide." {
		t.Errorf("Unexpected answer %q", result.Answer)
	}

	var second struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal((*bodies)[1], &second); err != nil {
		t.Fatalf("Cannot parse second request body: %v", err)
	}
	last := second.Messages[len(second.Messages)-1]
	if last.Role != "tool" {
		t.Fatalf("Expected tool message, got role %q", last.Role)
	}
	if !strings.Contains(last.Content, "failed") {
		t.Errorf("Tool failure not reported to model: %q", last.Content)
	}
}

func TestRun_MaxTurnsExceeded(t *testing.T) {
	loop := toolCallResponse("call_x", "search", `{"query":"again"}`)
	client, srv, _ := fakeOpenAI(t, []string{loop, loop, loop})
	defer srv.Close()

	cfg := agentConfig()
	cfg.MaxTurns = 3
	a := New(client, cfg, []tools.Tool{&stubTool{name: "search", output: "x"}}, zerolog.Nop())

	_, err := a.Run(context.Background(), "loop forever")
	if !errors.Is(err, ErrMaxTurns) {
		t.Fatalf("Expected ErrMaxTurns, got %v", err)
	}
}
