package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/conduitchat/conduit/internal/config"
	"github.com/conduitchat/conduit/internal/monitoring"
	"github.com/conduitchat/conduit/internal/tools"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// ErrMaxTurns is returned when the agent keeps requesting tools past its
// turn budget instead of producing an answer.
var ErrMaxTurns = errors.New("agent exceeded maximum turns without a final answer")

// Agent drives a function-calling chat model over a fixed tool set until
// the model stops requesting tools and produces a final answer. The model
// decides which tools to call and in what order; the agent only executes
// requests and feeds results back. Sampling temperature is zero.
type Agent struct {
	client   *openai.Client
	model    string
	maxTurns int
	toolset  []tools.Tool
	log      zerolog.Logger
}

// Result is one completed agent run
type Result struct {
	Answer    string
	ToolCalls int
}

// New builds an agent for one request's active tool set
func New(client *openai.Client, cfg *config.AgentConfig, toolset []tools.Tool, log zerolog.Logger) *Agent {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &Agent{
		client:   client,
		model:    cfg.ChatModel,
		maxTurns: maxTurns,
		toolset:  toolset,
		log:      log,
	}
}

// Run executes the agent loop once, synchronously, and returns the final
// answer string.
func (a *Agent) Run(ctx context.Context, query string) (*Result, error) {
	defs := make([]openai.Tool, len(a.toolset))
	for i, t := range a.toolset {
		def := t.Definition()
		defs[i] = openai.Tool{
			Type:     openai.ToolTypeFunction,
			Function: &def,
		}
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: query},
	}

	result := &Result{}
	for turn := 0; turn < a.maxTurns; turn++ {
		start := time.Now()
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       a.model,
			Temperature: 0,
			Messages:    messages,
			Tools:       defs,
		})
		monitoring.ObserveProviderCall("openai", a.model, start, err)
		if err != nil {
			return nil, fmt.Errorf("agent completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("agent completion returned no choices")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			result.Answer = msg.Content
			return result, nil
		}

		messages = append(messages, msg)
		for _, tc := range msg.ToolCalls {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    a.invokeTool(ctx, tc),
				ToolCallID: tc.ID,
			})
			result.ToolCalls++
		}
	}

	return nil, ErrMaxTurns
}

// invokeTool runs one requested tool. Failures are reported back to the
// model as the tool result so the run can recover or explain itself.
func (a *Agent) invokeTool(ctx context.Context, tc openai.ToolCall) string {
	m := monitoring.Get()
	name := tc.Function.Name

	tool := a.toolByName(name)
	if tool == nil {
		m.ToolInvocations.WithLabelValues(name, "unknown").Inc()
		a.log.Warn().Str("tool", name).Msg("Model requested a tool outside the active set")
		return fmt.Sprintf("tool %q is not available", name)
	}

	output, err := tool.Invoke(ctx, tc.Function.Arguments)
	if err != nil {
		m.ToolInvocations.WithLabelValues(name, "error").Inc()
		a.log.Warn().Err(err).Str("tool", name).Msg("Tool invocation failed")
		return fmt.Sprintf("tool %q failed: %v", name, err)
	}

	m.ToolInvocations.WithLabelValues(name, "success").Inc()
	a.log.Debug().Str("tool", name).Int("output_bytes", len(output)).Msg("Tool invoked")
	return output
}

func (a *Agent) toolByName(name string) tools.Tool {
	for _, t := range a.toolset {
		if t.Definition().Name == name {
			return t
		}
	}
	return nil
}
