package completion

import (
	"context"
	"errors"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/conduitchat/conduit/internal/config"
)

// Fixed sampling temperature for the completion path
const completionTemperature = 1.0

// ProviderError carries a non-2xx provider response so the handler can relay
// the provider's own status code and body verbatim, with no local
// classification or retry.
type ProviderError struct {
	StatusCode int
	Body       []byte
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("completion provider returned HTTP %d", e.StatusCode)
}

// Client issues streaming requests against Anthropic's text completion API
type Client struct {
	anthropic *anthropic.Client
	model     string
	maxTokens int
}

// NewClient constructs a completion client. Retries are disabled: a failed
// request surfaces the provider's response as-is instead of being replayed.
// Extra request options are accepted so tests can point the client at a
// local server.
func NewClient(cfg *config.CompletionConfig, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{
		option.WithAPIKey(cfg.AnthropicKey),
		option.WithMaxRetries(0),
	}, opts...)
	cl := anthropic.NewClient(opts...)
	return &Client{
		anthropic: &cl,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Stream sends one streaming completion request and feeds each token chunk
// to sink in arrival order. A non-success provider status is returned as a
// *ProviderError holding the provider's status code and raw body; sink
// errors (caller disconnects) abort the relay.
func (c *Client) Stream(ctx context.Context, prompt string, sink func(chunk string) error) error {
	stream := c.anthropic.Completions.NewStreaming(ctx, anthropic.CompletionNewParams{
		Model:             anthropic.Model(c.model),
		MaxTokensToSample: int64(c.maxTokens),
		Prompt:            prompt,
		Temperature:       anthropic.Float(completionTemperature),
	})
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		if event.Completion == "" {
			continue
		}
		if err := sink(event.Completion); err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return &ProviderError{
				StatusCode: apiErr.StatusCode,
				Body:       []byte(apiErr.RawJSON()),
			}
		}
		return err
	}
	return nil
}
