package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// TravelGuideTool is the opt-in structured tool. It fetches a destination
// guide for a region code from a third-party HTTP API and returns the
// guide's description field, serialized as JSON. A response without a
// description is an error; the failure surfaces to the agent loop rather
// than being papered over with a default.
type TravelGuideTool struct {
	baseURL    string
	httpClient *http.Client
}

func NewTravelGuideTool(baseURL string, httpClient *http.Client) *TravelGuideTool {
	return &TravelGuideTool{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (t *TravelGuideTool) Definition() openai.FunctionDefinition {
	return openai.FunctionDefinition{
		Name:        NameTravelGuide,
		Description: "Get a travel guide for a destination. Input is the destination's region code, for example FR for France.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"region": {
					Type:        jsonschema.String,
					Description: "the destination region code",
				},
			},
			Required: []string{"region"},
		},
	}
}

func (t *TravelGuideTool) Invoke(ctx context.Context, args string) (string, error) {
	var in struct {
		Region string `json:"region"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", fmt.Errorf("parsing travel guide arguments: %w", err)
	}

	params := url.Values{}
	params.Set("region", in.Region)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.baseURL+"/guide?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("travel guide HTTP %d: %s", resp.StatusCode, string(slurp))
	}

	var out struct {
		Description json.RawMessage `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding travel guide response: %w", err)
	}
	if len(out.Description) == 0 || string(out.Description) == "null" {
		return "", fmt.Errorf("travel guide response for %q has no description", in.Region)
	}

	// The raw JSON value is what the agent sees, strings kept quoted
	return string(out.Description), nil
}
