package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const defaultSerpAPIBaseURL = "https://serpapi.com"

// serpAPIResponse covers the response fields the tools read
type serpAPIResponse struct {
	AnswerBox struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answer_box"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

type serpAPIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func (c *serpAPIClient) search(ctx context.Context, query string) (*serpAPIResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("serpapi HTTP %d: %s", resp.StatusCode, string(slurp))
	}

	var out serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding serpapi response: %w", err)
	}
	return &out, nil
}

// SearchTool is the always-included web search tool. It answers with the
// answer box when SerpAPI provides one, otherwise the top result snippet.
type SearchTool struct {
	client *serpAPIClient
}

func NewSearchTool(apiKey string, httpClient *http.Client) *SearchTool {
	return &SearchTool{client: &serpAPIClient{
		apiKey:     apiKey,
		baseURL:    defaultSerpAPIBaseURL,
		httpClient: httpClient,
	}}
}

// SetBaseURL overrides the SerpAPI endpoint, for tests
func (t *SearchTool) SetBaseURL(base string) { t.client.baseURL = base }

func (t *SearchTool) Definition() openai.FunctionDefinition {
	return openai.FunctionDefinition{
		Name:        NameSearch,
		Description: "A search engine. Useful for answering questions about current events or facts you are unsure of. Input should be a search query.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query": {
					Type:        jsonschema.String,
					Description: "the search query",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *SearchTool) Invoke(ctx context.Context, args string) (string, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", fmt.Errorf("parsing search arguments: %w", err)
	}

	resp, err := t.client.search(ctx, in.Query)
	if err != nil {
		return "", err
	}

	if resp.AnswerBox.Answer != "" {
		return resp.AnswerBox.Answer, nil
	}
	if resp.AnswerBox.Snippet != "" {
		return resp.AnswerBox.Snippet, nil
	}
	if len(resp.OrganicResults) > 0 {
		return resp.OrganicResults[0].Snippet, nil
	}
	return "No good search result found", nil
}

// SerpAPIQueryTool is the opt-in raw search variant: it returns the top
// organic results as JSON so the model can read titles and links, not just
// one snippet.
type SerpAPIQueryTool struct {
	client     *serpAPIClient
	maxResults int
}

func NewSerpAPIQueryTool(apiKey string, httpClient *http.Client) *SerpAPIQueryTool {
	return &SerpAPIQueryTool{
		client: &serpAPIClient{
			apiKey:     apiKey,
			baseURL:    defaultSerpAPIBaseURL,
			httpClient: httpClient,
		},
		maxResults: 3,
	}
}

// SetBaseURL overrides the SerpAPI endpoint, for tests
func (t *SerpAPIQueryTool) SetBaseURL(base string) { t.client.baseURL = base }

func (t *SerpAPIQueryTool) Definition() openai.FunctionDefinition {
	return openai.FunctionDefinition{
		Name:        NameSerpAPIQuery,
		Description: "Search the web and get the top results with titles and links as JSON. Useful when one snippet is not enough.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query": {
					Type:        jsonschema.String,
					Description: "the search query",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *SerpAPIQueryTool) Invoke(ctx context.Context, args string) (string, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", fmt.Errorf("parsing search arguments: %w", err)
	}

	resp, err := t.client.search(ctx, in.Query)
	if err != nil {
		return "", err
	}

	n := t.maxResults
	if len(resp.OrganicResults) < n {
		n = len(resp.OrganicResults)
	}

	out, err := json.Marshal(resp.OrganicResults[:n])
	if err != nil {
		return "", err
	}

	result := string(out)
	if strings.TrimSpace(result) == "" || result == "null" {
		return "[]", nil
	}
	return result, nil
}
