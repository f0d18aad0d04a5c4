package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	defaultWikipediaBaseURL = "https://en.wikipedia.org/w/api.php"

	// Top-1 result, extract capped, matching the lookup tool's contract
	wikipediaTopResults       = 1
	wikipediaMaxContentLength = 300
)

// WikipediaTool is the always-included encyclopedia lookup tool. It searches
// for the best matching page and returns a capped plain-text extract.
type WikipediaTool struct {
	baseURL    string
	httpClient *http.Client
}

func NewWikipediaTool(httpClient *http.Client) *WikipediaTool {
	return &WikipediaTool{
		baseURL:    defaultWikipediaBaseURL,
		httpClient: httpClient,
	}
}

// SetBaseURL overrides the Wikipedia endpoint, for tests
func (t *WikipediaTool) SetBaseURL(base string) { t.baseURL = base }

func (t *WikipediaTool) Definition() openai.FunctionDefinition {
	return openai.FunctionDefinition{
		Name:        NameWikipedia,
		Description: "Look up a topic on Wikipedia. Useful for general knowledge about people, places, companies, facts and historical events. Input should be a search term.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query": {
					Type:        jsonschema.String,
					Description: "the topic to look up",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *WikipediaTool) Invoke(ctx context.Context, args string) (string, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", fmt.Errorf("parsing wikipedia arguments: %w", err)
	}

	pageID, err := t.searchTopPage(ctx, in.Query)
	if err != nil {
		return "", err
	}
	if pageID == 0 {
		return "No Wikipedia article found", nil
	}

	extract, err := t.fetchExtract(ctx, pageID)
	if err != nil {
		return "", err
	}

	if len(extract) > wikipediaMaxContentLength {
		extract = extract[:wikipediaMaxContentLength]
	}
	return extract, nil
}

func (t *WikipediaTool) searchTopPage(ctx context.Context, query string) (int, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(wikipediaTopResults))
	params.Set("format", "json")

	var out struct {
		Query struct {
			Search []struct {
				PageID int `json:"pageid"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := t.get(ctx, params, &out); err != nil {
		return 0, err
	}
	if len(out.Query.Search) == 0 {
		return 0, nil
	}
	return out.Query.Search[0].PageID, nil
}

func (t *WikipediaTool) fetchExtract(ctx context.Context, pageID int) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("pageids", strconv.Itoa(pageID))
	params.Set("format", "json")

	var out struct {
		Query struct {
			Pages map[string]struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := t.get(ctx, params, &out); err != nil {
		return "", err
	}

	page, ok := out.Query.Pages[strconv.Itoa(pageID)]
	if !ok {
		return "", fmt.Errorf("wikipedia extract missing for page %d", pageID)
	}
	return page.Extract, nil
}

func (t *WikipediaTool) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("wikipedia HTTP %d: %s", resp.StatusCode, string(slurp))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
