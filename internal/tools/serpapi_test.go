package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchTool_AnswerBoxPreferred(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "capital of France" {
			t.Errorf("Unexpected query %q", got)
		}
		if got := r.URL.Query().Get("api_key"); got != "serp-test" {
			t.Errorf("Unexpected api key %q", got)
		}
		fmt.Fprint(w, `{"answer_box":{"answer":"Paris"},"organic_results":[{"snippet":"ignored"}]}`)
	}))
	defer srv.Close()

	tool := NewSearchTool("serp-test", srv.Client())
	tool.SetBaseURL(srv.URL)

	got, err := tool.Invoke(context.Background(), `{"query":"capital of France"}`)
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if got != "Paris" {
		t.Errorf("Expected answer box answer, got %q", got)
	}
}

func TestSearchTool_FallsBackToOrganicSnippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"organic_results":[{"title":"t","snippet":"top snippet"}]}`)
	}))
	defer srv.Close()

	tool := NewSearchTool("serp-test", srv.Client())
	tool.SetBaseURL(srv.URL)

	got, err := tool.Invoke(context.Background(), `{"query":"anything"}`)
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if got != "top snippet" {
		t.Errorf("Expected organic snippet, got %q", got)
	}
}

func TestSearchTool_UpstreamErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	tool := NewSearchTool("serp-test", srv.Client())
	tool.SetBaseURL(srv.URL)

	if _, err := tool.Invoke(context.Background(), `{"query":"anything"}`); err == nil {
		t.Fatal("Expected error for non-2xx upstream status")
	}
}

func TestSerpAPIQueryTool_ReturnsTopResultsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"organic_results":[
			{"title":"one","link":"http://1","snippet":"s1"},
			{"title":"two","link":"http://2","snippet":"s2"},
			{"title":"three","link":"http://3","snippet":"s3"},
			{"title":"four","link":"http://4","snippet":"s4"}
		]}`)
	}))
	defer srv.Close()

	tool := NewSerpAPIQueryTool("serp-test", srv.Client())
	tool.SetBaseURL(srv.URL)

	got, err := tool.Invoke(context.Background(), `{"query":"anything"}`)
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}

	var results []struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(got), &results); err != nil {
		t.Fatalf("Result is not JSON: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Expected top 3 results, got %d", len(results))
	}
	if results[0].Title != "one" {
		t.Errorf("Expected first result first, got %q", results[0].Title)
	}
}

func TestSerpAPIQueryTool_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	tool := NewSerpAPIQueryTool("serp-test", srv.Client())
	tool.SetBaseURL(srv.URL)

	got, err := tool.Invoke(context.Background(), `{"query":"anything"}`)
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if got != "[]" {
		t.Errorf("Expected empty JSON array, got %q", got)
	}
}
