package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func wikipediaTestServer(t *testing.T, extract string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("list") == "search":
			if got := q.Get("srlimit"); got != "1" {
				t.Errorf("Expected top-1 search, srlimit=%q", got)
			}
			fmt.Fprint(w, `{"query":{"search":[{"pageid":42,"title":"Paris"}]}}`)
		case q.Get("prop") == "extracts":
			if got := q.Get("pageids"); got != "42" {
				t.Errorf("Expected extract for page 42, got %q", got)
			}
			fmt.Fprintf(w, `{"query":{"pages":{"42":{"extract":%q}}}}`, extract)
		default:
			t.Errorf("Unexpected wikipedia call: %s", r.URL.RawQuery)
		}
	}))
}

func TestWikipediaTool_ReturnsExtract(t *testing.T) {
	srv := wikipediaTestServer(t, "Paris is the capital of France.")
	defer srv.Close()

	tool := NewWikipediaTool(srv.Client())
	tool.SetBaseURL(srv.URL)

	got, err := tool.Invoke(context.Background(), `{"query":"Paris"}`)
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if got != "Paris is the capital of France." {
		t.Errorf("Unexpected extract: %q", got)
	}
}

func TestWikipediaTool_CapsExtractLength(t *testing.T) {
	long := strings.Repeat("a", 2*wikipediaMaxContentLength)
	srv := wikipediaTestServer(t, long)
	defer srv.Close()

	tool := NewWikipediaTool(srv.Client())
	tool.SetBaseURL(srv.URL)

	got, err := tool.Invoke(context.Background(), `{"query":"anything"}`)
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if len(got) != wikipediaMaxContentLength {
		t.Errorf("Expected extract capped at %d chars, got %d", wikipediaMaxContentLength, len(got))
	}
}

func TestWikipediaTool_NoArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query":{"search":[]}}`)
	}))
	defer srv.Close()

	tool := NewWikipediaTool(srv.Client())
	tool.SetBaseURL(srv.URL)

	got, err := tool.Invoke(context.Background(), `{"query":"zxqw-nonexistent"}`)
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if got != "No Wikipedia article found" {
		t.Errorf("Unexpected response: %q", got)
	}
}
