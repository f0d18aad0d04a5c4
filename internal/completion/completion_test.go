package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/conduitchat/conduit/internal/config"
)

func testConfig() *config.CompletionConfig {
	return &config.CompletionConfig{
		AnthropicKey: "sk-ant-test",
		Model:        "claude-2",
		MaxTokens:    300,
	}
}

func sseChunk(completion string) string {
	return fmt.Sprintf("event: completion\ndata: {\"type\":\"completion\",\"completion\":%q,\"stop_reason\":null,\"model\":\"claude-2\"}\n\n", completion)
}

func TestStream_RelaysChunksInOrder(t *testing.T) {
	chunks := []string{"The", " capital", " of", " France", " is", " Paris."}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/complete" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprint(w, sseChunk(c))
		}
		fmt.Fprint(w, "event: completion\ndata: {\"type\":\"completion\",\"completion\":\"\",\"stop_reason\":\"stop_sequence\",\"model\":\"claude-2\"}\n\n")
	}))
	defer srv.Close()

	client := NewClient(testConfig(), option.WithBaseURL(srv.URL))

	var got []string
	err := client.Stream(context.Background(), "Human: hi\n\nAssistant:", func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	if strings.Join(got, "") != strings.Join(chunks, "") {
		t.Errorf("Relayed %q, want %q", strings.Join(got, ""), strings.Join(chunks, ""))
	}
}

func TestStream_ProviderErrorPassthrough(t *testing.T) {
	body := `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	client := NewClient(testConfig(), option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	err := client.Stream(context.Background(), "Human: hi\n\nAssistant:", func(string) error {
		t.Error("sink must not be called on provider error")
		return nil
	})

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Expected *ProviderError, got %T: %v", err, err)
	}
	if provErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", provErr.StatusCode)
	}
	if !strings.Contains(string(provErr.Body), "overloaded_error") {
		t.Errorf("Expected provider body relayed, got %q", string(provErr.Body))
	}
}

func TestStream_SinkErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 10; i++ {
			fmt.Fprint(w, sseChunk("tok"))
		}
	}))
	defer srv.Close()

	client := NewClient(testConfig(), option.WithBaseURL(srv.URL))

	sinkErr := errors.New("client went away")
	calls := 0
	err := client.Stream(context.Background(), "prompt", func(string) error {
		calls++
		return sinkErr
	})

	if !errors.Is(err, sinkErr) {
		t.Fatalf("Expected sink error to propagate, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected relay to stop after first sink error, got %d calls", calls)
	}
}
