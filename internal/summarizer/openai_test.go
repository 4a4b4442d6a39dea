package summarizer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pdfsum/internal/summarizer"
)

const completedResponse = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1700000000,
  "status": "completed",
  "model": "llama3",
  "output": [
    {
      "type": "message",
      "id": "msg_1",
      "status": "completed",
      "role": "assistant",
      "content": [
        {"type": "output_text", "text": "- point one\n- point two", "annotations": []}
      ]
    }
  ]
}`

func newOpenAISummarizer(t *testing.T, url string) *summarizer.OpenAISummarizer {
	t.Helper()

	s, err := summarizer.NewOpenAISummarizer(summarizer.OpenAIOptions{
		APIKey:  "test-key",
		BaseURL: url + "/v1/",
		Model:   "llama3",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("create summarizer: %v", err)
	}

	return s
}

func TestOpenAISummarizerReturnsOutputText(t *testing.T) {
	payloads := make(chan map[string]any, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/responses") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		payloads <- payload

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completedResponse))
	}))
	defer srv.Close()

	summary, err := newOpenAISummarizer(t, srv.URL).Summarize(context.Background(), summarizer.Input{
		Text:        "document body",
		Instruction: "Summarize it.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary != "- point one\n- point two" {
		t.Fatalf("unexpected summary: %q", summary)
	}

	got := <-payloads
	if got["instructions"] != "Summarize it." || got["input"] != "document body" || got["model"] != "llama3" {
		t.Fatalf("unexpected request payload: %#v", got)
	}
}

func TestOpenAISummarizerStatusError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	_, err := newOpenAISummarizer(t, srv.URL).Summarize(context.Background(), summarizer.Input{
		Text:        "t",
		Instruction: "i",
	})

	var statusErr *summarizer.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T (%v)", err, err)
	}

	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status code: %d", statusErr.StatusCode)
	}

	if calls.Load() != 1 {
		t.Fatalf("expected exactly one request without retries, got %d", calls.Load())
	}
}

func TestOpenAISummarizerTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newOpenAISummarizer(t, url).Summarize(context.Background(), summarizer.Input{
		Text:        "t",
		Instruction: "i",
	})

	var transportErr *summarizer.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T (%v)", err, err)
	}
}

func TestNewOpenAISummarizerRequiresModel(t *testing.T) {
	if _, err := summarizer.NewOpenAISummarizer(summarizer.OpenAIOptions{APIKey: "k"}); err == nil {
		t.Fatalf("expected error for empty model")
	}
}
