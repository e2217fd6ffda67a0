package llamacpp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chatResponse(text string) ChatCompletionResponse {
	return ChatCompletionResponse{
		ID:     "cmpl-1",
		Object: "chat.completion",
		Model:  "test",
		Choices: []Choice{
			{Message: Message{Role: "assistant", Content: text}},
		},
	}
}

func TestAnalyzeDefectsReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system + user messages, got %d", len(req.Messages))
		}
		json.NewEncoder(w).Encode(chatResponse(`{"cracks": []}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 30*time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	text, err := c.AnalyzeDefects(context.Background(), "test", "system", "prompt", "aW1n")
	if err != nil {
		t.Fatalf("AnalyzeDefects failed: %v", err)
	}
	if text != `{"cracks": []}` {
		t.Errorf("text = %q", text)
	}
}

func TestConfiguredTimeoutBoundsRequest(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		json.NewEncoder(w).Encode(chatResponse("late"))
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(srv.URL, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	start := time.Now()
	_, err = c.AnalyzeDefects(context.Background(), "test", "system", "prompt", "aW1n")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("request ran %v, configured timeout not applied", elapsed)
	}
}

func TestNewClientTimeoutDefault(t *testing.T) {
	c, err := NewClient("", 0)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.timeout != 300*time.Second {
		t.Errorf("timeout = %v, want 300s default", c.timeout)
	}
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
}

func TestCallerDeadlineWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect and
		// cancels the request context; otherwise srv.Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Hour)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.AnalyzeDefects(ctx, "test", "system", "prompt", "aW1n"); err == nil {
		t.Fatal("expected caller deadline to cancel the request")
	}
}
