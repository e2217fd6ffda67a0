package ollama

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClientTimeout(t *testing.T) {
	c, err := NewClient("http://localhost:11434/api/chat", 600*time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.timeout != 600*time.Second {
		t.Errorf("timeout = %v, want 600s", c.timeout)
	}
}

func TestNewClientTimeoutDefault(t *testing.T) {
	c, err := NewClient("http://localhost:11434", 0)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.timeout != 300*time.Second {
		t.Errorf("timeout = %v, want 300s default", c.timeout)
	}
}

func TestConfiguredTimeoutBoundsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect and
		// cancels the request context; otherwise srv.Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

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
