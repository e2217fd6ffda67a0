package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// Client wraps the Ollama API client.
type Client struct {
	client  *api.Client
	timeout time.Duration
}

// NewClient creates a new Ollama client for the given server URL. Any path
// component (like /api/chat) is stripped; the SDK appends its own endpoints.
// timeout bounds each request when the caller's context has no deadline;
// non-positive values fall back to 300s.
func NewClient(ollamaURL string, timeout time.Duration) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		timeout: timeout,
	}, nil
}

// ListModels returns the names of the models installed on the server. Used
// for the pre-flight health check before a long inspection run.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ollama list error: %v", err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// SimpleQuery performs a single query with an image and returns the free-text
// answer.
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	// Add timeout if context doesn't have one (vision models on CPU are slow)
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 image: %v", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream: &streamFalse,
		// No Format field - let it return natural language
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %v", err)
	}

	return responseContent, nil
}

// AnalyzeDefects sends the inspection prompts with an image and returns the
// raw model response. The request asks for JSON output and uses a low
// temperature so box coordinates stay stable between runs.
func (c *Client) AnalyzeDefects(ctx context.Context, model, system, prompt, imgB64 string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 image: %v", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "system",
				Content: system,
			},
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Format: json.RawMessage(`"json"`),
		Stream: &streamFalse,
		Options: map[string]any{
			"temperature": 0.3,
			"top_p":       0.9,
		},
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %v", err)
	}

	if responseContent == "" {
		return "", fmt.Errorf("empty response from ollama")
	}

	return responseContent, nil
}
